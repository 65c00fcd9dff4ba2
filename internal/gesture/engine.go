package gesture

import (
	"fmt"
	"sync"
	"time"
)

// Sink receives resolved gestures. Called outside the engine lock, in
// resolution order.
type Sink func(Gesture)

// Engine is the real-time shell around the deterministic machine. Raw
// press ingestion is synchronous and non-blocking; between events a
// single rescheduled timer drives run finalization, episode closure, and
// the dual-press flush.
type Engine struct {
	mu    sync.Mutex
	m     machine
	sink  Sink
	now   func() time.Time
	timer *time.Timer
	gen   uint64 // invalidates superseded timer callbacks

	// Resolved gestures queue here under mu and drain through a single
	// flusher at a time, so the sink sees batches in resolution order
	// even when a timer callback races a press.
	pending  []Gesture
	emitting bool
}

// NewEngine creates an engine delivering resolved gestures to sink.
func NewEngine(sink Sink) *Engine {
	return &Engine{sink: sink, now: time.Now}
}

// Press ingests one raw button press, stamped with the current time.
// Returns an error only for an unknown button identity; such presses
// mutate no state.
func (e *Engine) Press(b Button) error {
	if !b.Valid() {
		return fmt.Errorf("unknown button identity 0x%02X", uint8(b))
	}
	e.mu.Lock()
	e.pending = append(e.pending, e.m.press(e.now(), b)...)
	e.reschedule()
	e.mu.Unlock()
	e.flush()
	return nil
}

// Stop cancels any pending timer. Pending runs and episodes are
// abandoned; the engine may be reused afterwards.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// reschedule arms the timer for the machine's earliest deadline. Bumping
// the generation turns any already-fired callback into a no-op, so a
// timer racing a real event can never double-finalize.
// Caller holds e.mu.
func (e *Engine) reschedule() {
	e.gen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	dl, ok := e.m.nextDeadline()
	if !ok {
		return
	}
	gen := e.gen
	d := dl.Sub(e.now())
	if d < 0 {
		d = 0
	}
	e.timer = time.AfterFunc(d, func() { e.fire(gen) })
}

func (e *Engine) fire(gen uint64) {
	e.mu.Lock()
	if gen != e.gen {
		e.mu.Unlock()
		return
	}
	e.pending = append(e.pending, e.m.advance(e.now())...)
	e.reschedule()
	e.mu.Unlock()
	e.flush()
}

// flush drains the pending queue. Only one caller emits at a time;
// anyone arriving while a drain is in progress leaves its batch queued
// for the active flusher, which keeps delivery in resolution order.
func (e *Engine) flush() {
	if e.sink == nil {
		return
	}
	for {
		e.mu.Lock()
		if e.emitting || len(e.pending) == 0 {
			e.mu.Unlock()
			return
		}
		e.emitting = true
		batch := e.pending
		e.pending = nil
		e.mu.Unlock()

		for _, g := range batch {
			e.sink(g)
		}

		e.mu.Lock()
		e.emitting = false
		e.mu.Unlock()
	}
}
