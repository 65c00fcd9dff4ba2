package gesture

import "time"

// Timing windows. Compiled-in: chosen to feel responsive to a human hand,
// not exposed as configuration.
const (
	// intraRunWindow is the maximum gap between two presses of the same
	// button that still count as one run. It also bounds the dual-press
	// repeat window and run finalization after the last press.
	intraRunWindow = 350 * time.Millisecond

	// coincidenceWindow is the maximum gap between the first presses of
	// two different buttons still counted as simultaneous. Strictly
	// smaller than intraRunWindow.
	coincidenceWindow = 200 * time.Millisecond

	// episodeTimeout closes an episode that is still waiting for more
	// runs. Strictly larger than intraRunWindow so that separate runs of
	// the same episode (sequence clicks) remain reachable.
	episodeTimeout = 700 * time.Millisecond
)

// pressRun is a maximal burst of same-button presses treated as one
// repeat-click unit.
type pressRun struct {
	button Button
	count  int
	first  time.Time
	last   time.Time
}

// episode spans everything since the user's hands were last idle: the
// finalized runs collected so far plus the simultaneous-press flag.
type episode struct {
	runs         []pressRun
	simultaneous bool
	lastPress    time.Time
}

// machine is the deterministic core of the engine. It is driven entirely
// by explicit timestamps: press records a raw event, advance fires every
// deadline that has expired. Replaying the same timestamped input yields
// the same output. Not safe for concurrent use; Engine serializes access.
type machine struct {
	run *pressRun
	ep  *episode

	// Dual-press repeat state carried across episodes. dualFlushAt is the
	// zero time when no flush is pending; dualHeld suspends the flush
	// while a newer episode is still open.
	dualCount   int
	dualFlushAt time.Time
	dualHeld    bool
}

// press records a raw button press at time t. Deadlines that expired
// strictly before t fire first, so out-of-band timer delivery can never
// reorder events. Returns any gestures resolved as a consequence.
func (m *machine) press(t time.Time, b Button) []Gesture {
	out := m.advanceBefore(t)

	if m.run != nil && m.run.button == b && t.Sub(m.run.last) <= intraRunWindow {
		m.run.count++
		m.run.last = t
		m.ep.lastPress = t
		return out
	}

	if m.run != nil {
		out = append(out, m.finalizeRun()...)
	}

	if m.ep == nil {
		m.ep = &episode{}
		if m.dualCount > 0 {
			// A pending dual flush is suspended until this episode
			// resolves: it may turn out to be the next dual repeat.
			m.dualHeld = true
		}
	}
	m.run = &pressRun{button: b, count: 1, first: t, last: t}
	m.ep.lastPress = t
	return out
}

// advance fires every deadline at or before t, in chronological order.
func (m *machine) advance(t time.Time) []Gesture {
	var out []Gesture
	for {
		dl, ok := m.nextDeadline()
		if !ok || dl.After(t) {
			return out
		}
		out = append(out, m.fire(dl)...)
	}
}

// advanceBefore fires deadlines strictly before t. A deadline that
// coincides with a real press is superseded by the press.
func (m *machine) advanceBefore(t time.Time) []Gesture {
	var out []Gesture
	for {
		dl, ok := m.nextDeadline()
		if !ok || !dl.Before(t) {
			return out
		}
		out = append(out, m.fire(dl)...)
	}
}

// nextDeadline returns the earliest pending deadline, if any.
func (m *machine) nextDeadline() (time.Time, bool) {
	var dl time.Time
	if m.run != nil {
		dl = m.run.last.Add(intraRunWindow)
	}
	if m.ep != nil {
		if epDl := m.ep.lastPress.Add(episodeTimeout); dl.IsZero() || epDl.Before(dl) {
			dl = epDl
		}
	}
	if m.dualCount > 0 && !m.dualHeld {
		if dl.IsZero() || m.dualFlushAt.Before(dl) {
			dl = m.dualFlushAt
		}
	}
	return dl, !dl.IsZero()
}

// fire executes whichever deadline matches dl. While a run is active its
// finalization deadline is always earlier than the episode's, so an
// episode never times out with an unfinalized run.
func (m *machine) fire(dl time.Time) []Gesture {
	if m.run != nil && m.run.last.Add(intraRunWindow).Equal(dl) {
		return m.finalizeRun()
	}
	if m.ep != nil && m.ep.lastPress.Add(episodeTimeout).Equal(dl) {
		return m.closeEpisode(resolveTimeout(m.ep))
	}
	if m.dualCount > 0 && !m.dualHeld && m.dualFlushAt.Equal(dl) {
		g := dualGesture(m.dualCount)
		m.resetDual()
		return []Gesture{g}
	}
	return nil
}

// finalizeRun freezes the active run, appends it to the episode, and lets
// the tracker decide whether the episode is complete.
func (m *machine) finalizeRun() []Gesture {
	r := *m.run
	m.run = nil
	m.ep.runs = append(m.ep.runs, r)

	// A multi-click run disqualifies every other interpretation: resolve
	// immediately, dropping any single-click runs collected before it.
	if r.count >= 2 {
		return m.closeEpisode(repeatGesture(r.button, r.count))
	}

	switch len(m.ep.runs) {
	case 2:
		first := m.ep.runs[0]
		if first.count == 1 && first.button != r.button &&
			r.first.Sub(first.first) <= coincidenceWindow {
			m.ep.simultaneous = true
			return m.resolveDual(r.last)
		}
		return nil // await a third run or the episode timeout
	case 3:
		g, ok := resolveSequence(m.ep.runs)
		if !ok {
			return m.closeEpisode(nil)
		}
		return m.closeEpisode(&g)
	default:
		return nil
	}
}

// resolveDual closes a simultaneous episode into the cross-episode dual
// repeat counter. The counter flushes after intraRunWindow unless another
// dual episode upgrades it first; the third repeat emits immediately.
func (m *machine) resolveDual(closedAt time.Time) []Gesture {
	m.ep = nil
	m.dualCount++
	m.dualHeld = false
	if m.dualCount >= 3 {
		g := dualGesture(m.dualCount)
		m.resetDual()
		return []Gesture{g}
	}
	m.dualFlushAt = closedAt.Add(intraRunWindow)
	return nil
}

// closeEpisode resets to idle, flushing any suspended dual repeat first so
// emission order matches the order the user completed the gestures.
// g is nil for a no-match episode, which is silently dropped.
func (m *machine) closeEpisode(g *Gesture) []Gesture {
	m.ep = nil
	var out []Gesture
	if m.dualCount > 0 {
		out = append(out, dualGesture(m.dualCount))
		m.resetDual()
	}
	if g != nil {
		out = append(out, *g)
	}
	return out
}

func (m *machine) resetDual() {
	m.dualCount = 0
	m.dualFlushAt = time.Time{}
	m.dualHeld = false
}
