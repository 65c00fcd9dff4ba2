package gesture

import (
	"testing"
	"time"
)

// timeline drives a machine with explicit timestamps and collects every
// resolved gesture.
type timeline struct {
	t    *testing.T
	m    machine
	base time.Time
	out  []Gesture
}

func newTimeline(t *testing.T) *timeline {
	t.Helper()
	return &timeline{t: t, base: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (tl *timeline) press(offset time.Duration, b Button) {
	tl.out = append(tl.out, tl.m.press(tl.base.Add(offset), b)...)
}

// settle advances far enough past the last activity for every pending
// deadline to fire.
func (tl *timeline) settle(offset time.Duration) {
	tl.out = append(tl.out, tl.m.advance(tl.base.Add(offset))...)
}

func (tl *timeline) want(gestures ...Gesture) {
	tl.t.Helper()
	if len(tl.out) != len(gestures) {
		tl.t.Fatalf("emitted %v, want %v", tl.out, gestures)
	}
	for i := range gestures {
		if tl.out[i] != gestures[i] {
			tl.t.Fatalf("emitted %v, want %v", tl.out, gestures)
		}
	}
}

const (
	quick = 50 * time.Millisecond  // well inside every window
	far   = 10 * time.Second       // past every timeout
)

func TestSingleButtonRepeatCounts(t *testing.T) {
	tests := []struct {
		name   string
		button Button
		count  int
		want   Gesture
	}{
		{"on single", ButtonOn, 1, OnShortPress},
		{"on double", ButtonOn, 2, OnDoublePress},
		{"on triple", ButtonOn, 3, OnTriplePress},
		{"on quadruple", ButtonOn, 4, OnQuadruplePress},
		{"on quintuple", ButtonOn, 5, OnQuintuplePress},
		{"off single", ButtonOff, 1, OffShortPress},
		{"off double", ButtonOff, 2, OffDoublePress},
		{"off triple", ButtonOff, 3, OffTriplePress},
		{"off quadruple", ButtonOff, 4, OffQuadruplePress},
		{"off quintuple", ButtonOff, 5, OffQuintuplePress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTimeline(t)
			for i := 0; i < tt.count; i++ {
				tl.press(time.Duration(i)*quick, tt.button)
			}
			tl.settle(far)
			tl.want(tt.want)
		})
	}
}

func TestSixPressesClampToQuintuple(t *testing.T) {
	tl := newTimeline(t)
	for i := 0; i < 6; i++ {
		tl.press(time.Duration(i)*quick, ButtonOn)
	}
	tl.settle(far)
	tl.want(OnQuintuplePress)
}

func TestSlowRepressIsSeparateRunNotDouble(t *testing.T) {
	// Two same-button presses farther apart than the run window form two
	// independent runs. No catalog entry covers [on, on], so the episode
	// resolves to nothing rather than a double press.
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(intraRunWindow+100*time.Millisecond, ButtonOn)
	tl.settle(far)
	tl.want()
}

func TestMultiClickEmitsAtRunFinalization(t *testing.T) {
	// A double click resolves one run-window after the last press, not a
	// full episode timeout later.
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(quick, ButtonOn)
	tl.settle(quick + intraRunWindow)
	tl.want(OnDoublePress)
}

func TestDualButtonSinglePress(t *testing.T) {
	for _, first := range []Button{ButtonOn, ButtonOff} {
		tl := newTimeline(t)
		tl.press(0, first)
		tl.press(quick, 1-first)
		tl.settle(far)
		tl.want(ButtonDouble)
	}
}

func TestDualButtonDoublePressUpgrades(t *testing.T) {
	// Two rapid simultaneous pairs emit the double-press upgrade only,
	// never an interim button_double.
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(5*time.Millisecond, ButtonOff)
	tl.press(10*time.Millisecond, ButtonOn)
	tl.press(15*time.Millisecond, ButtonOff)
	tl.settle(far)
	tl.want(ButtonDoubleDoublePress)
}

func TestDualButtonTriplePressEmitsEagerly(t *testing.T) {
	tl := newTimeline(t)
	for i := 0; i < 3; i++ {
		off := time.Duration(i) * 10 * time.Millisecond
		tl.press(off, ButtonOn)
		tl.press(off+5*time.Millisecond, ButtonOff)
	}
	tl.settle(far)
	tl.want(ButtonDoubleTriplePress)
}

func TestCoincidenceBoundary(t *testing.T) {
	// Inside the coincidence window: dual. Outside it (but inside the
	// episode): ordered sequence.
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(coincidenceWindow, ButtonOff)
	tl.settle(far)
	tl.want(ButtonDouble)

	tl = newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(coincidenceWindow+50*time.Millisecond, ButtonOff)
	tl.settle(far)
	tl.want(OnOff)
}

func TestTwoButtonSequences(t *testing.T) {
	gap := coincidenceWindow + 50*time.Millisecond

	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(gap, ButtonOff)
	tl.settle(far)
	tl.want(OnOff)

	tl = newTimeline(t)
	tl.press(0, ButtonOff)
	tl.press(gap, ButtonOn)
	tl.settle(far)
	tl.want(OffOn)
}

func TestSequenceTooSlowIsTwoShortPresses(t *testing.T) {
	// A second button pressed after the episode timeout starts a fresh
	// episode: two independent short presses.
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(episodeTimeout+100*time.Millisecond, ButtonOff)
	tl.settle(far)
	tl.want(OnShortPress, OffShortPress)
}

func TestThreeButtonSequences(t *testing.T) {
	// Same-button neighbors must be separate runs, so steps sit between
	// the run window and the episode timeout.
	step := intraRunWindow + 100 * time.Millisecond

	tests := []struct {
		name    string
		buttons [3]Button
		want    []Gesture
	}{
		{"on_on_off", [3]Button{ButtonOn, ButtonOn, ButtonOff}, []Gesture{OnOnOff}},
		{"on_off_on", [3]Button{ButtonOn, ButtonOff, ButtonOn}, []Gesture{OnOffOn}},
		{"on_off_off", [3]Button{ButtonOn, ButtonOff, ButtonOff}, []Gesture{OnOffOff}},
		{"off_on_on", [3]Button{ButtonOff, ButtonOn, ButtonOn}, []Gesture{OffOnOn}},
		{"off_on_off", [3]Button{ButtonOff, ButtonOn, ButtonOff}, []Gesture{OffOnOff}},
		{"off_off_on", [3]Button{ButtonOff, ButtonOff, ButtonOn}, []Gesture{OffOffOn}},
		// The two same-button orders are excluded from the catalog.
		{"on_on_on dropped", [3]Button{ButtonOn, ButtonOn, ButtonOn}, nil},
		{"off_off_off dropped", [3]Button{ButtonOff, ButtonOff, ButtonOff}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTimeline(t)
			for i, b := range tt.buttons {
				tl.press(time.Duration(i)*step, b)
			}
			tl.settle(far)
			tl.want(tt.want...)
		})
	}
}

func TestRepeatRunDisqualifiesSequence(t *testing.T) {
	// ON ON (one run of two) followed by OFF resolves the double press at
	// the moment the OFF press arrives; the OFF starts its own episode.
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(quick, ButtonOn)
	tl.press(2*quick, ButtonOff)
	tl.settle(far)
	tl.want(OnDoublePress, OffShortPress)
}

func TestRepeatRunDropsEarlierSingleClicks(t *testing.T) {
	// A single OFF click followed by a triple ON run: the run-length
	// family wins and the stray OFF is absorbed.
	gap := coincidenceWindow + 50*time.Millisecond
	tl := newTimeline(t)
	tl.press(0, ButtonOff)
	tl.press(gap, ButtonOn)
	tl.press(gap+quick, ButtonOn)
	tl.press(gap+2*quick, ButtonOn)
	tl.settle(far)
	tl.want(OnTriplePress)
}

func TestSeparatedSameButtonClicksProduceNothing(t *testing.T) {
	// Three OFF clicks each separated by more than the run window but
	// less than the episode timeout: three runs, excluded combination.
	step := intraRunWindow + 100*time.Millisecond
	tl := newTimeline(t)
	tl.press(0, ButtonOff)
	tl.press(step, ButtonOff)
	tl.press(2*step, ButtonOff)
	tl.settle(far)
	tl.want()
}

func TestBackToBackEpisodesAreIndependent(t *testing.T) {
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(quick, ButtonOn)
	tl.settle(far)

	tl.press(far+time.Second, ButtonOff)
	tl.settle(2 * far)
	tl.want(OnDoublePress, OffShortPress)
}

func TestDualThenUnrelatedPressFlushesDualFirst(t *testing.T) {
	// A pending dual flush is held while the next episode is open and
	// emitted before that episode's own gesture.
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(quick, ButtonOff)
	// Press again before the pair's flush deadline: the flush is
	// suspended until the new episode resolves, then emitted first.
	tl.press(300*time.Millisecond, ButtonOn)
	tl.settle(far)
	tl.want(ButtonDouble, OnShortPress)
}

func TestIdleTimeoutAlwaysResolves(t *testing.T) {
	// No input sequence may leave the machine with a pending deadline
	// forever: after settling, the next episode starts clean.
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.settle(far)
	if dl, ok := tl.m.nextDeadline(); ok {
		t.Fatalf("deadline still pending after settle: %v", dl)
	}
	tl.press(far+time.Second, ButtonOff)
	tl.settle(2 * far)
	tl.want(OnShortPress, OffShortPress)
}

func TestDeterministicReplay(t *testing.T) {
	// Replaying an identical timestamped stream through two independent
	// machines yields identical gesture sequences.
	presses := []struct {
		offset time.Duration
		button Button
	}{
		{0, ButtonOn},
		{40 * time.Millisecond, ButtonOn},
		{600 * time.Millisecond, ButtonOff},
		{630 * time.Millisecond, ButtonOn},
		{2 * time.Second, ButtonOff},
		{2*time.Second + 300*time.Millisecond, ButtonOff},
	}

	run := func() []Gesture {
		tl := newTimeline(t)
		for _, p := range presses {
			tl.press(p.offset, p.button)
		}
		tl.settle(time.Minute)
		return tl.out
	}

	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("replay diverged: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("replay diverged: %v vs %v", a, b)
		}
	}
}

func TestPressAtExactRunDeadlineExtendsRun(t *testing.T) {
	// A press arriving exactly when the run would finalize supersedes the
	// timer: last scheduled action wins.
	tl := newTimeline(t)
	tl.press(0, ButtonOn)
	tl.press(intraRunWindow, ButtonOn)
	tl.settle(far)
	tl.want(OnDoublePress)
}
