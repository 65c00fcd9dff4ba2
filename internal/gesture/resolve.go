package gesture

// repeatGesture maps a same-button run to its repeat-family gesture.
// Counts beyond 5 clamp to quintuple: extra presses neither upgrade nor
// downgrade the result.
func repeatGesture(b Button, count int) *Gesture {
	if count > 5 {
		count = 5
	}
	var g Gesture
	if b == ButtonOn {
		g = OnShortPress + Gesture(count-1)
	} else {
		g = OffShortPress + Gesture(count-1)
	}
	return &g
}

// dualGesture maps the dual-press repeat count to its gesture. Counts
// beyond 3 cannot occur: the third repeat resolves eagerly.
func dualGesture(count int) Gesture {
	switch count {
	case 1:
		return ButtonDouble
	case 2:
		return ButtonDoubleDoublePress
	default:
		return ButtonDoubleTriplePress
	}
}

var threeSequences = map[[3]Button]Gesture{
	{ButtonOn, ButtonOn, ButtonOff}:   OnOnOff,
	{ButtonOn, ButtonOff, ButtonOn}:   OnOffOn,
	{ButtonOn, ButtonOff, ButtonOff}:  OnOffOff,
	{ButtonOff, ButtonOn, ButtonOn}:   OffOnOn,
	{ButtonOff, ButtonOn, ButtonOff}:  OffOnOff,
	{ButtonOff, ButtonOff, ButtonOn}:  OffOffOn,
	// on_on_on and off_off_off are intentionally absent from the catalog.
}

// resolveSequence matches a completed 3-run episode against the sequence
// catalog. All runs are count 1 by construction: a longer run resolves
// the episode before a third run can be collected.
func resolveSequence(runs []pressRun) (Gesture, bool) {
	key := [3]Button{runs[0].button, runs[1].button, runs[2].button}
	g, ok := threeSequences[key]
	return g, ok
}

// resolveTimeout resolves an episode closed by the episode timeout.
// Returns nil for a no-match episode, which is dropped without emission.
func resolveTimeout(ep *episode) *Gesture {
	switch len(ep.runs) {
	case 1:
		return repeatGesture(ep.runs[0].button, ep.runs[0].count)
	case 2:
		// Both runs are count 1 here: a longer run closes the episode at
		// finalization, and a simultaneous pair closes it as dual.
		a, b := ep.runs[0].button, ep.runs[1].button
		switch {
		case a == ButtonOn && b == ButtonOff:
			g := OnOff
			return &g
		case a == ButtonOff && b == ButtonOn:
			g := OffOn
			return &g
		default:
			// Two separated single clicks of the same button match no
			// catalog entry.
			return nil
		}
	default:
		return nil
	}
}
