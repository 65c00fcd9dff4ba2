// Package gesture turns raw two-button press events into semantic click
// gestures: repeated clicks of one button (single through quintuple),
// near-simultaneous dual-button presses, and ordered button sequences.
package gesture

import "fmt"

// Button identifies which physical button produced a press.
type Button uint8

const (
	ButtonOff Button = 0x00
	ButtonOn  Button = 0x01
)

// String returns the wire name of the button.
func (b Button) String() string {
	switch b {
	case ButtonOn:
		return "on"
	case ButtonOff:
		return "off"
	default:
		return fmt.Sprintf("button(0x%02X)", uint8(b))
	}
}

// Valid reports whether b is a known button identity.
func (b Button) Valid() bool {
	return b == ButtonOn || b == ButtonOff
}

// Gesture is one resolved semantic event. Exactly one gesture is emitted
// per completed interaction episode; unmatched episodes emit nothing.
type Gesture uint8

const (
	// Same-button repeat family.
	OnShortPress Gesture = iota
	OnDoublePress
	OnTriplePress
	OnQuadruplePress
	OnQuintuplePress
	OffShortPress
	OffDoublePress
	OffTriplePress
	OffQuadruplePress
	OffQuintuplePress

	// Dual-button (simultaneous) family.
	ButtonDouble
	ButtonDoubleDoublePress
	ButtonDoubleTriplePress

	// Ordered 2-button sequences.
	OnOff
	OffOn

	// Ordered 3-button sequences. The two same-button orders (on_on_on,
	// off_off_off) are deliberately absent: contiguous presses collapse
	// into counted runs and resolve as triple presses instead.
	OnOnOff
	OnOffOn
	OnOffOff
	OffOnOn
	OffOnOff
	OffOffOn

	numGestures
)

var gestureNames = [numGestures]string{
	OnShortPress:      "on_short_press",
	OnDoublePress:     "on_double_press",
	OnTriplePress:     "on_triple_press",
	OnQuadruplePress:  "on_quadruple_press",
	OnQuintuplePress:  "on_quintuple_press",
	OffShortPress:     "off_short_press",
	OffDoublePress:    "off_double_press",
	OffTriplePress:    "off_triple_press",
	OffQuadruplePress: "off_quadruple_press",
	OffQuintuplePress: "off_quintuple_press",

	ButtonDouble:            "button_double",
	ButtonDoubleDoublePress: "button_double_double_press",
	ButtonDoubleTriplePress: "button_double_triple_press",

	OnOff: "on_off",
	OffOn: "off_on",

	OnOnOff:  "on_on_off",
	OnOffOn:  "on_off_on",
	OnOffOff: "on_off_off",
	OffOnOn:  "off_on_on",
	OffOnOff: "off_on_off",
	OffOffOn: "off_off_on",
}

// String returns the catalog name of the gesture, as published to the
// automation bus.
func (g Gesture) String() string {
	if int(g) < len(gestureNames) {
		return gestureNames[g]
	}
	return fmt.Sprintf("gesture(%d)", uint8(g))
}

// Catalog returns the full list of gesture names in catalog order.
func Catalog() []string {
	names := make([]string, numGestures)
	copy(names, gestureNames[:])
	return names
}
