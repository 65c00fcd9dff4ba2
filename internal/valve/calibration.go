// Package valve implements the virtual position model for calibrated
// radiator valves. Many TRV actuators only move the pin usefully inside
// a sub-range of their 0-100% travel; the calibration maps a virtual
// 0-100% scale onto that usable range in both directions.
package valve

import "fmt"

// Calibration is the usable travel range of one valve, in percent of
// physical travel.
type Calibration struct {
	MinLimit uint8 `json:"min_limit"`
	MaxLimit uint8 `json:"max_limit"`
}

// DefaultCalibration spans the whole physical range, making the virtual
// scale an identity mapping.
func DefaultCalibration() Calibration {
	return Calibration{MinLimit: 0, MaxLimit: 100}
}

// Validate checks the limits are percentages in the right order. Equal
// limits are allowed: the valve is then pinned to that position.
func (c Calibration) Validate() error {
	if c.MinLimit > 100 || c.MaxLimit > 100 {
		return fmt.Errorf("valve: limits must be 0-100, got min=%d max=%d", c.MinLimit, c.MaxLimit)
	}
	if c.MinLimit > c.MaxLimit {
		return fmt.Errorf("valve: min limit %d exceeds max limit %d", c.MinLimit, c.MaxLimit)
	}
	return nil
}

// VirtualToReal maps a virtual position (0-100) onto the calibrated
// physical range. The endpoints pass through unscaled so that fully
// closed and fully open always reach the hard stops; everything in
// between is interpolated into [min, max].
func (c Calibration) VirtualToReal(virtual uint8) uint8 {
	if c.MaxLimit == c.MinLimit {
		return c.MinLimit
	}
	if virtual == 0 {
		return 0
	}
	if virtual >= 100 {
		return 100
	}
	real := int(c.MinLimit) + int(virtual)*int(c.MaxLimit-c.MinLimit)/100
	if real < int(c.MinLimit) {
		real = int(c.MinLimit)
	}
	if real > int(c.MaxLimit) {
		real = int(c.MaxLimit)
	}
	return uint8(real)
}

// RealToVirtual maps a physical position reported by the valve back onto
// the virtual 0-100 scale. Positions outside the calibrated range clamp
// to the scale ends. A degenerate calibration always reads as 0.
func (c Calibration) RealToVirtual(real uint8) uint8 {
	if c.MaxLimit == c.MinLimit {
		return 0
	}
	if real <= c.MinLimit {
		return 0
	}
	virtual := int(real-c.MinLimit) * 100 / int(c.MaxLimit-c.MinLimit)
	if virtual > 100 {
		virtual = 100
	}
	return uint8(virtual)
}
