package store

import "time"

// Device is the persisted record of one known Zigbee device.
type Device struct {
	IEEEAddress  string         `json:"ieee_address"`
	Manufacturer string         `json:"manufacturer,omitempty"`
	Model        string         `json:"model,omitempty"`
	FriendlyName string         `json:"friendly_name,omitempty"`
	Quirk        string         `json:"quirk,omitempty"`
	FirstSeen    time.Time      `json:"first_seen"`
	LastSeen     time.Time      `json:"last_seen"`
	Properties   map[string]any `json:"properties,omitempty"`
}

// Calibration mirrors valve.Calibration for persistence. Kept separate
// so a store schema change never forces a valve package change.
type Calibration struct {
	MinLimit uint8     `json:"min_limit"`
	MaxLimit uint8     `json:"max_limit"`
	Updated  time.Time `json:"updated"`
}
