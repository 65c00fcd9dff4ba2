// Package quirk implements device-specific behavior layered over the raw
// Zigbee event feed. A quirk owns one device: it interprets incoming
// cluster commands and attribute reports, publishes semantic events on
// the bus, and mediates writes back to the device.
package quirk

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/armellarcier/benew-zha-quirks/internal/bus"
	"github.com/armellarcier/benew-zha-quirks/internal/source"
	"github.com/armellarcier/benew-zha-quirks/internal/store"
)

// Deps are the shared services handed to each quirk instance.
type Deps struct {
	Logger *slog.Logger
	Bus    *bus.EventBus
	Store  store.Store
	Source source.Source
}

// Quirk handles raw events for one device.
type Quirk interface {
	HandleClusterCommand(ev source.ClusterCommandEvent)
	HandleAttributeReport(ev source.AttributeReportEvent)
	Close()
}

// ValveController is implemented by quirks that drive a calibrated
// radiator valve.
type ValveController interface {
	// SetPosition moves the valve to a virtual position (0-100).
	SetPosition(ctx context.Context, virtual uint8) error
	// SetLimits updates and persists the calibration range.
	SetLimits(ctx context.Context, minLimit, maxLimit uint8) error
	// Limits returns the current calibration range.
	Limits() (minLimit, maxLimit uint8)
}

// Definition describes one supported device type.
type Definition struct {
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer"`
	Models       []string `json:"models"`
	// Actions is the catalog of event names the quirk can publish, for
	// automation frontends.
	Actions []string `json:"actions,omitempty"`

	New func(dev *store.Device, deps Deps) (Quirk, error) `json:"-"`
}

// Matches reports whether the definition covers the given identity.
func (d *Definition) Matches(manufacturer, model string) bool {
	if manufacturer != d.Manufacturer {
		return false
	}
	for _, m := range d.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Registry holds the known quirk definitions.
type Registry struct {
	mu   sync.RWMutex
	defs []*Definition
}

// NewRegistry returns a registry preloaded with the built-in quirks.
func NewRegistry() *Registry {
	r := &Registry{}
	r.Register(rodretDefinition())
	r.Register(trvzbDefinition())
	return r
}

// Register adds a definition. Later registrations win on conflicts, so
// callers can override built-ins.
func (r *Registry) Register(def *Definition) {
	r.mu.Lock()
	r.defs = append([]*Definition{def}, r.defs...)
	r.mu.Unlock()
}

// Match finds the definition for a device identity, or nil.
func (r *Registry) Match(manufacturer, model string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.defs {
		if d.Matches(manufacturer, model) {
			return d
		}
	}
	return nil
}

// ByName finds a definition by quirk name, or nil.
func (r *Registry) ByName(name string) *Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, d := range r.defs {
		if d.Name == name {
			return d
		}
	}
	return nil
}

// Definitions returns all registered definitions.
func (r *Registry) Definitions() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

// Create instantiates the quirk for a device, resolving its definition
// by stored quirk name first and device identity second.
func (r *Registry) Create(dev *store.Device, deps Deps) (Quirk, *Definition, error) {
	var def *Definition
	if dev.Quirk != "" {
		def = r.ByName(dev.Quirk)
	}
	if def == nil {
		def = r.Match(dev.Manufacturer, dev.Model)
	}
	if def == nil {
		return nil, nil, fmt.Errorf("quirk: no definition for %s (%s / %s)", dev.IEEEAddress, dev.Manufacturer, dev.Model)
	}
	q, err := def.New(dev, deps)
	if err != nil {
		return nil, nil, err
	}
	return q, def, nil
}

// displayName picks the name used in bus payloads.
func displayName(dev *store.Device) string {
	if dev.FriendlyName != "" {
		return dev.FriendlyName
	}
	return dev.IEEEAddress
}
