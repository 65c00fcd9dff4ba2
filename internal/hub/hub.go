// Package hub owns the device table: it binds quirk instances to known
// devices and routes raw source events to them.
package hub

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/armellarcier/benew-zha-quirks/internal/bus"
	"github.com/armellarcier/benew-zha-quirks/internal/quirk"
	"github.com/armellarcier/benew-zha-quirks/internal/source"
	"github.com/armellarcier/benew-zha-quirks/internal/store"
)

// lastSeenInterval throttles LastSeen persistence per device.
const lastSeenInterval = time.Minute

// Hub routes source events to per-device quirks.
type Hub struct {
	logger   *slog.Logger
	bus      *bus.EventBus
	store    store.Store
	source   source.Source
	registry *quirk.Registry

	mu     sync.RWMutex
	quirks map[string]quirk.Quirk
	defs   map[string]*quirk.Definition

	seenMu   sync.Mutex
	lastSeen map[string]time.Time
}

// New creates a hub over the given services.
func New(logger *slog.Logger, eb *bus.EventBus, st store.Store, src source.Source, reg *quirk.Registry) *Hub {
	return &Hub{
		logger:   logger.With("component", "hub"),
		bus:      eb,
		store:    st,
		source:   src,
		registry: reg,
		quirks:   make(map[string]quirk.Quirk),
		defs:     make(map[string]*quirk.Definition),
		lastSeen: make(map[string]time.Time),
	}
}

// Start seeds the device table from the devices directory, instantiates
// quirks for every known device, and attaches the source callbacks.
func (h *Hub) Start(devicesDir string) error {
	entries, err := LoadDeviceDir(devicesDir, h.logger)
	if err != nil {
		return fmt.Errorf("hub: %w", err)
	}
	for _, e := range entries {
		if err := h.seedDevice(e); err != nil {
			return err
		}
	}

	devices, err := h.store.ListDevices()
	if err != nil {
		return fmt.Errorf("hub: list devices: %w", err)
	}
	for _, dev := range devices {
		h.attachQuirk(dev)
	}

	h.source.OnClusterCommand(h.handleClusterCommand)
	h.source.OnAttributeReport(h.handleAttributeReport)

	h.logger.Info("hub started", "devices", len(devices), "quirks", len(h.quirks))
	return nil
}

// seedDevice inserts a declared device into the store, preserving any
// existing record's history.
func (h *Hub) seedDevice(e DeviceEntry) error {
	_, err := h.store.GetDevice(e.IEEE)
	if err == nil {
		return h.store.UpdateDevice(e.IEEE, func(dev *store.Device) error {
			dev.Manufacturer = e.Manufacturer
			dev.Model = e.Model
			dev.Quirk = e.Quirk
			if e.FriendlyName != "" {
				dev.FriendlyName = e.FriendlyName
			}
			return nil
		})
	}
	if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("hub: seed %s: %w", e.IEEE, err)
	}
	return h.store.SaveDevice(&store.Device{
		IEEEAddress:  e.IEEE,
		Manufacturer: e.Manufacturer,
		Model:        e.Model,
		FriendlyName: e.FriendlyName,
		Quirk:        e.Quirk,
		FirstSeen:    time.Now(),
	})
}

func (h *Hub) attachQuirk(dev *store.Device) {
	deps := quirk.Deps{Logger: h.logger, Bus: h.bus, Store: h.store, Source: h.source}
	q, def, err := h.registry.Create(dev, deps)
	if err != nil {
		// Devices without a quirk stay tracked for LastSeen only.
		h.logger.Debug("no quirk for device", "ieee", dev.IEEEAddress, "err", err)
		return
	}
	h.mu.Lock()
	if old := h.quirks[dev.IEEEAddress]; old != nil {
		old.Close()
	}
	h.quirks[dev.IEEEAddress] = q
	h.defs[dev.IEEEAddress] = def
	h.mu.Unlock()
	h.logger.Info("quirk attached", "ieee", dev.IEEEAddress, "quirk", def.Name)
}

func (h *Hub) handleClusterCommand(ev source.ClusterCommandEvent) {
	h.touch(ev.IEEE)
	h.mu.RLock()
	q := h.quirks[ev.IEEE]
	h.mu.RUnlock()
	if q == nil {
		h.logger.Debug("command from unmanaged device", "ieee", ev.IEEE, "cluster", fmt.Sprintf("0x%04X", ev.Cluster))
		return
	}
	q.HandleClusterCommand(ev)
}

func (h *Hub) handleAttributeReport(ev source.AttributeReportEvent) {
	h.touch(ev.IEEE)
	h.mu.RLock()
	q := h.quirks[ev.IEEE]
	h.mu.RUnlock()
	if q == nil {
		h.logger.Debug("report from unmanaged device", "ieee", ev.IEEE, "cluster", fmt.Sprintf("0x%04X", ev.Cluster))
		return
	}
	q.HandleAttributeReport(ev)
}

// touch records device activity, persisting LastSeen at most once per
// interval per device.
func (h *Hub) touch(ieee string) {
	now := time.Now()
	h.seenMu.Lock()
	last, ok := h.lastSeen[ieee]
	if ok && now.Sub(last) < lastSeenInterval {
		h.seenMu.Unlock()
		return
	}
	h.lastSeen[ieee] = now
	h.seenMu.Unlock()

	err := h.store.UpdateDevice(ieee, func(dev *store.Device) error {
		dev.LastSeen = now
		return nil
	})
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.logger.Error("persist last seen", "ieee", ieee, "err", err)
	}
	h.bus.Emit(bus.Event{Type: bus.EventDeviceSeen, Data: bus.DeviceSeenData{IEEE: ieee, Time: now}})
}

// Registry returns the quirk definition registry.
func (h *Hub) Registry() *quirk.Registry {
	return h.registry
}

// Devices lists all known devices.
func (h *Hub) Devices() ([]*store.Device, error) {
	return h.store.ListDevices()
}

// Device returns one device record.
func (h *Hub) Device(ieee string) (*store.Device, error) {
	return h.store.GetDevice(ieee)
}

// QuirkFor returns the quirk bound to a device, or nil.
func (h *Hub) QuirkFor(ieee string) quirk.Quirk {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.quirks[ieee]
}

// DefinitionFor returns the quirk definition bound to a device, or nil.
func (h *Hub) DefinitionFor(ieee string) *quirk.Definition {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.defs[ieee]
}

// ValveFor returns the valve controller for a device, if its quirk
// implements one.
func (h *Hub) ValveFor(ieee string) (quirk.ValveController, bool) {
	h.mu.RLock()
	q := h.quirks[ieee]
	h.mu.RUnlock()
	vc, ok := q.(quirk.ValveController)
	return vc, ok
}

// Rename sets a device's friendly name and rebinds its quirk so bus
// payloads carry the new name.
func (h *Hub) Rename(ieee, name string) error {
	err := h.store.UpdateDevice(ieee, func(dev *store.Device) error {
		dev.FriendlyName = name
		return nil
	})
	if err != nil {
		return fmt.Errorf("hub: rename %s: %w", ieee, err)
	}
	dev, err := h.store.GetDevice(ieee)
	if err != nil {
		return err
	}
	h.attachQuirk(dev)
	h.bus.Emit(bus.Event{Type: bus.EventDeviceRenamed, Data: bus.DeviceSeenData{IEEE: ieee, Time: time.Now()}})
	return nil
}

// Close shuts down all quirks.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ieee, q := range h.quirks {
		q.Close()
		delete(h.quirks, ieee)
		delete(h.defs, ieee)
	}
}
