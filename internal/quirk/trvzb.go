package quirk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/armellarcier/benew-zha-quirks/internal/bus"
	"github.com/armellarcier/benew-zha-quirks/internal/source"
	"github.com/armellarcier/benew-zha-quirks/internal/store"
	"github.com/armellarcier/benew-zha-quirks/internal/valve"
	"github.com/armellarcier/benew-zha-quirks/internal/zcl"
)

func trvzbDefinition() *Definition {
	return &Definition{
		Name:         "trvzb",
		Manufacturer: "SONOFF",
		Models:       []string{"TRVZB"},
		New:          newTrvzb,
	}
}

// trvzb wraps a Sonoff TRVZB radiator valve with a calibrated virtual
// position scale. The device only understands physical opening and
// closing degrees; the quirk translates between those and the virtual
// 0-100 scale, persisting the calibration across restarts.
type trvzb struct {
	ieee   string
	name   string
	logger *slog.Logger
	bus    *bus.EventBus
	store  store.Store
	source source.Source

	mu  sync.Mutex
	cal valve.Calibration
}

func newTrvzb(dev *store.Device, deps Deps) (Quirk, error) {
	t := &trvzb{
		ieee:   dev.IEEEAddress,
		name:   displayName(dev),
		logger: deps.Logger.With("component", "trvzb", "ieee", dev.IEEEAddress),
		bus:    deps.Bus,
		store:  deps.Store,
		source: deps.Source,
		cal:    valve.DefaultCalibration(),
	}

	saved, err := deps.Store.GetCalibration(dev.IEEEAddress)
	switch {
	case err == nil:
		t.cal = valve.Calibration{MinLimit: saved.MinLimit, MaxLimit: saved.MaxLimit}
		t.logger.Info("calibration loaded", "min", t.cal.MinLimit, "max", t.cal.MaxLimit)
	case errors.Is(err, store.ErrNotFound):
		t.logger.Info("no saved calibration, using full range")
	default:
		return nil, fmt.Errorf("trvzb %s: load calibration: %w", dev.IEEEAddress, err)
	}
	return t, nil
}

func (t *trvzb) HandleClusterCommand(ev source.ClusterCommandEvent) {
	t.logger.Debug("ignoring cluster command", "cluster", fmt.Sprintf("0x%04X", ev.Cluster), "command", ev.Command)
}

func (t *trvzb) HandleAttributeReport(ev source.AttributeReportEvent) {
	if ev.Cluster != zcl.ClusterSonoffThermostat {
		return
	}
	def := zcl.Lookup(ev.Cluster)
	attr := def.FindAttribute(ev.AttrID)
	if attr == nil {
		t.logger.Debug("report for unknown attribute", "attr", fmt.Sprintf("0x%04X", ev.AttrID))
		return
	}
	val, _, err := zcl.DecodeValue(attr.Type, ev.Value)
	if err != nil {
		t.logger.Warn("bad attribute report", "attr", attr.Name, "err", err)
		return
	}

	t.publishProperty(attr.Name, val)

	// A physical position report also moves the virtual position.
	if ev.AttrID == zcl.AttrValveOpeningDegree {
		real, ok := val.(uint8)
		if !ok {
			return
		}
		t.mu.Lock()
		virtual := t.cal.RealToVirtual(real)
		t.mu.Unlock()
		t.publishProperty("virtual_valve_position", virtual)
	}
}

func (t *trvzb) publishProperty(name string, val interface{}) {
	t.bus.Emit(bus.Event{
		Type: bus.EventPropertyUpdate,
		Data: bus.PropertyData{IEEE: t.ieee, Device: t.name, Property: name, Value: val},
	})
}

// SetPosition moves the valve to a virtual position. The device receives
// the calibrated physical degree plus its complement, the way the TRVZB
// firmware expects both travel directions to be written together.
func (t *trvzb) SetPosition(ctx context.Context, virtual uint8) error {
	if virtual > 100 {
		return fmt.Errorf("trvzb: position %d out of range 0-100", virtual)
	}
	t.mu.Lock()
	real := t.cal.VirtualToReal(virtual)
	t.mu.Unlock()

	err := t.source.WriteAttributes(ctx, t.ieee, 1, zcl.ClusterSonoffThermostat, []source.WriteRecord{
		{AttrID: zcl.AttrValveOpeningDegree, DataType: zcl.TypeUint8, Value: []byte{real}},
		{AttrID: zcl.AttrValveClosingDegree, DataType: zcl.TypeUint8, Value: []byte{100 - real}},
	})
	if err != nil {
		return fmt.Errorf("trvzb %s: set position: %w", t.ieee, err)
	}

	t.logger.Info("valve position set", "virtual", virtual, "real", real)
	t.publishProperty("virtual_valve_position", virtual)
	return nil
}

// SetLimits updates the calibration range and persists it.
func (t *trvzb) SetLimits(ctx context.Context, minLimit, maxLimit uint8) error {
	cal := valve.Calibration{MinLimit: minLimit, MaxLimit: maxLimit}
	if err := cal.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := t.store.SaveCalibration(t.ieee, &store.Calibration{
		MinLimit: minLimit,
		MaxLimit: maxLimit,
		Updated:  time.Now(),
	})
	if err != nil {
		return fmt.Errorf("trvzb %s: save calibration: %w", t.ieee, err)
	}

	t.mu.Lock()
	t.cal = cal
	t.mu.Unlock()

	t.logger.Info("calibration updated", "min", minLimit, "max", maxLimit)
	t.publishProperty("valve_min_limit", minLimit)
	t.publishProperty("valve_max_limit", maxLimit)
	return nil
}

// Limits returns the current calibration range.
func (t *trvzb) Limits() (uint8, uint8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cal.MinLimit, t.cal.MaxLimit
}

func (t *trvzb) Close() {}
