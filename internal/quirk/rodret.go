package quirk

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/armellarcier/benew-zha-quirks/internal/bus"
	"github.com/armellarcier/benew-zha-quirks/internal/gesture"
	"github.com/armellarcier/benew-zha-quirks/internal/source"
	"github.com/armellarcier/benew-zha-quirks/internal/store"
	"github.com/armellarcier/benew-zha-quirks/internal/zcl"
)

func rodretDefinition() *Definition {
	return &Definition{
		Name:         "rodret",
		Manufacturer: "IKEA of Sweden",
		Models:       []string{"RODRET Dimmer", "RODRET wireless dimmer"},
		Actions:      gesture.Catalog(),
		New:          newRodret,
	}
}

// rodret turns the raw On/Off commands of an IKEA RODRET remote into
// click gestures. The remote sends a bare On or Off command per press;
// all multi-click, dual-press, and sequence semantics live in the
// gesture engine.
type rodret struct {
	ieee   string
	name   string
	logger *slog.Logger
	bus    *bus.EventBus
	engine *gesture.Engine
}

func newRodret(dev *store.Device, deps Deps) (Quirk, error) {
	r := &rodret{
		ieee:   dev.IEEEAddress,
		name:   displayName(dev),
		logger: deps.Logger.With("component", "rodret", "ieee", dev.IEEEAddress),
		bus:    deps.Bus,
	}
	r.engine = gesture.NewEngine(r.publish)
	return r, nil
}

func (r *rodret) publish(g gesture.Gesture) {
	r.logger.Info("gesture", "action", g.String())
	r.bus.Emit(bus.Event{
		Type: bus.EventGesture,
		Data: bus.GestureData{
			IEEE:    r.ieee,
			Device:  r.name,
			Gesture: g.String(),
			Time:    time.Now(),
		},
	})
}

func (r *rodret) HandleClusterCommand(ev source.ClusterCommandEvent) {
	if ev.Cluster != zcl.ClusterOnOff {
		r.logger.Debug("ignoring command on cluster", "cluster", fmt.Sprintf("0x%04X", ev.Cluster))
		return
	}

	var b gesture.Button
	switch ev.Command {
	case zcl.CmdOn:
		b = gesture.ButtonOn
	case zcl.CmdOff:
		b = gesture.ButtonOff
	default:
		// Move/stop from press-and-hold pass through untouched; the
		// click engine only consumes plain On/Off.
		r.logger.Debug("command not part of click detection", "command", fmt.Sprintf("0x%02X", ev.Command))
		return
	}

	if err := r.engine.Press(b); err != nil {
		r.logger.Warn("press rejected", "err", err)
	}
}

func (r *rodret) HandleAttributeReport(ev source.AttributeReportEvent) {
	// Battery and similar reports are not gesture input; publish the raw
	// value so dashboards can show it.
	def := zcl.Lookup(ev.Cluster)
	if def == nil {
		return
	}
	attr := def.FindAttribute(ev.AttrID)
	if attr == nil {
		return
	}
	val, _, err := zcl.DecodeValue(attr.Type, ev.Value)
	if err != nil {
		r.logger.Warn("bad attribute report", "attr", attr.Name, "err", err)
		return
	}
	r.bus.Emit(bus.Event{
		Type: bus.EventPropertyUpdate,
		Data: bus.PropertyData{IEEE: r.ieee, Device: r.name, Property: attr.Name, Value: val},
	})
}

func (r *rodret) Close() {
	r.engine.Stop()
}
