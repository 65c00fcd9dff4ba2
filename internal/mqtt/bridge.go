//go:build !no_mqtt

// Package mqtt bridges the hub's event bus to an MQTT broker with Home
// Assistant autodiscovery. Gestures surface as the device's "action"
// property; calibrated valves accept position and limit commands on the
// device's set topic.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/armellarcier/benew-zha-quirks/internal/bus"
	"github.com/armellarcier/benew-zha-quirks/internal/quirk"
	"github.com/armellarcier/benew-zha-quirks/internal/store"
)

// Config holds MQTT bridge configuration.
type Config struct {
	Broker      string
	Username    string
	Password    string
	TopicPrefix string
}

// DeviceHub is the hub surface the bridge needs.
type DeviceHub interface {
	Devices() ([]*store.Device, error)
	Device(ieee string) (*store.Device, error)
	DefinitionFor(ieee string) *quirk.Definition
	ValveFor(ieee string) (quirk.ValveController, bool)
}

// Bridge connects the device hub to MQTT with HA autodiscovery.
type Bridge struct {
	client pahomqtt.Client
	hub    DeviceHub
	events *bus.EventBus
	prefix string
	logger *slog.Logger
	unsub  func()
	ctx    context.Context
	cancel context.CancelFunc

	// Per-device state accumulator.
	mu     sync.Mutex
	states map[string]map[string]any // IEEE -> property map
}

// NewBridge creates and connects an MQTT bridge.
func NewBridge(h DeviceHub, eb *bus.EventBus, cfg Config, logger *slog.Logger) (*Bridge, error) {
	ctx, cancel := context.WithCancel(context.Background())
	b := &Bridge{
		hub:    h,
		events: eb,
		prefix: cfg.TopicPrefix,
		logger: logger.With("component", "mqtt"),
		states: make(map[string]map[string]any),
		ctx:    ctx,
		cancel: cancel,
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID("zha-quirkd").
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(cfg.TopicPrefix+"/bridge/state", "offline", 1, true).
		SetOnConnectHandler(func(_ pahomqtt.Client) {
			b.logger.Info("MQTT connected")
			b.publishBridgeState("online")
			b.publishAllDiscovery()
			b.subscribeCommands()
		}).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
			b.logger.Warn("MQTT connection lost", "err", err)
		})

	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		cancel()
		return nil, fmt.Errorf("mqtt connect timeout")
	}
	if err := token.Error(); err != nil {
		cancel()
		return nil, fmt.Errorf("mqtt connect: %w", err)
	}

	b.client = client
	return b, nil
}

// Start subscribes to bus events and begins MQTT publishing.
func (b *Bridge) Start() {
	b.unsub = b.events.OnAll(b.handleEvent)
	b.logger.Info("MQTT bridge started", "prefix", b.prefix)
}

// Stop publishes offline state, unsubscribes, and disconnects.
func (b *Bridge) Stop() {
	b.cancel()
	if b.unsub != nil {
		b.unsub()
	}
	b.publishBridgeState("offline")
	b.client.Disconnect(1000)
	b.logger.Info("MQTT bridge stopped")
}

func (b *Bridge) handleEvent(event bus.Event) {
	switch event.Type {
	case bus.EventGesture:
		if d, ok := event.Data.(bus.GestureData); ok {
			b.updateAndPublishState(d.IEEE, "action", d.Gesture)
		}
	case bus.EventPropertyUpdate:
		if d, ok := event.Data.(bus.PropertyData); ok {
			b.updateAndPublishState(d.IEEE, d.Property, d.Value)
		}
	case bus.EventDeviceRenamed:
		// Topic names derive from the friendly name, so discovery and
		// subscriptions have to move with it.
		if d, ok := event.Data.(bus.DeviceSeenData); ok {
			b.handleRename(d.IEEE)
		}
	}
}

func (b *Bridge) updateAndPublishState(ieee, prop string, value any) {
	b.mu.Lock()
	state, ok := b.states[ieee]
	if !ok {
		state = make(map[string]any)
		b.states[ieee] = state
	}
	state[prop] = value

	dev, err := b.hub.Device(ieee)
	if err == nil && !dev.LastSeen.IsZero() {
		state["last_seen"] = dev.LastSeen.Format(time.RFC3339)
	}

	payload := mustJSON(state)
	b.mu.Unlock()

	topic := b.prefix + "/" + b.topicName(ieee)
	b.publish(topic, payload, true)
}

func (b *Bridge) handleRename(ieee string) {
	dev, err := b.hub.Device(ieee)
	if err != nil {
		return
	}
	b.publishDeviceDiscovery(dev)
	b.subscribeDeviceCommands(dev)
	// Republish accumulated state on the new topic.
	b.mu.Lock()
	state := b.states[ieee]
	var payload []byte
	if state != nil {
		payload = mustJSON(state)
	}
	b.mu.Unlock()
	if payload != nil {
		b.publish(b.prefix+"/"+deviceTopicName(dev), payload, true)
	}
}

func (b *Bridge) publishBridgeState(state string) {
	b.publish(b.prefix+"/bridge/state", []byte(state), true)
}

func (b *Bridge) publishAllDiscovery() {
	devices, err := b.hub.Devices()
	if err != nil {
		b.logger.Error("list devices for discovery", "err", err)
		return
	}
	for _, dev := range devices {
		b.publishDeviceDiscovery(dev)
	}
}

func (b *Bridge) publishDeviceDiscovery(dev *store.Device) {
	def := b.hub.DefinitionFor(dev.IEEEAddress)
	if def == nil {
		return
	}
	_, isValve := b.hub.ValveFor(dev.IEEEAddress)
	for _, msg := range buildDiscovery(dev, def, isValve, b.prefix) {
		b.publish(msg.Topic, msg.Payload, true)
	}
	b.logger.Info("published HA discovery", "ieee", dev.IEEEAddress, "name", deviceDisplayName(dev))
}

func (b *Bridge) subscribeCommands() {
	devices, err := b.hub.Devices()
	if err != nil {
		b.logger.Error("list devices for command subscription", "err", err)
		return
	}
	for _, dev := range devices {
		if _, ok := b.hub.ValveFor(dev.IEEEAddress); !ok {
			continue
		}
		b.subscribeDeviceCommands(dev)
	}
}

func (b *Bridge) subscribeDeviceCommands(dev *store.Device) {
	topic := b.prefix + "/" + deviceTopicName(dev) + "/set"
	ieee := dev.IEEEAddress
	b.client.Subscribe(topic, 1, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		b.handleCommand(ieee, msg.Payload())
	})
}

func (b *Bridge) handleCommand(ieee string, payload []byte) {
	vc, ok := b.hub.ValveFor(ieee)
	if !ok {
		b.logger.Warn("command for non-valve device", "ieee", ieee)
		return
	}

	var cmd map[string]interface{}
	if err := json.Unmarshal(payload, &cmd); err != nil {
		b.logger.Warn("invalid command JSON", "ieee", ieee, "err", err)
		return
	}

	ctx, cancel := context.WithTimeout(b.ctx, 10*time.Second)
	defer cancel()

	if pos, ok := toFloat64(cmd["valve_position"]); ok {
		if err := vc.SetPosition(ctx, clampPercent(pos)); err != nil {
			b.logger.Warn("valve position command failed", "ieee", ieee, "err", err)
		}
	}

	minV, hasMin := toFloat64(cmd["valve_min_limit"])
	maxV, hasMax := toFloat64(cmd["valve_max_limit"])
	if hasMin || hasMax {
		curMin, curMax := vc.Limits()
		if !hasMin {
			minV = float64(curMin)
		}
		if !hasMax {
			maxV = float64(curMax)
		}
		if err := vc.SetLimits(ctx, clampPercent(minV), clampPercent(maxV)); err != nil {
			b.logger.Warn("valve limits command failed", "ieee", ieee, "err", err)
		}
	}
}

func (b *Bridge) publish(topic string, payload []byte, retained bool) {
	token := b.client.Publish(topic, 1, retained, payload)
	go func() {
		if !token.WaitTimeout(5 * time.Second) {
			b.logger.Warn("MQTT publish timeout", "topic", topic)
		} else if err := token.Error(); err != nil {
			b.logger.Warn("MQTT publish error", "topic", topic, "err", err)
		}
	}()
}

// topicName returns the MQTT topic name for a device by IEEE.
func (b *Bridge) topicName(ieee string) string {
	dev, err := b.hub.Device(ieee)
	if err != nil {
		return ieee
	}
	return deviceTopicName(dev)
}

func clampPercent(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return uint8(v)
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	default:
		return 0, false
	}
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
