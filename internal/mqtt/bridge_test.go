//go:build !no_mqtt

package mqtt

import (
	"encoding/json"
	"testing"

	"github.com/armellarcier/benew-zha-quirks/internal/quirk"
	"github.com/armellarcier/benew-zha-quirks/internal/store"
)

func remoteDefinition() *quirk.Definition {
	return &quirk.Definition{
		Name:         "rodret",
		Manufacturer: "IKEA of Sweden",
		Models:       []string{"RODRET Dimmer"},
		Actions:      []string{"on_short_press", "on_double_press", "off_short_press"},
	}
}

func valveDefinition() *quirk.Definition {
	return &quirk.Definition{
		Name:         "trvzb",
		Manufacturer: "SONOFF",
		Models:       []string{"TRVZB"},
	}
}

func TestDiscoveryActionSensor(t *testing.T) {
	dev := &store.Device{
		IEEEAddress:  "f0:cc:8f:ff:fe:12:3a:4b",
		Manufacturer: "IKEA of Sweden",
		Model:        "RODRET Dimmer",
		FriendlyName: "Bedroom Remote",
	}

	msgs := buildDiscovery(dev, remoteDefinition(), false, "zha-quirks")
	if len(msgs) != 1 {
		t.Fatalf("messages = %d, want 1", len(msgs))
	}

	if msgs[0].Topic != "homeassistant/sensor/zigbee_f0cc8ffffe123a4b/action/config" {
		t.Fatalf("topic = %q", msgs[0].Topic)
	}

	var payload haDiscovery
	if err := json.Unmarshal(msgs[0].Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Name != "Bedroom Remote Action" {
		t.Errorf("name = %q", payload.Name)
	}
	if payload.UniqueID != "zigbee_f0cc8ffffe123a4b_action" {
		t.Errorf("unique_id = %q", payload.UniqueID)
	}
	if payload.StateTopic != "zha-quirks/bedroom_remote" {
		t.Errorf("state_topic = %q", payload.StateTopic)
	}
	if payload.AvailabilityTopic != "zha-quirks/bridge/state" {
		t.Errorf("availability_topic = %q", payload.AvailabilityTopic)
	}
	if len(payload.Options) != 3 {
		t.Errorf("options = %v, want the gesture catalog", payload.Options)
	}
	if payload.Device.Manufacturer != "IKEA of Sweden" {
		t.Errorf("device.manufacturer = %q", payload.Device.Manufacturer)
	}
}

func TestDiscoveryValveEntities(t *testing.T) {
	dev := &store.Device{
		IEEEAddress:  "70:ac:08:ff:fe:aa:bb:cc",
		Manufacturer: "SONOFF",
		Model:        "TRVZB",
		FriendlyName: "Office Valve",
	}

	msgs := buildDiscovery(dev, valveDefinition(), true, "zha-quirks")
	topics := extractTopics(msgs)

	if !topics["homeassistant/number/zigbee_70ac08fffeaabbcc/valve_position/config"] {
		t.Error("valve position number discovery missing")
	}
	if !topics["homeassistant/sensor/zigbee_70ac08fffeaabbcc/valve_opening_degree/config"] {
		t.Error("valve opening sensor discovery missing")
	}
	if topics["homeassistant/sensor/zigbee_70ac08fffeaabbcc/action/config"] {
		t.Error("valve must not expose an action sensor")
	}

	for _, m := range msgs {
		if m.Topic != "homeassistant/number/zigbee_70ac08fffeaabbcc/valve_position/config" {
			continue
		}
		var payload haDiscovery
		if err := json.Unmarshal(m.Payload, &payload); err != nil {
			t.Fatal(err)
		}
		if payload.CommandTopic != "zha-quirks/office_valve/set" {
			t.Errorf("command_topic = %q", payload.CommandTopic)
		}
		if payload.Min == nil || *payload.Min != 0 || payload.Max == nil || *payload.Max != 100 {
			t.Errorf("range = %v..%v, want 0..100", payload.Min, payload.Max)
		}
		return
	}
	t.Fatal("valve position discovery not found")
}

func TestDiscoveryWithoutDefinition(t *testing.T) {
	dev := &store.Device{IEEEAddress: "00:00:00:00:00:00:00:99"}
	if msgs := buildDiscovery(dev, nil, false, "zha-quirks"); len(msgs) != 0 {
		t.Errorf("messages = %d, want 0", len(msgs))
	}
}

func TestDeviceDisplayName(t *testing.T) {
	tests := []struct {
		name string
		dev  *store.Device
		want string
	}{
		{
			name: "friendly name",
			dev:  &store.Device{FriendlyName: "Bedroom Remote", Manufacturer: "IKEA of Sweden", Model: "RODRET Dimmer"},
			want: "Bedroom Remote",
		},
		{
			name: "manufacturer and model",
			dev:  &store.Device{Manufacturer: "SONOFF", Model: "TRVZB"},
			want: "SONOFF TRVZB",
		},
		{
			name: "model only",
			dev:  &store.Device{Model: "TRVZB"},
			want: "TRVZB",
		},
		{
			name: "IEEE fallback",
			dev:  &store.Device{IEEEAddress: "f0:cc:8f:ff:fe:12:3a:4b"},
			want: "f0:cc:8f:ff:fe:12:3a:4b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deviceDisplayName(tt.dev); got != tt.want {
				t.Errorf("deviceDisplayName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDeviceTopicName(t *testing.T) {
	tests := []struct {
		name string
		dev  *store.Device
		want string
	}{
		{
			name: "friendly name with spaces",
			dev:  &store.Device{FriendlyName: "Bedroom Remote", IEEEAddress: "f0:cc:8f:ff:fe:12:3a:4b"},
			want: "bedroom_remote",
		},
		{
			name: "IEEE fallback strips colons",
			dev:  &store.Device{IEEEAddress: "f0:cc:8f:ff:fe:12:3a:4b"},
			want: "f0cc8ffffe123a4b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deviceTopicName(tt.dev); got != tt.want {
				t.Errorf("deviceTopicName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRemoveDiscovery(t *testing.T) {
	dev := &store.Device{IEEEAddress: "f0:cc:8f:ff:fe:12:3a:4b"}
	msgs := buildRemoveDiscovery(dev)
	if len(msgs) == 0 {
		t.Fatal("expected removal messages")
	}
	for _, m := range msgs {
		if m.Payload != nil {
			t.Errorf("removal message should have nil payload, got %q for %s", m.Payload, m.Topic)
		}
		if m.Topic == "" {
			t.Error("removal message has empty topic")
		}
	}
}

func TestClampPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-5, 0},
		{0, 0},
		{42, 42},
		{100, 100},
		{150, 100},
	}
	for _, tt := range tests {
		if got := clampPercent(tt.in); got != tt.want {
			t.Errorf("clampPercent(%v) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestValveCommandParse(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		wantKey string
	}{
		{"position", `{"valve_position":75}`, "valve_position"},
		{"limits", `{"valve_min_limit":20,"valve_max_limit":80}`, "valve_min_limit"},
		{"combined", `{"valve_position":50,"valve_max_limit":90}`, "valve_position"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cmd map[string]interface{}
			if err := json.Unmarshal([]byte(tt.payload), &cmd); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if _, ok := toFloat64(cmd[tt.wantKey]); !ok {
				t.Errorf("expected numeric key %q in command", tt.wantKey)
			}
		})
	}
}

func TestMustJSON(t *testing.T) {
	result := mustJSON(map[string]string{"hello": "world"})
	var parsed map[string]string
	if err := json.Unmarshal(result, &parsed); err != nil {
		t.Fatalf("mustJSON output not valid JSON: %v", err)
	}
	if parsed["hello"] != "world" {
		t.Errorf("parsed value = %q", parsed["hello"])
	}
}

func extractTopics(msgs []discoveryMsg) map[string]bool {
	topics := make(map[string]bool)
	for _, m := range msgs {
		topics[m.Topic] = true
	}
	return topics
}
