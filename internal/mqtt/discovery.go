//go:build !no_mqtt

package mqtt

import (
	"fmt"
	"strings"

	"github.com/armellarcier/benew-zha-quirks/internal/quirk"
	"github.com/armellarcier/benew-zha-quirks/internal/store"
)

// discoveryMsg is a Home Assistant MQTT discovery payload.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/sensor/zigbee_f0cc.../action/config"
	Payload []byte // JSON, empty means delete
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
}

// haDiscovery is a generic HA discovery payload.
type haDiscovery struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	CommandTopic      string   `json:"command_topic,omitempty"`
	CommandTemplate   string   `json:"command_template,omitempty"`
	AvailabilityTopic string   `json:"availability_topic"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	Icon              string   `json:"icon,omitempty"`
	Min               *int     `json:"min,omitempty"`
	Max               *int     `json:"max,omitempty"`
	Options           []string `json:"options,omitempty"`
	Device            haDevice `json:"device"`
}

// deviceDisplayName returns a display name for the device.
func deviceDisplayName(dev *store.Device) string {
	if dev.FriendlyName != "" {
		return dev.FriendlyName
	}
	if dev.Manufacturer != "" && dev.Model != "" {
		return dev.Manufacturer + " " + dev.Model
	}
	if dev.Model != "" {
		return dev.Model
	}
	return dev.IEEEAddress
}

// deviceIdentifier returns the unique identifier for HA device registry.
func deviceIdentifier(dev *store.Device) string {
	return "zigbee_" + strings.ReplaceAll(dev.IEEEAddress, ":", "")
}

// deviceTopicName returns the topic name for a device (friendly name or IEEE).
func deviceTopicName(dev *store.Device) string {
	if dev.FriendlyName != "" {
		// Sanitize: lowercase and keep only safe chars for MQTT topics.
		name := strings.ToLower(dev.FriendlyName)
		name = strings.Map(func(r rune) rune {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
				return r
			}
			return '_'
		}, name)
		return name
	}
	return strings.ReplaceAll(dev.IEEEAddress, ":", "")
}

// buildDiscovery generates HA discovery messages for a device from its
// quirk definition. Remotes expose an action sensor listing the gesture
// catalog; valves expose a position number plus state sensors.
func buildDiscovery(dev *store.Device, def *quirk.Definition, isValve bool, prefix string) []discoveryMsg {
	if def == nil {
		return nil
	}

	avail := prefix + "/bridge/state"
	stateTopic := prefix + "/" + deviceTopicName(dev)
	cmdTopic := stateTopic + "/set"
	nodeID := deviceIdentifier(dev)
	displayName := deviceDisplayName(dev)

	haDev := haDevice{
		Identifiers:  []string{nodeID},
		Manufacturer: dev.Manufacturer,
		Model:        dev.Model,
		Name:         displayName,
	}

	var msgs []discoveryMsg

	if len(def.Actions) > 0 {
		msgs = append(msgs, discoveryMsg{
			Topic: fmt.Sprintf("homeassistant/sensor/%s/action/config", nodeID),
			Payload: mustJSON(haDiscovery{
				Name:              displayName + " Action",
				UniqueID:          nodeID + "_action",
				StateTopic:        stateTopic,
				AvailabilityTopic: avail,
				ValueTemplate:     "{{ value_json.action }}",
				Icon:              "mdi:gesture-double-tap",
				Options:           def.Actions,
				Device:            haDev,
			}),
		})
	}

	if isValve {
		lo, hi := 0, 100
		msgs = append(msgs,
			discoveryMsg{
				Topic: fmt.Sprintf("homeassistant/number/%s/valve_position/config", nodeID),
				Payload: mustJSON(haDiscovery{
					Name:              displayName + " Valve Position",
					UniqueID:          nodeID + "_valve_position",
					StateTopic:        stateTopic,
					CommandTopic:      cmdTopic,
					CommandTemplate:   `{"valve_position": {{ value }}}`,
					AvailabilityTopic: avail,
					ValueTemplate:     "{{ value_json.virtual_valve_position }}",
					UnitOfMeasurement: "%",
					Min:               &lo,
					Max:               &hi,
					Device:            haDev,
				}),
			},
			discoveryMsg{
				Topic: fmt.Sprintf("homeassistant/sensor/%s/valve_opening_degree/config", nodeID),
				Payload: mustJSON(haDiscovery{
					Name:              displayName + " Valve Opening",
					UniqueID:          nodeID + "_valve_opening_degree",
					StateTopic:        stateTopic,
					AvailabilityTopic: avail,
					ValueTemplate:     "{{ value_json.valve_opening_degree }}",
					UnitOfMeasurement: "%",
					StateClass:        "measurement",
					Device:            haDev,
				}),
			},
		)
	}

	return msgs
}

// buildRemoveDiscovery generates empty retained messages to remove a
// device from HA.
func buildRemoveDiscovery(dev *store.Device) []discoveryMsg {
	nodeID := deviceIdentifier(dev)

	components := []struct{ comp, obj string }{
		{"sensor", "action"},
		{"sensor", "valve_opening_degree"},
		{"number", "valve_position"},
	}

	var msgs []discoveryMsg
	for _, c := range components {
		msgs = append(msgs, discoveryMsg{
			Topic:   fmt.Sprintf("homeassistant/%s/%s/%s/config", c.comp, nodeID, c.obj),
			Payload: nil, // empty retained = delete
		})
	}
	return msgs
}
