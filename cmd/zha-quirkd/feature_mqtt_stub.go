//go:build no_mqtt

package main

import (
	"log/slog"

	"github.com/armellarcier/benew-zha-quirks/internal/bus"
	"github.com/armellarcier/benew-zha-quirks/internal/hub"
)

type mqttStopper struct{}

func (m *mqttStopper) Stop() {}

func initMQTT(_ *hub.Hub, _ *bus.EventBus, _ *Config, _ *slog.Logger) *mqttStopper {
	return &mqttStopper{}
}
