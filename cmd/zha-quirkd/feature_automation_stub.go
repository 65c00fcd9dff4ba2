//go:build no_automation

package main

import (
	"log/slog"

	"github.com/armellarcier/benew-zha-quirks/internal/bus"
	"github.com/armellarcier/benew-zha-quirks/internal/hub"
	"github.com/armellarcier/benew-zha-quirks/internal/web"
)

type autoStopper struct{}

func (a *autoStopper) Stop() {}

func initAutomation(_ *hub.Hub, _ *bus.EventBus, _ *Config, _ *slog.Logger) (*autoStopper, []web.ServerOption) {
	return &autoStopper{}, nil
}
