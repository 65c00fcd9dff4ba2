//go:build !no_automation

package main

import (
	"log/slog"

	"github.com/armellarcier/benew-zha-quirks/internal/automation"
	"github.com/armellarcier/benew-zha-quirks/internal/bus"
	"github.com/armellarcier/benew-zha-quirks/internal/hub"
	"github.com/armellarcier/benew-zha-quirks/internal/web"
)

type autoStopper struct {
	engine *automation.Engine
}

func (a *autoStopper) Stop() {
	if a.engine != nil {
		a.engine.Stop()
	}
}

func initAutomation(h *hub.Hub, events *bus.EventBus, cfg *Config, logger *slog.Logger) (*autoStopper, []web.ServerOption) {
	scriptMgr, err := automation.NewManager(cfg.ScriptsDir)
	if err != nil {
		logger.Error("create script manager", "err", err)
		return &autoStopper{}, nil
	}

	engine := automation.NewEngine(events, h, scriptMgr, logger)
	engine.Start()

	opts := []web.ServerOption{
		web.WithAutomation(engine, scriptMgr),
	}
	return &autoStopper{engine: engine}, opts
}
