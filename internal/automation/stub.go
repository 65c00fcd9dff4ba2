//go:build no_automation

// Stub implementations used when the binary is built without Lua
// automation support.
package automation

import (
	"errors"
	"log/slog"

	"github.com/armellarcier/benew-zha-quirks/internal/bus"
	"github.com/armellarcier/benew-zha-quirks/internal/quirk"
	"github.com/armellarcier/benew-zha-quirks/internal/store"
)

var errDisabled = errors.New("automation support not compiled in")

// DeviceService is the hub surface exposed to scripts.
type DeviceService interface {
	Devices() ([]*store.Device, error)
	ValveFor(ieee string) (quirk.ValveController, bool)
}

// ScriptMeta holds user-editable metadata for a script.
type ScriptMeta struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// Script represents a single automation script stored on disk.
type Script struct {
	ID       string     `json:"id"`
	Meta     ScriptMeta `json:"meta"`
	LuaCode  string     `json:"lua_code"`
	FilePath string     `json:"-"`
}

// RunResult is the result of a one-shot script execution.
type RunResult struct {
	OK       bool     `json:"ok"`
	Error    string   `json:"error,omitempty"`
	Logs     []string `json:"logs"`
	Duration string   `json:"duration"`
}

// Manager is a no-op script manager.
type Manager struct{}

func NewManager(dir string) (*Manager, error) { return &Manager{}, nil }

func (m *Manager) List() ([]*Script, error)       { return nil, nil }
func (m *Manager) Get(id string) (*Script, error) { return nil, errDisabled }
func (m *Manager) Save(s *Script) (*Script, error) {
	return nil, errDisabled
}
func (m *Manager) Delete(id string) error { return errDisabled }

// Engine is a no-op automation engine.
type Engine struct{}

func NewEngine(events *bus.EventBus, devices DeviceService, mgr *Manager, logger *slog.Logger) *Engine {
	return &Engine{}
}

func (e *Engine) Start()                      {}
func (e *Engine) Stop()                       {}
func (e *Engine) ReloadScript(id string) error { return errDisabled }
func (e *Engine) StopScript(id string)        {}
func (e *Engine) RunScript(id string) *RunResult {
	return &RunResult{OK: false, Error: errDisabled.Error()}
}
func (e *Engine) RunLuaCode(code string) *RunResult {
	return &RunResult{OK: false, Error: errDisabled.Error()}
}
