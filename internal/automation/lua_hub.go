//go:build !no_automation

package automation

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"

	"github.com/armellarcier/benew-zha-quirks/internal/store"
)

// scriptCtx returns the context attached to the Lua state, falling back
// to Background for states without one.
func scriptCtx(L *lua.LState) context.Context {
	if ctx := L.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// registerHubModule installs the `hub` global: device listing and valve
// control. Targets may be an IEEE address or a friendly name.
func registerHubModule(L *lua.LState, e *Engine) {
	mod := L.NewTable()

	// hub.devices() -> array of device tables
	mod.RawSetString("devices", L.NewFunction(func(L *lua.LState) int {
		devices, err := e.devices.Devices()
		if err != nil {
			L.Push(lua.LNil)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		result := L.NewTable()
		for i, d := range devices {
			t := L.NewTable()
			t.RawSetString("ieee", lua.LString(d.IEEEAddress))
			t.RawSetString("manufacturer", lua.LString(d.Manufacturer))
			t.RawSetString("model", lua.LString(d.Model))
			t.RawSetString("friendly_name", lua.LString(d.FriendlyName))
			result.RawSetInt(i+1, t)
		}
		L.Push(result)
		return 1
	}))

	// hub.set_valve(target, position) -> ok, err
	mod.RawSetString("set_valve", L.NewFunction(func(L *lua.LState) int {
		target := L.CheckString(1)
		pos := L.CheckNumber(2)

		dev, err := e.resolveDevice(target)
		if err != nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		vc, ok := e.devices.ValveFor(dev.IEEEAddress)
		if !ok {
			L.Push(lua.LFalse)
			L.Push(lua.LString("device is not a valve: " + target))
			return 2
		}
		if err := vc.SetPosition(scriptCtx(L), uint8(pos)); err != nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))

	// hub.set_valve_limits(target, min, max) -> ok, err
	mod.RawSetString("set_valve_limits", L.NewFunction(func(L *lua.LState) int {
		target := L.CheckString(1)
		min := L.CheckNumber(2)
		max := L.CheckNumber(3)

		dev, err := e.resolveDevice(target)
		if err != nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		vc, ok := e.devices.ValveFor(dev.IEEEAddress)
		if !ok {
			L.Push(lua.LFalse)
			L.Push(lua.LString("device is not a valve: " + target))
			return 2
		}
		if err := vc.SetLimits(scriptCtx(L), uint8(min), uint8(max)); err != nil {
			L.Push(lua.LFalse)
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LTrue)
		return 1
	}))

	L.SetGlobal("hub", mod)
}

// resolveDevice looks a device up by IEEE address first, then by
// friendly name.
func (e *Engine) resolveDevice(target string) (*store.Device, error) {
	devices, err := e.devices.Devices()
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.IEEEAddress == target {
			return d, nil
		}
	}
	for _, d := range devices {
		if d.FriendlyName == target {
			return d, nil
		}
	}
	return nil, fmt.Errorf("device not found: %s", target)
}
