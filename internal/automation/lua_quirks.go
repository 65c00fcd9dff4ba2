//go:build !no_automation

package automation

import (
	"time"

	lua "github.com/yuin/gopher-lua"
)

// maxHandlersPerScript bounds handler registration per VM.
const maxHandlersPerScript = 100

// registerQuirksModule installs the `quirks` global: event subscription,
// timers, and logging.
func registerQuirksModule(L *lua.LState, vm *scriptVM, e *Engine) {
	mod := L.NewTable()

	// quirks.on(event_type, filter, fn)
	// filter is a table with optional keys: ieee, gesture, property.
	mod.RawSetString("on", L.NewFunction(func(L *lua.LState) int {
		eventType := L.CheckString(1)
		filter := L.CheckTable(2)
		fn := L.CheckFunction(3)

		h := luaEventHandler{eventType: eventType, fn: fn}
		if v := filter.RawGetString("ieee"); v != lua.LNil {
			h.ieee = lua.LVAsString(v)
		}
		if v := filter.RawGetString("gesture"); v != lua.LNil {
			h.gesture = lua.LVAsString(v)
		}
		if v := filter.RawGetString("property"); v != lua.LNil {
			h.property = lua.LVAsString(v)
		}

		vm.mu.Lock()
		defer vm.mu.Unlock()
		if len(vm.handlers) >= maxHandlersPerScript {
			L.RaiseError("too many handlers (max %d)", maxHandlersPerScript)
			return 0
		}
		vm.handlers = append(vm.handlers, h)
		return 0
	}))

	// quirks.after(seconds, fn) runs fn once after the delay. The
	// callback executes on the VM's command loop.
	mod.RawSetString("after", L.NewFunction(func(L *lua.LState) int {
		seconds := L.CheckNumber(1)
		fn := L.CheckFunction(2)

		delay := time.Duration(float64(seconds) * float64(time.Second))
		go func() {
			select {
			case <-vm.ctx.Done():
				return
			case <-time.After(delay):
			}
			select {
			case <-vm.ctx.Done():
			case vm.commands <- func(L *lua.LState) {
				if err := L.CallByParam(lua.P{Fn: fn, NRet: 0, Protect: true}); err != nil {
					e.logger.Error("lua timer error", "err", err)
				}
			}:
			}
		}()
		return 0
	}))

	// quirks.log(msg)
	mod.RawSetString("log", L.NewFunction(func(L *lua.LState) int {
		msg := L.CheckString(1)
		e.logger.Info("script", "msg", msg)
		return 0
	}))

	L.SetGlobal("quirks", mod)
}
