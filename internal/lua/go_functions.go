package lua

import (
	"context"
	"log"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// registerGoFunctions exposes the adapter control API to the given Lua state.
// All blocking helpers observe the script's context so a stop request wakes
// them up immediately.
func (e *Engine) registerGoFunctions(L *lua.LState, ctx context.Context) {
	L.SetGlobal("enable_adapter", L.NewFunction(e.luaEnableAdapter(ctx)))
	L.SetGlobal("disable_adapter", L.NewFunction(e.luaDisableAdapter(ctx)))
	L.SetGlobal("enable_all", L.NewFunction(e.luaEnableAll(ctx)))
	L.SetGlobal("disable_all", L.NewFunction(e.luaDisableAll(ctx)))
	L.SetGlobal("switch_adapters", L.NewFunction(e.luaSwitchAdapters(ctx)))
	L.SetGlobal("adapter_enabled", L.NewFunction(e.luaAdapterEnabled(ctx)))
	L.SetGlobal("adapters", L.NewFunction(e.luaAdapters(ctx)))
	L.SetGlobal("notify", L.NewFunction(e.luaNotify))
	L.SetGlobal("sleep", L.NewFunction(luaSleep(ctx)))
	L.SetGlobal("should_stop", L.NewFunction(luaShouldStop(ctx)))
	L.SetGlobal("print", L.NewFunction(luaPrint))
}

func luaPrint(L *lua.LState) int {
	log.Printf("[LUA] %s", L.ToString(1))
	return 0
}

// luaEnableAdapter enables an adapter by device id; returns ok, message.
func (e *Engine) luaEnableAdapter(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		res := e.adapters.Enable(ctx, L.ToString(1))
		L.Push(lua.LBool(res.Success))
		L.Push(lua.LString(res.Message))
		return 2
	}
}

// luaDisableAdapter disables an adapter by device id; returns ok, message.
func (e *Engine) luaDisableAdapter(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		res := e.adapters.Disable(ctx, L.ToString(1))
		L.Push(lua.LBool(res.Success))
		L.Push(lua.LString(res.Message))
		return 2
	}
}

// luaEnableAll enables every adapter; returns succeeded, failed counts.
func (e *Engine) luaEnableAll(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		res, err := e.adapters.EnableAll(ctx)
		if err != nil {
			L.Push(lua.LNumber(0))
			L.Push(lua.LNumber(0))
			return 2
		}
		L.Push(lua.LNumber(res.Succeeded))
		L.Push(lua.LNumber(res.Failed))
		return 2
	}
}

// luaDisableAll disables every adapter; returns succeeded, failed counts.
func (e *Engine) luaDisableAll(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		res, err := e.adapters.DisableAll(ctx)
		if err != nil {
			L.Push(lua.LNumber(0))
			L.Push(lua.LNumber(0))
			return 2
		}
		L.Push(lua.LNumber(res.Succeeded))
		L.Push(lua.LNumber(res.Failed))
		return 2
	}
}

// luaSwitchAdapters runs the A/B switch; returns ok, message.
func (e *Engine) luaSwitchAdapters(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		msg, err := e.adapters.Switch(ctx)
		if err != nil {
			L.Push(lua.LBool(false))
			L.Push(lua.LString(err.Error()))
			return 2
		}
		L.Push(lua.LBool(true))
		L.Push(lua.LString(msg))
		return 2
	}
}

// luaAdapterEnabled reports whether the adapter with the given id is enabled.
func (e *Engine) luaAdapterEnabled(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		id := L.ToString(1)
		list, err := e.adapters.List(ctx)
		if err != nil {
			L.Push(lua.LBool(false))
			return 1
		}
		for _, a := range list {
			if a.DeviceID == id {
				L.Push(lua.LBool(a.Enabled))
				return 1
			}
		}
		L.Push(lua.LBool(false))
		return 1
	}
}

// luaAdapters returns a table of adapter tables {id, name, type, enabled, status}.
func (e *Engine) luaAdapters(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		list, err := e.adapters.List(ctx)
		if err != nil {
			L.Push(L.NewTable())
			return 1
		}
		tbl := L.NewTable()
		for _, a := range list {
			row := L.NewTable()
			row.RawSetString("id", lua.LString(a.DeviceID))
			row.RawSetString("name", lua.LString(a.Name))
			row.RawSetString("type", lua.LString(a.Type.String()))
			row.RawSetString("enabled", lua.LBool(a.Enabled))
			row.RawSetString("status", lua.LString(a.Status))
			tbl.Append(row)
		}
		L.Push(tbl)
		return 1
	}
}

// luaNotify sends a desktop notification from a script.
func (e *Engine) luaNotify(L *lua.LState) int {
	if e.notifier != nil {
		e.notifier.Notify(L.ToString(1), L.ToString(2))
	}
	return 0
}

// luaSleep sleeps for the given milliseconds, waking early on cancellation.
func luaSleep(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		ms := L.ToInt(1)
		cancellableSleep(ctx, time.Duration(ms)*time.Millisecond)
		return 0
	}
}

// luaShouldStop reports whether the script was asked to stop.
func luaShouldStop(ctx context.Context) lua.LGFunction {
	return func(L *lua.LState) int {
		select {
		case <-ctx.Done():
			L.Push(lua.LBool(true))
		default:
			L.Push(lua.LBool(false))
		}
		return 1
	}
}

// cancellableSleep sleeps for a duration, waking immediately if the context
// is cancelled. It returns true when the context was cancelled.
func cancellableSleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return false
	case <-ctx.Done():
		return true
	}
}
