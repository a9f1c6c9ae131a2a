package agent

import (
	"encoding/json"
	"log"

	"netadapter-agent/internal/core"
	"netadapter-agent/internal/hotkey"
	"netadapter-agent/internal/lua"
	"netadapter-agent/internal/scheduler"
	"netadapter-agent/internal/server"
)

// CommandHandler translates WebSocket client commands into agent commands.
// Adapter actions go through the command channel; script and schedule CRUD
// is answered directly.
type CommandHandler struct {
	commands      core.CommandChannel
	luaEngine     *lua.Engine
	scheduler     *scheduler.Scheduler
	getHookStatus func() string
	getState      func() core.State
}

func NewCommandHandler(commands core.CommandChannel, luaEngine *lua.Engine, sched *scheduler.Scheduler, getHookStatus func() string, getState func() core.State) *CommandHandler {
	return &CommandHandler{
		commands:      commands,
		luaEngine:     luaEngine,
		scheduler:     sched,
		getHookStatus: getHookStatus,
		getState:      getState,
	}
}

func (h *CommandHandler) dispatch(cmd core.Command) {
	select {
	case h.commands <- cmd:
	default:
		log.Printf("Command channel full, dropping client command %s", cmd.Type)
	}
}

// Handle processes a single incoming WebSocket message.
func (h *CommandHandler) Handle(msg server.Message, hub *server.Hub) {
	var cmd server.Command
	if err := json.Unmarshal(msg.Raw, &cmd); err != nil {
		log.Printf("Invalid client message: %v", err)
		return
	}

	getString := func(key string) string {
		v, _ := cmd.Payload[key].(string)
		return v
	}

	switch cmd.Type {

	// --- Adapter actions ---
	case "enableAdapter":
		h.dispatch(core.Command{Type: core.CmdEnableAdapter, Payload: map[string]interface{}{"deviceId": getString("deviceId")}})

	case "disableAdapter":
		h.dispatch(core.Command{Type: core.CmdDisableAdapter, Payload: map[string]interface{}{"deviceId": getString("deviceId")}})

	case "enableAll":
		h.dispatch(core.Command{Type: core.CmdEnableAll})

	case "disableAll":
		h.dispatch(core.Command{Type: core.CmdDisableAll})

	case "switchAdapters":
		h.dispatch(core.Command{Type: core.CmdSwitchAdapters})

	case "refreshAdapters":
		h.dispatch(core.Command{Type: core.CmdRefreshAdapters})

	case "setAdapterPair":
		h.dispatch(core.Command{Type: core.CmdSetAdapterPair, Payload: map[string]interface{}{
			"adapterA": getString("adapterA"),
			"adapterB": getString("adapterB"),
		}})

	// --- Hook management ---
	case "updateHotkeys":
		h.dispatch(core.Command{Type: core.CmdUpdateHotkeys, Payload: map[string]interface{}{"hotkeys": cmd.Payload["hotkeys"]}})

	case "reinstallHook":
		h.dispatch(core.Command{Type: core.CmdReinstallHook})

	case "getHookStatus":
		hub.Broadcast(server.NewMessage("hook_status", map[string]string{
			"status": h.getHookStatus(),
		}))

	case "getState":
		hub.Broadcast(server.NewMessage("agent_state", h.getState()))

	// getHotkeyOptions feeds the hotkey editor's pickers.
	case "getHotkeyOptions":
		hub.Broadcast(server.NewMessage("hotkey_options", map[string]interface{}{
			"keys":      hotkey.KeyNames(),
			"modifiers": hotkey.ModifierNames(),
		}))

	case "setNotifications":
		if enabled, ok := cmd.Payload["enabled"].(bool); ok {
			h.dispatch(core.Command{Type: core.CmdSetNotifications, Payload: map[string]interface{}{"enabled": enabled}})
		}

	// --- Scripts ---
	case "runScript":
		h.dispatch(core.Command{Type: core.CmdRunScript, Payload: map[string]interface{}{"name": getString("name")}})

	case "stopScript":
		h.dispatch(core.Command{Type: core.CmdStopScript})

	// runCode executes a one-off Lua snippet without saving it as a script.
	case "runCode":
		if code := getString("code"); code != "" {
			h.luaEngine.ExecuteString(code)
		}

	case "getScriptList":
		h.broadcastScriptList(hub)

	case "getScriptCode":
		name := getString("name")
		code, err := h.luaEngine.GetScriptCode(name)
		if err != nil {
			log.Printf("Error reading script '%s': %v", name, err)
			return
		}
		hub.Broadcast(server.NewMessage("script_code", map[string]string{
			"name": name,
			"code": code,
		}))

	case "saveScriptCode":
		name := getString("name")
		if err := h.luaEngine.SaveScriptCode(name, getString("code")); err != nil {
			log.Printf("Error saving script '%s': %v", name, err)
			return
		}
		h.broadcastScriptList(hub)

	case "deleteScript":
		name := getString("name")
		if err := h.luaEngine.DeleteScript(name); err != nil {
			log.Printf("Error deleting script '%s': %v", name, err)
			return
		}
		h.broadcastScriptList(hub)

	// --- Schedules ---
	case "addSchedule":
		spec := getString("spec")
		command := getString("command")
		if spec == "" || command == "" {
			return
		}
		h.scheduler.Add(spec, command)
		hub.Broadcast(server.NewMessage("schedule_list", h.scheduler.GetAll()))

	case "removeSchedule":
		if id, ok := cmd.Payload["id"].(float64); ok {
			h.scheduler.Remove(int(id))
			hub.Broadcast(server.NewMessage("schedule_list", h.scheduler.GetAll()))
		}

	default:
		log.Printf("Unknown client command: %s", cmd.Type)
	}
}

func (h *CommandHandler) broadcastScriptList(hub *server.Hub) {
	scripts, err := h.luaEngine.GetScriptList()
	if err != nil {
		log.Printf("Error listing scripts: %v", err)
		return
	}
	hub.Broadcast(server.NewMessage("script_list", scripts))
}
