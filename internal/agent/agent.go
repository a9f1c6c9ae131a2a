package agent

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"netadapter-agent/internal/config"
	"netadapter-agent/internal/core"
	"netadapter-agent/internal/hotkey"
	"netadapter-agent/internal/lua"
	"netadapter-agent/internal/mqtt"
	"netadapter-agent/internal/netadapter"
	"netadapter-agent/internal/notify"
	"netadapter-agent/internal/scheduler"
	"netadapter-agent/internal/server"
)

type Agent struct {
	ctx    context.Context
	cancel context.CancelFunc
	config *config.Config
	wg     sync.WaitGroup

	state          *core.State
	eventBus       *core.EventBus
	commandChannel core.CommandChannel

	hookService *hotkey.Service
	hookMonitor *hotkey.Monitor
	adapters    *netadapter.Manager
	luaEngine   *lua.Engine
	scheduler   *scheduler.Scheduler
	server      *server.Server
	mqttClient  *mqtt.Client
	notifier    *notify.Notifier

	opTimeout time.Duration
}

func NewAgent(cfg *config.Config) (*Agent, error) {
	ctx, cancel := context.WithCancel(context.Background())

	a := &Agent{
		ctx:            ctx,
		cancel:         cancel,
		config:         cfg,
		state:          core.NewState(),
		eventBus:       core.NewEventBus(),
		commandChannel: make(core.CommandChannel, 20),
	}

	settleDelay, _ := time.ParseDuration(cfg.Adapters.SettleDelay)
	healthInterval, _ := time.ParseDuration(cfg.Hook.HealthCheckInterval)
	a.opTimeout, _ = time.ParseDuration(cfg.Adapters.OperationTimeout)

	a.notifier = notify.New(cfg.NotificationsEnabled())

	a.adapters = netadapter.NewManager(
		netadapter.NewClient(),
		cfg.Adapters.AdapterA,
		cfg.Adapters.AdapterB,
		settleDelay,
	)

	a.hookService = hotkey.NewService(a.eventBus, cfg.Hook.DispatchRateLimit, cfg.Hook.DispatchRateBurst)
	a.hookService.UpdateBindings(buildBindings(cfg.Hotkeys))
	a.hookMonitor = hotkey.NewMonitor(a.hookService, healthInterval, a.eventBus)

	a.luaEngine = lua.NewEngine(a.adapters, a.notifier, cfg.ScriptsDir, a.eventBus)

	// Create Scheduler (before server so we can pass it in)
	a.scheduler = scheduler.NewScheduler(a.commandChannel, cfg.SchedulesFile)

	// Create Server
	a.server = server.NewServer(
		a.stateSnapshot,
		a.listAdapters,
		a.hookStatus,
		a.scheduler.GetAll,
		a.listScripts,
		cfg.Server.Port,
		cfg.Server.WebFilesDir,
		cfg.Server.AllowedOrigins,
	)
	a.server.SetHandler(NewCommandHandler(a.commandChannel, a.luaEngine, a.scheduler, a.hookStatus, a.stateSnapshot))

	// Create MQTT Client (optional)
	a.mqttClient = mqtt.NewClient(cfg, a.commandChannel, a.eventBus, a.adapters.List)

	return a, nil
}

// Run starts the agent orchestration loop.
func (a *Agent) Run() {
	// Hook up event subscriptions before the hook can fire anything
	go a.listenEvents()

	// Install failure is surfaced, not swallowed: the monitor keeps
	// retrying because the handle stays null, but the user learns about it
	// right away.
	if err := a.hookService.Install(); err != nil {
		log.Printf("[Agent] Keyboard hook install failed: %v", err)
		a.notifier.Error("keyboard hook install failed: " + err.Error())
	}
	a.state.SetHook(a.hookService.Installed(), a.hookMonitor.Reinstalls())

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.hookMonitor.Run(a.ctx)
	}()

	if a.mqttClient != nil {
		go func() {
			if err := a.mqttClient.Connect(a.ctx); err != nil {
				log.Printf("[Agent] MQTT Setup Error: %v", err)
			}
		}()
	}

	a.scheduler.Start()

	log.Printf("Agent running on http://localhost:%s", a.config.Server.Port)
	go func() {
		if err := a.server.ListenAndServe(); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	// Initial adapter snapshot for state, MQTT and connected clients
	go a.refreshAdapters()

	// Orchestrator Central Command Loop
	log.Println("Agent orchestrator ready.")
	for {
		select {
		case <-a.ctx.Done():
			log.Println("Agent orchestrator shutting down...")
			return
		case cmd := <-a.commandChannel:
			a.handleCommand(cmd)
		}
	}
}

// listenEvents reacts to hook events. Hotkey matches arrive here from the
// OS callback thread via the bus; the actual adapter I/O is dispatched back
// through the command channel so it never runs on the hook thread.
func (a *Agent) listenEvents() {
	sub := a.eventBus.Subscribe(core.HotkeyTriggeredEvent, core.HookReinstalledEvent, core.ScriptChangedEvent)

	for {
		select {
		case <-a.ctx.Done():
			return
		case event := <-sub:
			switch event.Type {
			case core.HotkeyTriggeredEvent:
				if binding, ok := event.Payload.(hotkey.Binding); ok {
					a.state.SetLastHotkey(binding.Combo())
					a.server.Hub.Broadcast(server.NewMessage("hotkey_triggered", map[string]string{
						"id":     binding.ID,
						"combo":  binding.Combo(),
						"action": string(binding.Action),
					}))
					a.dispatchBinding(binding)
				}

			case core.HookReinstalledEvent:
				a.state.SetHook(a.hookService.Installed(), a.hookMonitor.Reinstalls())
				a.notifier.HookReinstalled(a.hookMonitor.Reinstalls())
				a.server.Hub.Broadcast(server.NewMessage("hook_status", map[string]string{
					"status": a.hookStatus(),
				}))

			case core.ScriptChangedEvent:
				if payload, ok := event.Payload.(map[string]interface{}); ok {
					a.server.Hub.Broadcast(server.NewMessage("script_status", payload))
				}
			}
		}
	}
}

// dispatchBinding maps a matched hotkey onto an agent command.
func (a *Agent) dispatchBinding(b hotkey.Binding) {
	var cmd core.Command
	switch b.Action {
	case hotkey.ActionEnableAll:
		cmd = core.Command{Type: core.CmdEnableAll}
	case hotkey.ActionDisableAll:
		cmd = core.Command{Type: core.CmdDisableAll}
	case hotkey.ActionSwitch:
		cmd = core.Command{Type: core.CmdSwitchAdapters}
	case hotkey.ActionRunScript:
		cmd = core.Command{Type: core.CmdRunScript, Payload: map[string]interface{}{"name": b.Script}}
	default:
		log.Printf("[Agent] Hotkey '%s' has unknown action '%s'", b.ID, b.Action)
		return
	}

	select {
	case a.commandChannel <- cmd:
	default:
		log.Printf("[Agent] Command channel full, dropping hotkey action %s", b.Action)
	}
}

func (a *Agent) handleCommand(cmd core.Command) {
	log.Printf("[Agent] Handling command: %s with payload: %v", cmd.Type, cmd.Payload)

	switch cmd.Type {

	case core.CmdEnableAll:
		go a.runBatch(true)

	case core.CmdDisableAll:
		go a.runBatch(false)

	case core.CmdEnableAdapter:
		if id, ok := cmd.Payload["deviceId"].(string); ok {
			go a.runSingle(id, true)
		}

	case core.CmdDisableAdapter:
		if id, ok := cmd.Payload["deviceId"].(string); ok {
			go a.runSingle(id, false)
		}

	case core.CmdSwitchAdapters:
		go a.runSwitch()

	case core.CmdRefreshAdapters:
		go a.refreshAdapters()

	case core.CmdSetAdapterPair:
		idA, _ := cmd.Payload["adapterA"].(string)
		idB, _ := cmd.Payload["adapterB"].(string)
		if idA != "" && idB != "" {
			a.adapters.SetPair(idA, idB)
		}

	case core.CmdUpdateHotkeys:
		a.updateHotkeys(cmd.Payload["hotkeys"])

	case core.CmdReinstallHook:
		go func() {
			if err := a.hookMonitor.ForceReinstall(); err != nil {
				a.notifier.Error("hook reinstall failed: " + err.Error())
			}
			a.state.SetHook(a.hookService.Installed(), a.hookMonitor.Reinstalls())
		}()

	case core.CmdRunScript:
		if name, ok := cmd.Payload["name"].(string); ok {
			a.luaEngine.RunScript(name)
		}

	case core.CmdStopScript:
		a.luaEngine.StopCurrentScript()

	case core.CmdSetNotifications:
		if enabled, ok := cmd.Payload["enabled"].(bool); ok {
			a.notifier.SetEnabled(enabled)
		}

	case core.CmdAddSchedule:
		spec, _ := cmd.Payload["spec"].(string)
		command, _ := cmd.Payload["command"].(string)
		if spec != "" && command != "" {
			a.scheduler.Add(spec, command)
			a.server.Hub.Broadcast(server.NewMessage("schedule_list", a.scheduler.GetAll()))
		}

	case core.CmdRemoveSchedule:
		if id, ok := cmd.Payload["id"].(float64); ok {
			a.scheduler.Remove(int(id))
			a.server.Hub.Broadcast(server.NewMessage("schedule_list", a.scheduler.GetAll()))
		}

	default:
		log.Printf("Unknown command type: %s", cmd.Type)
	}
}

// runBatch enables or disables every adapter and reports the aggregate.
func (a *Agent) runBatch(enable bool) {
	ctx, cancel := context.WithTimeout(a.ctx, a.opTimeout)
	defer cancel()

	action := "disable all adapters"
	if enable {
		action = "enable all adapters"
	}

	var (
		res netadapter.BatchResult
		err error
	)
	if enable {
		res, err = a.adapters.EnableAll(ctx)
	} else {
		res, err = a.adapters.DisableAll(ctx)
	}
	if err != nil {
		a.reportAction(action, err.Error(), false)
		return
	}

	a.server.Hub.Broadcast(server.NewMessage("batch_result", res))
	a.reportAction(action, res.Summary(), res.Ok())
	a.refreshAdapters()
}

// runSingle enables or disables one adapter.
func (a *Agent) runSingle(deviceID string, enable bool) {
	ctx, cancel := context.WithTimeout(a.ctx, a.opTimeout)
	defer cancel()

	action := "disable adapter"
	if enable {
		action = "enable adapter"
	}

	var res netadapter.OperationResult
	if enable {
		res = a.adapters.Enable(ctx, deviceID)
	} else {
		res = a.adapters.Disable(ctx, deviceID)
	}

	a.reportAction(action, res.Message, res.Success)
	a.refreshAdapters()
}

// runSwitch toggles between the designated A/B adapters.
func (a *Agent) runSwitch() {
	ctx, cancel := context.WithTimeout(a.ctx, a.opTimeout)
	defer cancel()

	msg, err := a.adapters.Switch(ctx)
	if err != nil {
		a.reportAction("switch adapters", err.Error(), false)
		return
	}
	a.reportAction("switch adapters", msg, true)
	a.refreshAdapters()
}

// reportAction records, notifies and broadcasts an action outcome.
func (a *Agent) reportAction(action, message string, ok bool) {
	if ok {
		log.Printf("[Agent] %s: %s", action, message)
	} else {
		log.Printf("[Agent] %s failed: %s", action, message)
	}

	a.state.SetLastAction(action+": "+message, ok)
	a.notifier.ActionResult(action, message, ok)

	payload := map[string]interface{}{
		"action":  action,
		"message": message,
		"success": ok,
	}
	a.eventBus.Publish(core.Event{Type: core.ActionResultEvent, Payload: payload})
	a.server.Hub.Broadcast(server.NewMessage("action_result", payload))
	a.server.Hub.Broadcast(server.NewMessage("agent_state", a.stateSnapshot()))
}

// refreshAdapters queries a fresh snapshot and distributes it.
func (a *Agent) refreshAdapters() {
	ctx, cancel := context.WithTimeout(a.ctx, a.opTimeout)
	defer cancel()

	adapters, err := a.adapters.List(ctx)
	if err != nil {
		log.Printf("[Agent] Adapter refresh failed: %v", err)
		return
	}

	enabled := 0
	for _, ad := range adapters {
		if ad.Enabled {
			enabled++
		}
	}
	a.state.SetAdapterCounts(len(adapters), enabled)

	a.eventBus.Publish(core.Event{Type: core.AdaptersChangedEvent, Payload: adapters})
	a.server.Hub.Broadcast(server.NewMessage("adapter_list", adapters))
	a.server.Hub.Broadcast(server.NewMessage("agent_state", a.stateSnapshot()))
}

// stateSnapshot returns a copy of the agent state for control clients.
func (a *Agent) stateSnapshot() core.State {
	return a.state.Clone()
}

// updateHotkeys hot-swaps the monitored hotkey list from a raw payload.
func (a *Agent) updateHotkeys(raw interface{}) {
	data, err := json.Marshal(raw)
	if err != nil {
		log.Printf("[Agent] Invalid hotkey update payload: %v", err)
		return
	}
	var hks []config.HotkeyConfig
	if err := json.Unmarshal(data, &hks); err != nil {
		log.Printf("[Agent] Invalid hotkey update payload: %v", err)
		return
	}
	a.hookService.UpdateBindings(buildBindings(hks))
}

// listAdapters is the server's snapshot callback.
func (a *Agent) listAdapters() []netadapter.Adapter {
	ctx, cancel := context.WithTimeout(a.ctx, a.opTimeout)
	defer cancel()

	adapters, err := a.adapters.List(ctx)
	if err != nil {
		log.Printf("[Agent] Adapter list failed: %v", err)
		return nil
	}
	return adapters
}

// listScripts is the server's script listing callback.
func (a *Agent) listScripts() []string {
	scripts, err := a.luaEngine.GetScriptList()
	if err != nil {
		log.Printf("[Agent] Script list failed: %v", err)
		return nil
	}
	return scripts
}

// hookStatus returns the monitor's diagnostic line.
func (a *Agent) hookStatus() string {
	return a.hookMonitor.Status()
}

// buildBindings resolves config hotkey entries into hook bindings,
// preserving list order so duplicate combos keep first-wins semantics.
func buildBindings(hks []config.HotkeyConfig) []hotkey.Binding {
	bindings := make([]hotkey.Binding, 0, len(hks))
	for _, hk := range hks {
		mods, unknown := hotkey.ParseModifiers(hk.Modifiers)
		for _, u := range unknown {
			log.Printf("[Agent] Hotkey '%s': unknown modifier '%s'", hk.ID, u)
		}

		key, ok := hotkey.ParseKey(hk.Key)
		if !ok && hk.Key != "" {
			log.Printf("[Agent] Hotkey '%s': unknown key '%s'", hk.ID, hk.Key)
		}

		bindings = append(bindings, hotkey.Binding{
			ID:      hk.ID,
			Action:  hotkey.Action(hk.Action),
			Script:  hk.Script,
			Mods:    mods,
			Key:     key,
			Enabled: hk.Enabled,
		})
	}
	return bindings
}

func (a *Agent) Shutdown() {
	a.scheduler.Stop()
	_ = a.server.Shutdown(context.Background())
	if a.mqttClient != nil {
		a.mqttClient.Disconnect()
	}
	a.hookService.Uninstall()
	a.cancel()
	a.wg.Wait()
}
