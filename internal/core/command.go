package core

// CommandType defines the type of command being dispatched.
type CommandType string

const (
	CmdEnableAll        CommandType = "enableAll"
	CmdDisableAll       CommandType = "disableAll"
	CmdEnableAdapter    CommandType = "enableAdapter"
	CmdDisableAdapter   CommandType = "disableAdapter"
	CmdSwitchAdapters   CommandType = "switchAdapters"
	CmdRefreshAdapters  CommandType = "refreshAdapters"
	CmdSetAdapterPair   CommandType = "setAdapterPair"
	CmdUpdateHotkeys    CommandType = "updateHotkeys"
	CmdReinstallHook    CommandType = "reinstallHook"
	CmdRunScript        CommandType = "runScript"
	CmdStopScript       CommandType = "stopScript"
	CmdSetNotifications CommandType = "setNotifications"
	CmdAddSchedule      CommandType = "addSchedule"
	CmdRemoveSchedule   CommandType = "removeSchedule"
)

// Command is the envelope for incoming requests to change state or perform actions.
type Command struct {
	Type    CommandType
	Payload map[string]interface{}
}

// CommandChannel is the single channel that the core Agent listens to for commands.
type CommandChannel chan Command
