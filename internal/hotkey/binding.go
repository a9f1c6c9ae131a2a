package hotkey

// Action identifies what a matched hotkey should do. The agent maps actions
// onto its command channel; the hook itself never touches adapters.
type Action string

const (
	ActionEnableAll  Action = "enableAll"
	ActionDisableAll Action = "disableAll"
	ActionSwitch     Action = "switchAdapters"
	ActionRunScript  Action = "runScript"
)

// Binding is one configured hotkey combination.
type Binding struct {
	ID      string
	Action  Action
	Script  string // script filename, only for ActionRunScript
	Mods    Modifiers
	Key     Key
	Enabled bool
}

// Valid reports whether the binding is structurally usable: a combination
// needs at least one modifier and a real key. Anything else never matches.
func (b Binding) Valid() bool {
	return b.Mods != 0 && b.Key != 0
}

// Combo renders the combination, e.g. "ctrl+alt+s".
func (b Binding) Combo() string {
	mods := b.Mods.String()
	if mods == "" {
		return b.Key.String()
	}
	return mods + "+" + b.Key.String()
}
