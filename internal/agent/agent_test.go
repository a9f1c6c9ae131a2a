package agent

import (
	"testing"

	"netadapter-agent/internal/config"
	"netadapter-agent/internal/core"
	"netadapter-agent/internal/hotkey"
)

func TestStateSnapshotReflectsUpdates(t *testing.T) {
	a := &Agent{state: core.NewState()}
	a.state.SetAdapterCounts(3, 2)
	a.state.SetLastHotkey("ctrl+alt+s")
	a.state.SetLastAction("switch adapters: switched from Ethernet to Wi-Fi", true)

	snap := a.stateSnapshot()
	if snap.AdapterCount != 3 || snap.EnabledCount != 2 {
		t.Errorf("snapshot counts = %d/%d, want 3/2", snap.AdapterCount, snap.EnabledCount)
	}
	if snap.LastHotkey != "ctrl+alt+s" {
		t.Errorf("snapshot LastHotkey = %q", snap.LastHotkey)
	}
	if !snap.LastActionOK {
		t.Error("snapshot should carry the action outcome")
	}
}

func TestBuildBindingsResolvesNamesToCodes(t *testing.T) {
	bindings := buildBindings([]config.HotkeyConfig{
		{ID: "switch", Action: "switchAdapters", Modifiers: []string{"ctrl", "alt"}, Key: "s", Enabled: true},
		{ID: "script", Action: "runScript", Script: "night.lua", Modifiers: []string{"shift"}, Key: "f5", Enabled: true},
	})

	if len(bindings) != 2 {
		t.Fatalf("got %d bindings, want 2", len(bindings))
	}

	b := bindings[0]
	if b.Mods != hotkey.ModControl|hotkey.ModAlt {
		t.Errorf("mods = %v, want ctrl+alt", b.Mods)
	}
	if b.Key.String() != "s" {
		t.Errorf("key = %s, want s", b.Key)
	}
	if !b.Valid() {
		t.Error("resolved binding should be valid")
	}

	if bindings[1].Script != "night.lua" {
		t.Errorf("script = %q", bindings[1].Script)
	}
}

func TestBuildBindingsKeepsOrderForFirstMatchWins(t *testing.T) {
	bindings := buildBindings([]config.HotkeyConfig{
		{ID: "one", Action: "enableAll", Modifiers: []string{"ctrl"}, Key: "e", Enabled: true},
		{ID: "two", Action: "disableAll", Modifiers: []string{"ctrl"}, Key: "e", Enabled: true},
	})

	if bindings[0].ID != "one" || bindings[1].ID != "two" {
		t.Errorf("binding order changed: %s, %s", bindings[0].ID, bindings[1].ID)
	}
}

func TestBuildBindingsLeavesUnresolvableEntriesInvalid(t *testing.T) {
	bindings := buildBindings([]config.HotkeyConfig{
		{ID: "bad-key", Action: "enableAll", Modifiers: []string{"ctrl"}, Key: "nosuchkey", Enabled: true},
		{ID: "bad-mod", Action: "enableAll", Modifiers: []string{"hyper"}, Key: "e", Enabled: true},
	})

	// The entries survive (the hook layer filters them) but must never match.
	for _, b := range bindings {
		if b.Valid() {
			t.Errorf("binding %q with unresolvable names should be invalid", b.ID)
		}
	}
}
