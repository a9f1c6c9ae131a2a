package hotkey

import (
	"reflect"
	"sort"
	"testing"
)

func TestParseModifiers(t *testing.T) {
	mods, unknown := ParseModifiers([]string{"Ctrl", " alt ", "SHIFT", "win"})
	if mods != ModControl|ModAlt|ModShift|ModWin {
		t.Errorf("mods = %v, want all flags", mods)
	}
	if len(unknown) != 0 {
		t.Errorf("unexpected unknown names: %v", unknown)
	}
}

func TestParseModifiersReportsUnknown(t *testing.T) {
	mods, unknown := ParseModifiers([]string{"ctrl", "hyper"})
	if mods != ModControl {
		t.Errorf("mods = %v, want ctrl only", mods)
	}
	if len(unknown) != 1 || unknown[0] != "hyper" {
		t.Errorf("unknown = %v, want [hyper]", unknown)
	}
}

func TestModifiersString(t *testing.T) {
	got := (ModControl | ModAlt | ModShift).String()
	if got != "ctrl+alt+shift" {
		t.Errorf("String() = %q, want %q", got, "ctrl+alt+shift")
	}
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		name string
		want Key
	}{
		{"a", 0x41},
		{"Z", 0x5A},
		{"0", 0x30},
		{"9", 0x39},
		{"f1", 0x70},
		{"F12", 0x7B},
		{"space", 0x20},
		{"escape", 0x1B},
	}
	for _, c := range cases {
		k, ok := ParseKey(c.name)
		if !ok {
			t.Errorf("ParseKey(%q) not found", c.name)
			continue
		}
		if k != c.want {
			t.Errorf("ParseKey(%q) = %#x, want %#x", c.name, uint32(k), uint32(c.want))
		}
	}

	if _, ok := ParseKey("nosuchkey"); ok {
		t.Error("ParseKey should reject unknown names")
	}
}

func TestKeyStringRoundTrip(t *testing.T) {
	if got := Key(0x45).String(); got != "e" {
		t.Errorf("Key(0x45).String() = %q, want %q", got, "e")
	}
	if got := Key(0xFF).String(); got != "vk(0xFF)" {
		t.Errorf("unnamed key String() = %q, want %q", got, "vk(0xFF)")
	}
}

func TestBindingValidAndCombo(t *testing.T) {
	b := Binding{ID: "hk", Action: ActionSwitch, Mods: ModControl | ModAlt, Key: 0x53, Enabled: true}
	if !b.Valid() {
		t.Error("binding with mods and key should be valid")
	}
	if got := b.Combo(); got != "ctrl+alt+s" {
		t.Errorf("Combo() = %q, want %q", got, "ctrl+alt+s")
	}

	if (Binding{Mods: ModControl}).Valid() {
		t.Error("binding without a key must be invalid")
	}
	if (Binding{Key: 0x53}).Valid() {
		t.Error("binding without modifiers must be invalid")
	}
}

func TestNameListingsForPickers(t *testing.T) {
	keys := KeyNames()
	if !sort.StringsAreSorted(keys) {
		t.Error("KeyNames should be sorted")
	}
	seen := map[string]bool{}
	for _, k := range keys {
		seen[k] = true
	}
	for _, want := range []string{"a", "9", "f12", "space", "escape"} {
		if !seen[want] {
			t.Errorf("KeyNames missing %q", want)
		}
	}

	mods := ModifierNames()
	if !reflect.DeepEqual(mods, []string{"alt", "ctrl", "shift", "win"}) {
		t.Errorf("ModifierNames() = %v", mods)
	}
}

func TestTrackerFoldsVariants(t *testing.T) {
	tr := NewTracker()
	tr.KeyDown(vkRShift)
	tr.KeyDown(vkLControl)
	if got := tr.Modifiers(); got != ModShift|ModControl {
		t.Errorf("Modifiers() = %v, want shift+ctrl", got)
	}

	tr.KeyUp(vkRShift)
	if got := tr.Modifiers(); got != ModControl {
		t.Errorf("Modifiers() after release = %v, want ctrl", got)
	}

	tr.Reset()
	if got := tr.Modifiers(); got != 0 {
		t.Errorf("Modifiers() after reset = %v, want 0", got)
	}
}
