// Package hotkey implements the process-wide low-level keyboard hook and
// the matching of configured key combinations against live key events.
package hotkey

import (
	"fmt"
	"sort"
	"strings"
)

// Key is a Windows virtual-key code.
type Key uint32

// Modifiers is a bitmask of held modifier keys. The flag values follow the
// Win32 MOD_* constants so persisted configs stay readable next to the API.
type Modifiers uint8

const (
	ModAlt Modifiers = 1 << iota
	ModControl
	ModShift
	ModWin
)

// Virtual-key codes for modifier keys, including left/right variants. The
// low-level hook reports the variant codes; matching folds them into one flag.
const (
	vkShift    Key = 0x10
	vkControl  Key = 0x11
	vkMenu     Key = 0x12 // Alt
	vkLWin     Key = 0x5B
	vkRWin     Key = 0x5C
	vkLShift   Key = 0xA0
	vkRShift   Key = 0xA1
	vkLControl Key = 0xA2
	vkRControl Key = 0xA3
	vkLMenu    Key = 0xA4
	vkRMenu    Key = 0xA5
)

var modifierVKs = map[Key]Modifiers{
	vkShift:    ModShift,
	vkLShift:   ModShift,
	vkRShift:   ModShift,
	vkControl:  ModControl,
	vkLControl: ModControl,
	vkRControl: ModControl,
	vkMenu:     ModAlt,
	vkLMenu:    ModAlt,
	vkRMenu:    ModAlt,
	vkLWin:     ModWin,
	vkRWin:     ModWin,
}

// modifierFromVK reports which modifier flag a virtual-key code represents,
// if any.
func modifierFromVK(vk Key) (Modifiers, bool) {
	m, ok := modifierVKs[vk]
	return m, ok
}

var modifierNames = map[string]Modifiers{
	"alt":   ModAlt,
	"ctrl":  ModControl,
	"shift": ModShift,
	"win":   ModWin,
}

// ParseModifiers converts config modifier names into a bitmask. Unknown
// names are reported back so the config layer can warn about typos.
func ParseModifiers(names []string) (Modifiers, []string) {
	var mods Modifiers
	var unknown []string
	for _, n := range names {
		m, ok := modifierNames[strings.ToLower(strings.TrimSpace(n))]
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		mods |= m
	}
	return mods, unknown
}

// String renders the mask in a fixed ctrl/alt/shift/win order.
func (m Modifiers) String() string {
	var parts []string
	if m&ModControl != 0 {
		parts = append(parts, "ctrl")
	}
	if m&ModAlt != 0 {
		parts = append(parts, "alt")
	}
	if m&ModShift != 0 {
		parts = append(parts, "shift")
	}
	if m&ModWin != 0 {
		parts = append(parts, "win")
	}
	return strings.Join(parts, "+")
}

// keyNames maps config key names to virtual-key codes. Letters, digits and
// function keys are filled in by init below.
var keyNames = map[string]Key{
	"space":    0x20,
	"return":   0x0D,
	"tab":      0x09,
	"escape":   0x1B,
	"insert":   0x2D,
	"delete":   0x2E,
	"home":     0x24,
	"end":      0x23,
	"pageup":   0x21,
	"pagedown": 0x22,
	"pause":    0x13,
}

var keyCodes = map[Key]string{}

func init() {
	for c := byte('a'); c <= 'z'; c++ {
		keyNames[string(c)] = Key(0x41 + c - 'a')
	}
	for c := byte('0'); c <= '9'; c++ {
		keyNames[string(c)] = Key(0x30 + c - '0')
	}
	for i := 1; i <= 12; i++ {
		keyNames[fmt.Sprintf("f%d", i)] = Key(0x70 + i - 1)
	}
	for name, vk := range keyNames {
		keyCodes[vk] = name
	}
}

// ParseKey converts a config key name into a virtual-key code.
func ParseKey(name string) (Key, bool) {
	k, ok := keyNames[strings.ToLower(strings.TrimSpace(name))]
	return k, ok
}

// String returns the config name of the key, or a hex code for keys the
// agent has no name for.
func (k Key) String() string {
	if name, ok := keyCodes[k]; ok {
		return name
	}
	return fmt.Sprintf("vk(0x%02X)", uint32(k))
}

// KeyNames returns all bindable key names, sorted, for UI listings.
func KeyNames() []string {
	names := make([]string, 0, len(keyNames))
	for n := range keyNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ModifierNames returns all modifier names, sorted, for UI listings.
func ModifierNames() []string {
	names := make([]string, 0, len(modifierNames))
	for n := range modifierNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
