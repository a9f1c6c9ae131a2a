//go:build !windows

package hotkey

import "fmt"

// installHook is a dummy implementation for non-Windows systems.
func installHook(onKey func(vk Key, down bool)) (hookPort, error) {
	return nil, fmt.Errorf("low-level keyboard hooks are only available on Windows")
}
