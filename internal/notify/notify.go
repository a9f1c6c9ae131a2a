// Package notify provides desktop notifications for adapter actions.
package notify

import (
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"
)

const appName = "Network Adapter Agent"

// Notifier sends system notifications. SetEnabled may be called from the
// agent loop while scripts notify from the engine worker, hence the mutex.
type Notifier struct {
	mu      sync.Mutex
	enabled bool
}

// New creates a Notifier.
func New(enabled bool) *Notifier {
	return &Notifier{enabled: enabled}
}

// SetEnabled turns notifications on or off.
func (n *Notifier) SetEnabled(enabled bool) {
	n.mu.Lock()
	n.enabled = enabled
	n.mu.Unlock()
}

func (n *Notifier) isEnabled() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.enabled
}

// ActionResult reports the outcome of an adapter action.
func (n *Notifier) ActionResult(action, message string, ok bool) {
	title := action
	if !ok {
		title = action + " failed"
	}
	n.notify(title, message)
}

// HookReinstalled reports that the keyboard hook was reinstalled.
func (n *Notifier) HookReinstalled(count int) {
	n.notify("Keyboard hook reinstalled", fmt.Sprintf("reinstall count: %d", count))
}

// Error reports a failure.
func (n *Notifier) Error(message string) {
	n.notify("Error", message)
}

// Notify sends a free-form notification, used by action scripts.
func (n *Notifier) Notify(title, message string) {
	n.notify(title, message)
}

func (n *Notifier) notify(title, message string) {
	if !n.isEnabled() {
		return
	}
	if len(message) > 200 {
		message = message[:200] + "..."
	}
	// Notification failures are not critical, ignore them
	_ = beeep.Notify(appName+": "+title, message, "")
}
