package notify

import "testing"

func TestSetEnabledToggles(t *testing.T) {
	n := New(true)
	if !n.isEnabled() {
		t.Error("notifier should start enabled")
	}

	n.SetEnabled(false)
	if n.isEnabled() {
		t.Error("notifier should be disabled after SetEnabled(false)")
	}

	n.SetEnabled(true)
	if !n.isEnabled() {
		t.Error("notifier should be enabled again")
	}
}
