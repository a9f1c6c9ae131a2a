package hotkey

import (
	"errors"
	"testing"
	"time"

	"netadapter-agent/internal/core"
)

type fakePort struct {
	handle uintptr
	closed bool
}

func (p *fakePort) Handle() uintptr { return p.handle }
func (p *fakePort) Close() error    { p.closed = true; return nil }

// newTestService wires a service to a fake OS hook so key events can be fed
// in directly via onKey.
func newTestService(bus *core.EventBus) (*Service, *fakePort) {
	svc := NewService(bus, 100, 100)
	port := &fakePort{handle: 0xBEEF}
	svc.install = func(onKey func(vk Key, down bool)) (hookPort, error) {
		return port, nil
	}
	return svc, port
}

func mustKey(t *testing.T, name string) Key {
	t.Helper()
	k, ok := ParseKey(name)
	if !ok {
		t.Fatalf("ParseKey(%q) failed", name)
	}
	return k
}

func recvTriggered(t *testing.T, sub core.Subscriber) (Binding, bool) {
	t.Helper()
	select {
	case ev := <-sub:
		b, ok := ev.Payload.(Binding)
		if !ok {
			t.Fatalf("unexpected payload type %T", ev.Payload)
		}
		return b, true
	case <-time.After(100 * time.Millisecond):
		return Binding{}, false
	}
}

func TestInstallAndUninstall(t *testing.T) {
	svc, port := newTestService(core.NewEventBus())

	if svc.Installed() {
		t.Error("service should not be installed before Install")
	}
	if err := svc.Install(); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !svc.Installed() {
		t.Error("service should be installed after Install")
	}
	if svc.Handle() != 0xBEEF {
		t.Errorf("Handle() = %#x, want 0xBEEF", svc.Handle())
	}

	svc.Uninstall()
	if svc.Installed() {
		t.Error("service should not be installed after Uninstall")
	}
	if !port.closed {
		t.Error("Uninstall should close the port")
	}
}

func TestInstallFailureIsReturned(t *testing.T) {
	svc := NewService(core.NewEventBus(), 100, 100)
	svc.install = func(onKey func(vk Key, down bool)) (hookPort, error) {
		return nil, errors.New("access denied")
	}

	if err := svc.Install(); err == nil {
		t.Fatal("Install should return the underlying error")
	}
	if svc.Installed() {
		t.Error("service should not report installed after a failed install")
	}
}

func TestMatchFirstEntryWinsOnDuplicateCombo(t *testing.T) {
	bus := core.NewEventBus()
	sub := bus.Subscribe(core.HotkeyTriggeredEvent)
	svc, _ := newTestService(bus)

	keyE := mustKey(t, "e")
	svc.UpdateBindings([]Binding{
		{ID: "first", Action: ActionEnableAll, Mods: ModControl | ModAlt, Key: keyE, Enabled: true},
		{ID: "second", Action: ActionDisableAll, Mods: ModControl | ModAlt, Key: keyE, Enabled: true},
	})

	svc.onKey(vkLControl, true)
	svc.onKey(vkLMenu, true)
	svc.onKey(keyE, true)

	b, ok := recvTriggered(t, sub)
	if !ok {
		t.Fatal("expected a trigger event")
	}
	if b.ID != "first" {
		t.Errorf("matched binding %q, want %q", b.ID, "first")
	}

	// The duplicate must not fire as well.
	if _, ok := recvTriggered(t, sub); ok {
		t.Error("duplicate combo fired a second event")
	}
}

func TestModifierKeyDownAloneNeverTriggers(t *testing.T) {
	bus := core.NewEventBus()
	sub := bus.Subscribe(core.HotkeyTriggeredEvent)
	svc, _ := newTestService(bus)

	svc.UpdateBindings([]Binding{
		{ID: "hk", Action: ActionSwitch, Mods: ModControl | ModAlt, Key: mustKey(t, "s"), Enabled: true},
	})

	svc.onKey(vkLControl, true)
	svc.onKey(vkLMenu, true)

	if _, ok := recvTriggered(t, sub); ok {
		t.Error("modifier key-downs alone must not trigger")
	}
}

func TestModifierVariantsFoldIntoOneMask(t *testing.T) {
	bus := core.NewEventBus()
	sub := bus.Subscribe(core.HotkeyTriggeredEvent)
	svc, _ := newTestService(bus)

	keyS := mustKey(t, "s")
	svc.UpdateBindings([]Binding{
		{ID: "hk", Action: ActionSwitch, Mods: ModControl | ModAlt, Key: keyS, Enabled: true},
	})

	// Right control and left alt must match the same mask as their generic
	// counterparts.
	svc.onKey(vkRControl, true)
	svc.onKey(vkLMenu, true)
	svc.onKey(keyS, true)

	if _, ok := recvTriggered(t, sub); !ok {
		t.Error("right/left variant modifiers did not match the binding mask")
	}
}

func TestReleasedModifierNoLongerCounts(t *testing.T) {
	bus := core.NewEventBus()
	sub := bus.Subscribe(core.HotkeyTriggeredEvent)
	svc, _ := newTestService(bus)

	keyE := mustKey(t, "e")
	svc.UpdateBindings([]Binding{
		{ID: "hk", Action: ActionEnableAll, Mods: ModControl, Key: keyE, Enabled: true},
	})

	svc.onKey(vkLControl, true)
	svc.onKey(vkLControl, false)
	svc.onKey(keyE, true)

	if _, ok := recvTriggered(t, sub); ok {
		t.Error("binding fired after its modifier was released")
	}
}

func TestExtraHeldModifierPreventsMatch(t *testing.T) {
	bus := core.NewEventBus()
	sub := bus.Subscribe(core.HotkeyTriggeredEvent)
	svc, _ := newTestService(bus)

	keyE := mustKey(t, "e")
	svc.UpdateBindings([]Binding{
		{ID: "hk", Action: ActionEnableAll, Mods: ModControl, Key: keyE, Enabled: true},
	})

	// ctrl+shift+e is not ctrl+e: the match is exact, not subset.
	svc.onKey(vkLControl, true)
	svc.onKey(vkLShift, true)
	svc.onKey(keyE, true)

	if _, ok := recvTriggered(t, sub); ok {
		t.Error("binding fired with an extra modifier held")
	}
}

func TestUpdateBindingsFiltersDisabledAndInvalid(t *testing.T) {
	svc, _ := newTestService(core.NewEventBus())

	keyE := mustKey(t, "e")
	svc.UpdateBindings([]Binding{
		{ID: "ok", Action: ActionEnableAll, Mods: ModControl, Key: keyE, Enabled: true},
		{ID: "off", Action: ActionDisableAll, Mods: ModControl, Key: keyE, Enabled: false},
		{ID: "no-mods", Action: ActionSwitch, Mods: 0, Key: keyE, Enabled: true},
		{ID: "no-key", Action: ActionSwitch, Mods: ModControl, Key: 0, Enabled: true},
	})

	if got := svc.BindingCount(); got != 1 {
		t.Errorf("BindingCount() = %d, want 1", got)
	}
}

func TestDispatchRateLimit(t *testing.T) {
	bus := core.NewEventBus()
	sub := bus.Subscribe(core.HotkeyTriggeredEvent)

	// One event per hundred seconds, burst of one: only the first key-down
	// in this test may dispatch.
	svc := NewService(bus, 0.01, 1)
	svc.install = func(onKey func(vk Key, down bool)) (hookPort, error) {
		return &fakePort{handle: 1}, nil
	}

	keyE := mustKey(t, "e")
	svc.UpdateBindings([]Binding{
		{ID: "hk", Action: ActionEnableAll, Mods: ModControl, Key: keyE, Enabled: true},
	})

	svc.onKey(vkLControl, true)
	svc.onKey(keyE, true)
	svc.onKey(keyE, true) // auto-repeat

	if _, ok := recvTriggered(t, sub); !ok {
		t.Fatal("first trigger should dispatch")
	}
	if _, ok := recvTriggered(t, sub); ok {
		t.Error("rate limiter should have dropped the repeat")
	}
}

func TestLastActivityTracksKeyEvents(t *testing.T) {
	svc, _ := newTestService(core.NewEventBus())

	if !svc.LastActivity().IsZero() {
		t.Error("LastActivity should be zero before any key event")
	}
	svc.onKey(mustKey(t, "a"), true)
	if svc.LastActivity().IsZero() {
		t.Error("LastActivity should be set after a key event")
	}
}
