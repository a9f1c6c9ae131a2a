package hotkey

import (
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"netadapter-agent/internal/core"
)

// hookPort is an installed OS hook. Handle returns the raw hook handle
// (zero when the hook has silently gone away) and Close tears it down.
type hookPort interface {
	Handle() uintptr
	Close() error
}

// installFunc installs the platform hook and delivers raw key events to the
// given callback. The real implementation lives in the per-OS files.
type installFunc func(onKey func(vk Key, down bool)) (hookPort, error)

// Service owns the process-wide low-level keyboard hook: it tracks held
// modifiers, matches key-downs against the configured bindings and publishes
// a HotkeyTriggered event for each match. Matched combos are still passed on
// to the rest of the system, the hook never swallows keys.
type Service struct {
	mu          sync.Mutex
	install     installFunc
	port        hookPort
	bindings    []Binding
	installedAt time.Time
	lastKeyAt   time.Time

	tracker *Tracker
	bus     *core.EventBus
	limiter *rate.Limiter
}

// NewService creates the hook service. The rate limiter paces event
// dispatch so key auto-repeat cannot flood the command pipeline.
func NewService(bus *core.EventBus, dispatchRate float64, dispatchBurst int) *Service {
	return &Service{
		install: installHook,
		tracker: NewTracker(),
		bus:     bus,
		limiter: rate.NewLimiter(rate.Limit(dispatchRate), dispatchBurst),
	}
}

// Install registers the low-level hook. Failure is returned to the caller
// instead of being swallowed; the health monitor retries on its next cycle
// because the handle stays null.
func (s *Service) Install() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.port != nil && s.port.Handle() != 0 {
		return nil
	}

	port, err := s.install(s.onKey)
	if err != nil {
		return fmt.Errorf("keyboard hook install: %w", err)
	}
	s.port = port
	s.installedAt = time.Now()
	log.Printf("[Hook] installed (handle=%#x)", port.Handle())
	return nil
}

// Uninstall removes the hook and clears all pressed-key state.
func (s *Service) Uninstall() {
	s.mu.Lock()
	port := s.port
	s.port = nil
	s.mu.Unlock()

	// Close outside the lock: the message loop may be mid-callback and the
	// callback takes s.mu.
	if port != nil {
		if err := port.Close(); err != nil {
			log.Printf("[Hook] uninstall: %v", err)
		}
	}
	s.tracker.Reset()
}

// Reinstall tears the hook down (if present) and installs it from scratch.
func (s *Service) Reinstall() error {
	s.Uninstall()
	return s.Install()
}

// Installed reports whether a live hook handle exists.
func (s *Service) Installed() bool {
	return s.Handle() != 0
}

// Handle returns the raw OS hook handle, zero when not installed.
func (s *Service) Handle() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.port == nil {
		return 0
	}
	return s.port.Handle()
}

// UpdateBindings hot-swaps the monitored hotkey list. Disabled and
// structurally invalid entries are filtered out here; list order is kept,
// so duplicate combos resolve to the first entry.
func (s *Service) UpdateBindings(all []Binding) {
	active := make([]Binding, 0, len(all))
	for _, b := range all {
		if b.Enabled && b.Valid() {
			active = append(active, b)
		}
	}

	s.mu.Lock()
	s.bindings = active
	s.mu.Unlock()
	log.Printf("[Hook] monitoring %d of %d configured hotkeys", len(active), len(all))
}

// BindingCount returns the number of hotkeys currently monitored.
func (s *Service) BindingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bindings)
}

// LastActivity returns the time of the last observed key event. Zero when
// no key has been seen since install.
func (s *Service) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastKeyAt
}

// onKey runs on the OS hook thread for every key event in the system. It
// must stay cheap and must never panic into the OS callback, so the work is
// limited to tracking, matching and a non-blocking publish.
func (s *Service) onKey(vk Key, down bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Hook] recovered panic in key callback: %v", r)
		}
	}()

	s.mu.Lock()
	s.lastKeyAt = time.Now()
	s.mu.Unlock()

	if !down {
		s.tracker.KeyUp(vk)
		return
	}

	// A modifier key-down only updates the pressed set; it is never a
	// trigger on its own.
	if _, isMod := modifierFromVK(vk); isMod {
		s.tracker.KeyDown(vk)
		return
	}

	mods := s.tracker.Modifiers()
	binding, ok := s.match(vk, mods)
	if !ok {
		return
	}
	if !s.limiter.Allow() {
		log.Printf("[Hook] dispatch rate limit hit, dropping %s", binding.Combo())
		return
	}

	log.Printf("[Hook] %s -> %s", binding.Combo(), binding.Action)
	s.bus.Publish(core.Event{Type: core.HotkeyTriggeredEvent, Payload: binding})
}

// match scans the active bindings in list order; the first exact
// (key, modifier-mask) hit wins.
func (s *Service) match(vk Key, mods Modifiers) (Binding, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bindings {
		if b.Key == vk && b.Mods == mods {
			return b, true
		}
	}
	return Binding{}, false
}
