package hotkey

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"netadapter-agent/internal/core"
)

// Monitor periodically checks the hook for a null handle and reinstalls it.
//
// Known limitation: a hook that is installed but no longer being called
// looks identical to a user who is simply not typing, so inactivity is
// reported for diagnostics but never used as a reinstall trigger. Only the
// literal null-handle case is recoverable.
type Monitor struct {
	mu            sync.Mutex
	svc           *Service
	interval      time.Duration
	bus           *core.EventBus
	reinstalls    int
	lastReinstall time.Time
}

// NewMonitor creates a health monitor for the given hook service.
func NewMonitor(svc *Service, interval time.Duration, bus *core.EventBus) *Monitor {
	return &Monitor{svc: svc, interval: interval, bus: bus}
}

// Run checks hook health on a fixed interval until the context ends.
func (m *Monitor) Run(ctx context.Context) {
	log.Printf("[Hook] health monitor started (interval %s)", m.interval)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[Hook] health monitor stopped")
			return
		case <-ticker.C:
			m.check()
		}
	}
}

// check reinstalls the hook when its handle has gone null.
func (m *Monitor) check() {
	if m.svc.Handle() != 0 {
		return
	}
	log.Println("[Hook] handle is null, reinstalling")
	m.reinstall()
}

// ForceReinstall tears the hook down and reinstalls it regardless of the
// handle state.
func (m *Monitor) ForceReinstall() error {
	log.Println("[Hook] forced reinstall requested")
	return m.reinstall()
}

func (m *Monitor) reinstall() error {
	if err := m.svc.Reinstall(); err != nil {
		log.Printf("[Hook] reinstall failed: %v", err)
		return err
	}

	m.mu.Lock()
	m.reinstalls++
	m.lastReinstall = time.Now()
	count := m.reinstalls
	m.mu.Unlock()

	log.Printf("[Hook] reinstalled (count %d)", count)
	if m.bus != nil {
		m.bus.Publish(core.Event{
			Type: core.HookReinstalledEvent,
			Payload: map[string]interface{}{
				"reinstalls": count,
				"status":     m.Status(),
			},
		})
	}
	return nil
}

// Reinstalls returns how many times the hook has been reinstalled.
func (m *Monitor) Reinstalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reinstalls
}

// Status returns a human-readable diagnostic line.
func (m *Monitor) Status() string {
	m.mu.Lock()
	reinstalls := m.reinstalls
	lastReinstall := m.lastReinstall
	m.mu.Unlock()

	inactive := "no key activity seen yet"
	if last := m.svc.LastActivity(); !last.IsZero() {
		inactive = fmt.Sprintf("last key activity %ds ago", int(time.Since(last).Seconds()))
	}

	reinstalled := fmt.Sprintf("reinstalls: %d", reinstalls)
	if !lastReinstall.IsZero() {
		reinstalled += fmt.Sprintf(" (last %ds ago)", int(time.Since(lastReinstall).Seconds()))
	}

	return fmt.Sprintf("hook installed: %v; %s; %s; monitored hotkeys: %d",
		m.svc.Installed(), inactive, reinstalled, m.svc.BindingCount())
}
