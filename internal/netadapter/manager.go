package netadapter

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"
)

// Manager layers the agent's adapter logic over the raw Client: single
// operations with structured results, batch enable/disable with
// partial-success aggregation, and the A/B switch state machine.
type Manager struct {
	client Client

	// opMu serializes mutating operations so a switch cannot interleave
	// with a batch enable running from another trigger.
	opMu sync.Mutex

	// settleDelay guards the gap between disabling one adapter of the pair
	// and enabling the other: re-querying adapter state right after a
	// disable can race with the driver state transition. Pragmatic, not a
	// guarantee.
	settleDelay time.Duration

	pairMu   sync.Mutex
	adapterA string
	adapterB string
}

// NewManager creates a manager for the given client and adapter pair.
func NewManager(client Client, adapterA, adapterB string, settleDelay time.Duration) *Manager {
	return &Manager{
		client:      client,
		adapterA:    adapterA,
		adapterB:    adapterB,
		settleDelay: settleDelay,
	}
}

// SetPair changes the two designated switch adapters.
func (m *Manager) SetPair(a, b string) {
	m.pairMu.Lock()
	m.adapterA = a
	m.adapterB = b
	m.pairMu.Unlock()
	log.Printf("[Adapters] switch pair set: A=%s B=%s", a, b)
}

// Pair returns the designated adapter device ids.
func (m *Manager) Pair() (string, string) {
	m.pairMu.Lock()
	defer m.pairMu.Unlock()
	return m.adapterA, m.adapterB
}

// List returns a fresh adapter snapshot from the OS.
func (m *Manager) List(ctx context.Context) ([]Adapter, error) {
	return m.client.List(ctx)
}

// Enable enables one adapter and returns a structured result.
func (m *Manager) Enable(ctx context.Context, deviceID string) OperationResult {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.setEnabled(ctx, deviceID, deviceID, true)
}

// Disable disables one adapter and returns a structured result.
func (m *Manager) Disable(ctx context.Context, deviceID string) OperationResult {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.setEnabled(ctx, deviceID, deviceID, false)
}

// EnableAll attempts to enable every physical adapter. Individual failures
// do not abort the batch; the result carries per-adapter outcomes.
func (m *Manager) EnableAll(ctx context.Context) (BatchResult, error) {
	return m.batch(ctx, true)
}

// DisableAll attempts to disable every physical adapter.
func (m *Manager) DisableAll(ctx context.Context) (BatchResult, error) {
	return m.batch(ctx, false)
}

func (m *Manager) batch(ctx context.Context, enable bool) (BatchResult, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	adapters, err := m.client.List(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("list adapters: %w", err)
	}

	var res BatchResult
	for _, a := range adapters {
		res.add(m.setEnabled(ctx, a.DeviceID, a.Name, enable))
	}
	log.Printf("[Adapters] batch enable=%v: %s", enable, res.Summary())
	return res, nil
}

// Switch toggles between the designated A and B adapters. Exactly one of
// the pair ends up enabled except in the both-off case, where only A is
// brought up. When both are somehow on, the A branch fires first and wins;
// that asymmetry is policy, not an accident.
func (m *Manager) Switch(ctx context.Context) (string, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	idA, idB := m.Pair()
	if idA == "" || idB == "" {
		return "", errors.New("switch adapters are not configured")
	}

	adapters, err := m.client.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list adapters: %w", err)
	}

	a, okA := findAdapter(adapters, idA)
	b, okB := findAdapter(adapters, idB)
	if !okA {
		return "", fmt.Errorf("switch adapter A (%s) not found", idA)
	}
	if !okB {
		return "", fmt.Errorf("switch adapter B (%s) not found", idB)
	}

	switch {
	case a.Enabled:
		if err := m.swap(ctx, a, b); err != nil {
			return "", err
		}
		return fmt.Sprintf("switched from %s to %s", a.Name, b.Name), nil

	case b.Enabled:
		if err := m.swap(ctx, b, a); err != nil {
			return "", err
		}
		return fmt.Sprintf("switched from %s to %s", b.Name, a.Name), nil

	default:
		// Both off: bring up A only.
		if err := m.client.Enable(ctx, a.DeviceID); err != nil {
			return "", fmt.Errorf("enable %s: %w", a.Name, err)
		}
		return fmt.Sprintf("both adapters were off, enabled %s", a.Name), nil
	}
}

// swap disables the active adapter, waits out the settle delay and enables
// the other one. Both steps must succeed for the swap to count.
func (m *Manager) swap(ctx context.Context, from, to Adapter) error {
	if err := m.client.Disable(ctx, from.DeviceID); err != nil {
		return fmt.Errorf("disable %s: %w", from.Name, err)
	}
	if err := m.settle(ctx); err != nil {
		return err
	}
	if err := m.client.Enable(ctx, to.DeviceID); err != nil {
		return fmt.Errorf("enable %s: %w", to.Name, err)
	}
	return nil
}

// settle sleeps for the configured delay, waking early on cancellation.
func (m *Manager) settle(ctx context.Context) error {
	select {
	case <-time.After(m.settleDelay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) setEnabled(ctx context.Context, deviceID, name string, enable bool) OperationResult {
	res := OperationResult{DeviceID: deviceID, Name: name}

	var err error
	verb := "disabled"
	if enable {
		verb = "enabled"
		err = m.client.Enable(ctx, deviceID)
	} else {
		err = m.client.Disable(ctx, deviceID)
	}

	if err != nil {
		res.Message = err.Error()
		log.Printf("[Adapters] %s: %v", name, err)
		return res
	}
	res.Success = true
	res.Message = fmt.Sprintf("adapter %s %s", name, verb)
	return res
}

func findAdapter(adapters []Adapter, deviceID string) (Adapter, bool) {
	for _, a := range adapters {
		if a.DeviceID == deviceID {
			return a, true
		}
	}
	return Adapter{}, false
}
