package hotkey

import "sync"

// Tracker maintains the set of currently held modifier keys. The hook
// callback and the health monitor touch it from different threads, so all
// access goes through the mutex.
type Tracker struct {
	mu      sync.Mutex
	pressed map[Key]struct{}
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{pressed: make(map[Key]struct{})}
}

// KeyDown records a key press. Only modifier variants are kept; other keys
// never contribute to the mask.
func (t *Tracker) KeyDown(vk Key) {
	if _, ok := modifierFromVK(vk); !ok {
		return
	}
	t.mu.Lock()
	t.pressed[vk] = struct{}{}
	t.mu.Unlock()
}

// KeyUp removes a key from the pressed set.
func (t *Tracker) KeyUp(vk Key) {
	t.mu.Lock()
	delete(t.pressed, vk)
	t.mu.Unlock()
}

// Reset clears all pressed state, used when the hook is reinstalled and any
// previously seen key-downs can no longer be trusted.
func (t *Tracker) Reset() {
	t.mu.Lock()
	t.pressed = make(map[Key]struct{})
	t.mu.Unlock()
}

// Modifiers folds the pressed left/right variants into the active bitmask.
func (t *Tracker) Modifiers() Modifiers {
	t.mu.Lock()
	defer t.mu.Unlock()
	var mods Modifiers
	for vk := range t.pressed {
		if m, ok := modifierFromVK(vk); ok {
			mods |= m
		}
	}
	return mods
}
