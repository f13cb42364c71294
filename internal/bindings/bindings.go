// Package bindings resolves incoming hardware events against the active
// profile and shapes their values into the [0,1] range targets consume.
package bindings

import (
	"sync"
	"time"

	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// relativeStep is the value change per unit of relative-encoder delta.
const relativeStep = 0.02

// Key correlates hardware events, persisted bindings, and runtime state.
// Comparable; used directly as a map key.
type Key struct {
	DeviceID   string
	Channel    uint8
	Controller uint8
}

// KeyFromEvent derives the lookup key for a decoded hardware event.
func KeyFromEvent(event model.MidiEvent) Key {
	return Key{DeviceID: event.DeviceID, Channel: event.Channel, Controller: event.Controller}
}

// KeyFromBinding derives the lookup key for a persisted binding.
func KeyFromBinding(binding model.Binding) Key {
	return Key{DeviceID: binding.DeviceID, Channel: binding.Control.Channel, Controller: binding.Control.Controller}
}

// State is the transient per-key runtime state. Never persisted.
type State struct {
	LastValue  float64
	LastUpdate time.Time
}

// Find returns the binding matching key in profile, if any.
func Find(profile *model.Profile, key Key) (model.Binding, bool) {
	if profile == nil {
		return model.Binding{}, false
	}
	for _, binding := range profile.Bindings {
		if KeyFromBinding(binding) == key {
			return binding, true
		}
	}
	return model.Binding{}, false
}

// Apply shapes event against binding, updating state on acceptance.
// The second return is false when the event is suppressed (debounce,
// deadzone, or an undecodable relative delta) and no state change occurred.
//
// Debounce is checked before deadzone on purpose; a debounced event must not
// consume the deadzone budget.
func Apply(binding model.Binding, event model.MidiEvent, state *State) (float64, bool) {
	now := time.Now()
	if binding.DebounceMs > 0 {
		debounce := time.Duration(binding.DebounceMs) * time.Millisecond
		if now.Sub(state.LastUpdate) < debounce {
			return 0, false
		}
	}

	var next float64
	switch binding.Mode {
	case model.ModeRelative:
		delta, ok := relativeDelta(event.Value)
		if !ok {
			return 0, false
		}
		next = clamp(state.LastValue + float64(delta)*relativeStep)
	default:
		value, ok := absoluteValue(binding, event)
		if !ok {
			return 0, false
		}
		next = value
	}

	if binding.Deadzone > 0 && abs(next-state.LastValue) < binding.Deadzone {
		return 0, false
	}

	state.LastValue = next
	state.LastUpdate = now
	return next, true
}

func absoluteValue(binding model.Binding, event model.MidiEvent) (float64, bool) {
	if binding.Control.Controller == model.PitchBendController {
		if event.Value14 == nil {
			return 0, false
		}
		return float64(*event.Value14) / 16383.0, true
	}
	return float64(event.Value) / 127.0, true
}

// relativeDelta decodes the two's-complement style relative encoding:
// 0 and 64 are zero, 1..63 positive, 65..127 negative.
func relativeDelta(value uint8) (int, bool) {
	switch {
	case value == 0 || value == 64:
		return 0, true
	case value >= 1 && value <= 63:
		return int(value), true
	case value >= 65 && value <= 127:
		return -int(value - 64), true
	default:
		return 0, false
	}
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// Tracker owns the per-key state map behind its own lock. It is shared by
// the dispatch path and the reconcile loop's user-activity guard.
type Tracker struct {
	mu     sync.Mutex
	states map[Key]*State
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{states: make(map[Key]*State)}
}

// Apply resolves event against binding under the tracker's lock, creating
// state for the key on first use.
func (t *Tracker) Apply(binding model.Binding, event model.MidiEvent) (float64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := KeyFromEvent(event)
	state, ok := t.states[key]
	if !ok {
		// Zero LastUpdate so the first event on a key is never debounced.
		state = &State{}
		t.states[key] = state
	}
	return Apply(binding, event, state)
}

// Touch refreshes the key's activity timestamp, marking the control as
// actively driven by the user.
func (t *Tracker) Touch(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[key]
	if !ok {
		state = &State{}
		t.states[key] = state
	}
	state.LastUpdate = time.Now()
}

// ActiveWithin reports whether the key saw user activity in the last window.
func (t *Tracker) ActiveWithin(key Key, window time.Duration) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[key]
	if !ok {
		return false
	}
	return time.Since(state.LastUpdate) < window
}

// Remove drops the key's transient state.
func (t *Tracker) Remove(key Key) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.states, key)
}

// Set replaces the key's state. Intended for tests and state restoration.
func (t *Tracker) Set(key Key, state State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	copied := state
	t.states[key] = &copied
}

// Get returns a copy of the key's state.
func (t *Tracker) Get(key Key) (State, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	state, ok := t.states[key]
	if !ok {
		return State{}, false
	}
	return *state, true
}
