package bindings

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/PixPMusic/gopher-mixer/internal/model"
)

func cc(value uint8) model.MidiEvent {
	return model.MidiEvent{
		DeviceID:   "midi:0",
		Channel:    0,
		Controller: 7,
		Value:      value,
		MsgType:    model.MessageControlChange,
	}
}

func absoluteBinding() model.Binding {
	return model.Binding{
		ID:       "b1",
		DeviceID: "midi:0",
		Control:  model.MidiControl{Channel: 0, Controller: 7, MsgType: model.MessageControlChange},
		Target:   model.MasterTarget(),
		Action:   model.ActionVolume,
		Mode:     model.ModeAbsolute,
	}
}

func TestApplyAbsolute(t *testing.T) {
	tests := []struct {
		name  string
		value uint8
		want  float64
	}{
		{"minimum", 0, 0.0},
		{"maximum", 127, 1.0},
		{"midpoint", 64, 64.0 / 127.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &State{}
			got, ok := Apply(absoluteBinding(), cc(tt.value), state)
			assert.True(t, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
			assert.Equal(t, got, state.LastValue)
		})
	}
}

func TestApplyPitchBend(t *testing.T) {
	binding := absoluteBinding()
	binding.Control.Controller = model.PitchBendController

	full := uint16(16383)
	event := model.MidiEvent{
		DeviceID:   "midi:0",
		Channel:    0,
		Controller: model.PitchBendController,
		Value14:    &full,
		MsgType:    model.MessagePitchBend,
	}

	state := &State{}
	got, ok := Apply(binding, event, state)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, got, 1e-9)

	zero := uint16(0)
	event.Value14 = &zero
	got, ok = Apply(binding, event, state)
	assert.True(t, ok)
	assert.InDelta(t, 0.0, got, 1e-9)

	// A pitch-bend binding without the 14-bit payload cannot be shaped.
	event.Value14 = nil
	_, ok = Apply(binding, event, state)
	assert.False(t, ok)
}

func TestApplyRelative(t *testing.T) {
	tests := []struct {
		name  string
		start float64
		value uint8
		want  float64
		ok    bool
	}{
		{"zero delta 0", 0.5, 0, 0.5, true},
		{"zero delta 64", 0.5, 64, 0.5, true},
		{"plus one", 0.5, 1, 0.52, true},
		{"minus one", 0.5, 65, 0.48, true},
		{"max positive", 0.5, 63, 1.0, true},
		{"max negative clamps", 0.5, 127, 0.0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			binding := absoluteBinding()
			binding.Mode = model.ModeRelative
			state := &State{LastValue: tt.start}
			got, ok := Apply(binding, cc(tt.value), state)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.InDelta(t, tt.want, got, 1e-9)
			}
		})
	}
}

func TestApplyDebounce(t *testing.T) {
	binding := absoluteBinding()
	binding.DebounceMs = 50

	state := &State{}
	_, ok := Apply(binding, cc(100), state)
	assert.True(t, ok, "first event on a key must never be debounced")

	_, ok = Apply(binding, cc(101), state)
	assert.False(t, ok, "second event inside the window must be suppressed")

	state.LastUpdate = time.Now().Add(-60 * time.Millisecond)
	_, ok = Apply(binding, cc(101), state)
	assert.True(t, ok, "event after the window must pass")
}

func TestApplyDeadzone(t *testing.T) {
	binding := absoluteBinding()
	binding.Deadzone = 0.1

	state := &State{LastValue: 0.5}

	// 64/127 is within 0.1 of 0.5.
	_, ok := Apply(binding, cc(64), state)
	assert.False(t, ok)
	assert.Equal(t, 0.5, state.LastValue)

	got, ok := Apply(binding, cc(127), state)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestApplyDeadzoneExactBoundary(t *testing.T) {
	// A delta of exactly the deadzone is accepted; only smaller deltas are
	// suppressed.
	binding := absoluteBinding()
	binding.Deadzone = 1.0

	state := &State{LastValue: 0.0}
	got, ok := Apply(binding, cc(127), state)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestApplyDebounceBeforeDeadzone(t *testing.T) {
	binding := absoluteBinding()
	binding.DebounceMs = 50
	binding.Deadzone = 0.1

	state := &State{LastValue: 0.5, LastUpdate: time.Now()}

	// Suppressed by debounce even though the jump clears the deadzone.
	_, ok := Apply(binding, cc(127), state)
	assert.False(t, ok)
	assert.Equal(t, 0.5, state.LastValue, "a debounced event must not change state")
}

func TestFind(t *testing.T) {
	binding := absoluteBinding()
	profile := &model.Profile{Name: "test", Bindings: []model.Binding{binding}}

	found, ok := Find(profile, KeyFromBinding(binding))
	assert.True(t, ok)
	assert.Equal(t, binding.ID, found.ID)

	_, ok = Find(profile, Key{DeviceID: "midi:1", Channel: 0, Controller: 7})
	assert.False(t, ok)

	_, ok = Find(nil, KeyFromBinding(binding))
	assert.False(t, ok)
}

func TestTrackerActivity(t *testing.T) {
	tracker := NewTracker()
	key := Key{DeviceID: "midi:0", Channel: 0, Controller: 7}

	assert.False(t, tracker.ActiveWithin(key, time.Second))

	tracker.Touch(key)
	assert.True(t, tracker.ActiveWithin(key, time.Second))

	tracker.Remove(key)
	assert.False(t, tracker.ActiveWithin(key, time.Second))
}

func TestTrackerRelativeAccumulates(t *testing.T) {
	binding := absoluteBinding()
	binding.Mode = model.ModeRelative
	tracker := NewTracker()

	for i := 0; i < 5; i++ {
		_, ok := tracker.Apply(binding, cc(1))
		assert.True(t, ok)
	}
	state, ok := tracker.Get(KeyFromEvent(cc(1)))
	assert.True(t, ok)
	assert.InDelta(t, 0.10, state.LastValue, 1e-9)
}
