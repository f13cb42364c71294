package runtime

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PixPMusic/gopher-mixer/internal/audio/audiotest"
	"github.com/PixPMusic/gopher-mixer/internal/bindings"
	"github.com/PixPMusic/gopher-mixer/internal/model"
	"github.com/PixPMusic/gopher-mixer/internal/profile"
)

type feedbackSend struct {
	DeviceID   string
	Channel    uint8
	Controller uint8
	Value      float64
	MsgType    model.MidiMessageType
}

// fakeFeedback records SendFeedback calls in order.
type fakeFeedback struct {
	mu    sync.Mutex
	sends []feedbackSend
}

func (f *fakeFeedback) SendFeedback(deviceID string, channel, controller uint8, value float64, msgType model.MidiMessageType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sends = append(f.sends, feedbackSend{deviceID, channel, controller, value, msgType})
	return nil
}

func (f *fakeFeedback) all() []feedbackSend {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]feedbackSend, len(f.sends))
	copy(out, f.sends)
	return out
}

func (f *fakeFeedback) last() (feedbackSend, bool) {
	sends := f.all()
	if len(sends) == 0 {
		return feedbackSend{}, false
	}
	return sends[len(sends)-1], true
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu       sync.Mutex
	volumes  []VolumeUpdate
	mutes    []MuteUpdate
	triggers []IntegrationTrigger
	shows    int
	hides    int
}

func (n *recordingNotifier) VolumeUpdate(update VolumeUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.volumes = append(n.volumes, update)
}

func (n *recordingNotifier) MuteUpdate(update MuteUpdate) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mutes = append(n.mutes, update)
}

func (n *recordingNotifier) IntegrationTriggered(trigger IntegrationTrigger) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.triggers = append(n.triggers, trigger)
}

func (n *recordingNotifier) ShowOSD() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shows++
}

func (n *recordingNotifier) HideOSD() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.hides++
}

func newTestRuntime(t *testing.T) (*Runtime, *audiotest.Fake, *fakeFeedback, *recordingNotifier) {
	t.Helper()
	fake := audiotest.New()
	fake.Sessions = []model.SessionInfo{
		{ID: "master", DisplayName: "Master", IsMaster: true, Volume: 0.5},
		{ID: "s-1", DisplayName: "Spotify", ProcessName: "spotify.exe", Volume: 0.4},
	}
	fb := &fakeFeedback{}
	notif := &recordingNotifier{}
	rt := New(fake, fb, profile.NewStore(t.TempDir()), notif)
	_, err := rt.LoadProfile("Default")
	require.NoError(t, err)
	return rt, fake, fb, notif
}

func masterVolumeBinding() model.Binding {
	return model.Binding{
		ID:       "b-master",
		Name:     "master fader",
		DeviceID: "midi:0",
		Control:  model.MidiControl{Channel: 1, Controller: 7, MsgType: model.MessageControlChange},
		Target:   model.MasterTarget(),
		Action:   model.ActionVolume,
		Mode:     model.ModeAbsolute,
	}
}

func muteButtonBinding(target model.BindingTarget) model.Binding {
	return model.Binding{
		ID:       "b-mute",
		Name:     "mute button",
		DeviceID: "midi:0",
		Control:  model.MidiControl{Channel: 0, Controller: 41, MsgType: model.MessageNote},
		Target:   target,
		Action:   model.ActionToggleMute,
		Mode:     model.ModeAbsolute,
	}
}

func ccEvent(channel, controller, value uint8) model.MidiEvent {
	return model.MidiEvent{
		DeviceID:   "midi:0",
		Channel:    channel,
		Controller: controller,
		Value:      value,
		MsgType:    model.MessageControlChange,
	}
}

func noteEvent(controller, value uint8) model.MidiEvent {
	return model.MidiEvent{
		DeviceID:   "midi:0",
		Channel:    0,
		Controller: controller,
		Value:      value,
		MsgType:    model.MessageNote,
	}
}

func TestVolumeDispatch(t *testing.T) {
	rt, fake, fb, notif := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))

	require.NoError(t, rt.ApplyMidiEvent(ccEvent(1, 7, 127)))

	assert.InDelta(t, 1.0, fake.MasterVolume, 1e-9)

	send, ok := fb.last()
	require.True(t, ok)
	assert.Equal(t, feedbackSend{"midi:0", 1, 7, 1.0, model.MessageControlChange}, send)

	key := bindings.Key{DeviceID: "midi:0", Channel: 1, Controller: 7}
	cached, ok := rt.cache.Get(key)
	require.True(t, ok)
	assert.InDelta(t, 1.0, cached, 1e-9)

	require.Len(t, notif.volumes, 1)
	assert.Equal(t, "b-master", notif.volumes[0].BindingID)
	assert.InDelta(t, 1.0, notif.volumes[0].Volume, 1e-9)
	assert.Equal(t, 1, notif.shows)
}

func TestUnboundEventIsIgnored(t *testing.T) {
	rt, fake, fb, _ := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))

	require.NoError(t, rt.ApplyMidiEvent(ccEvent(1, 99, 127)))
	assert.Zero(t, fake.CallCount("SetMasterVolume"))
	assert.Empty(t, fb.all())
}

func TestUnsetTargetIsIgnored(t *testing.T) {
	rt, fake, fb, _ := newTestRuntime(t)
	binding := masterVolumeBinding()
	binding.Target = model.UnsetTarget()
	require.NoError(t, rt.AddBinding(binding))

	require.NoError(t, rt.ApplyMidiEvent(ccEvent(1, 7, 127)))
	assert.Empty(t, fake.Calls)
	assert.Empty(t, fb.all())
}

func TestLearnPreemptsDispatch(t *testing.T) {
	rt, fake, _, _ := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))

	rt.StartLearn()
	require.NoError(t, rt.ApplyMidiEvent(ccEvent(1, 7, 127)))

	assert.Zero(t, fake.CallCount("SetMasterVolume"), "a captured event must not dispatch")

	learned := rt.ConsumeLearnedControl()
	require.NotNil(t, learned)
	assert.Equal(t, uint8(7), learned.Controller)
	assert.Equal(t, model.MessageControlChange, learned.MsgType)

	// Learn is disarmed; the next event dispatches normally.
	require.NoError(t, rt.ApplyMidiEvent(ccEvent(1, 7, 64)))
	assert.Equal(t, 1, fake.CallCount("SetMasterVolume"))
}

func TestToggleMutePressAndRelease(t *testing.T) {
	rt, fake, fb, notif := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(muteButtonBinding(model.MasterTarget())))

	require.NoError(t, rt.ApplyMidiEvent(noteEvent(41, 127)))
	assert.True(t, fake.MasterMuted)
	require.Len(t, notif.mutes, 1)
	assert.True(t, notif.mutes[0].Muted)

	send, ok := fb.last()
	require.True(t, ok)
	assert.InDelta(t, 1.0, send.Value, 1e-9, "LED reflects the latched mute state")

	// Release must not toggle again; it re-asserts the latched LED state
	// shortly after.
	before := len(fb.all())
	require.NoError(t, rt.ApplyMidiEvent(noteEvent(41, 0)))
	assert.Equal(t, 1, fake.CallCount("SetMasterMute"))

	time.Sleep(reassertDelay + 30*time.Millisecond)
	sends := fb.all()
	require.Greater(t, len(sends), before)
	assert.InDelta(t, 1.0, sends[len(sends)-1].Value, 1e-9)
	assert.Equal(t, 1, fake.CallCount("SetMasterMute"))

	// Second press unmutes.
	require.NoError(t, rt.ApplyMidiEvent(noteEvent(41, 127)))
	assert.False(t, fake.MasterMuted)
	send, _ = fb.last()
	assert.InDelta(t, 0.0, send.Value, 1e-9)
}

func TestToggleMuteMissingSessionIsQuiet(t *testing.T) {
	rt, fake, fb, notif := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(muteButtonBinding(model.SessionTarget("gone"))))

	require.NoError(t, rt.ApplyMidiEvent(noteEvent(41, 127)))
	assert.Zero(t, fake.CallCount("SetSessionMute"))
	assert.Empty(t, fb.all())
	assert.Empty(t, notif.mutes)
}

func TestIntegrationVolumeTrigger(t *testing.T) {
	rt, fake, fb, notif := newTestRuntime(t)
	binding := masterVolumeBinding()
	binding.Target = model.IntegrationTarget("obs", "input", json.RawMessage(`{"input_name":"Mic"}`))
	require.NoError(t, rt.AddBinding(binding))

	require.NoError(t, rt.ApplyMidiEvent(ccEvent(1, 7, 127)))

	assert.Empty(t, fake.Calls, "integration targets never touch the audio backend")
	assert.Empty(t, fb.all())
	require.Len(t, notif.triggers, 1)
	assert.Equal(t, "Volume", notif.triggers[0].Action)
	assert.InDelta(t, 1.0, notif.triggers[0].Value, 1e-9)
	assert.Equal(t, "obs", notif.triggers[0].Target.IntegrationID)
}

func TestIntegrationToggleTrigger(t *testing.T) {
	rt, _, _, notif := newTestRuntime(t)
	binding := muteButtonBinding(model.IntegrationTarget("obs", "action", json.RawMessage(`{"action":"mute"}`)))
	require.NoError(t, rt.AddBinding(binding))

	require.NoError(t, rt.ApplyMidiEvent(noteEvent(41, 127)))
	require.Len(t, notif.triggers, 1)
	assert.Equal(t, "ToggleMute", notif.triggers[0].Action)
	assert.InDelta(t, 1.0, notif.triggers[0].Value, 1e-9)
}

func TestReconcileRespectsUserActivity(t *testing.T) {
	rt, fake, _, _ := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))
	key := bindings.Key{DeviceID: "midi:0", Channel: 1, Controller: 7}

	require.NoError(t, rt.ApplyMidiEvent(ccEvent(1, 7, 127)))

	// Something else changes the master volume right after.
	fake.Sessions[0].Volume = 0.3

	rt.ReconcileOnce()
	cached, ok := rt.cache.Get(key)
	require.True(t, ok)
	assert.InDelta(t, 1.0, cached, 1e-9, "a recently-touched control is left alone")

	// Once the activity window has passed, reconcile converges on true state.
	rt.tracker.Set(key, bindings.State{LastValue: 1.0, LastUpdate: time.Now().Add(-time.Second)})
	rt.ReconcileOnce()
	cached, ok = rt.cache.Get(key)
	require.True(t, ok)
	assert.InDelta(t, 0.3, cached, 1e-9)
}

func TestReconcileReassertsCachedFeedback(t *testing.T) {
	rt, _, fb, _ := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))
	key := bindings.Key{DeviceID: "midi:0", Channel: 1, Controller: 7}
	rt.cache.Set(key, 0.5)
	rt.tracker.Set(key, bindings.State{LastValue: 0.5, LastUpdate: time.Now().Add(-time.Second)})

	rt.ReconcileOnce()
	send, ok := fb.last()
	require.True(t, ok)
	assert.Equal(t, uint8(7), send.Controller)
}

func TestReconcileHidesIdleOsd(t *testing.T) {
	rt, _, _, notif := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))

	rt.osdMu.Lock()
	rt.osdLastUpdate = time.Now().Add(-2 * osdHideAfter)
	rt.osdMu.Unlock()

	rt.ReconcileOnce()
	assert.Equal(t, 1, notif.hides)
	rt.osdMu.Lock()
	assert.True(t, rt.osdLastUpdate.IsZero(), "hiding resets the activity timestamp")
	rt.osdMu.Unlock()

	// Already hidden; the next pass stays quiet.
	rt.ReconcileOnce()
	assert.Equal(t, 1, notif.hides)
}

func TestReconcileLeavesDisabledOsdAlone(t *testing.T) {
	rt, _, _, notif := newTestRuntime(t)

	rt.profileMu.Lock()
	rt.activeProfile.OsdSettings.Enabled = false
	rt.profileMu.Unlock()

	rt.osdMu.Lock()
	rt.osdLastUpdate = time.Now().Add(-2 * osdHideAfter)
	rt.osdMu.Unlock()

	rt.ReconcileOnce()
	assert.Zero(t, notif.hides)
}

func TestReconcileSurvivesAudioFailure(t *testing.T) {
	rt, fake, fb, _ := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))
	key := bindings.Key{DeviceID: "midi:0", Channel: 1, Controller: 7}
	rt.cache.Set(key, 0.7)
	rt.tracker.Set(key, bindings.State{LastValue: 0.7, LastUpdate: time.Now().Add(-time.Second)})

	fake.FailAll = true
	rt.ReconcileOnce()

	// The resync aborted without clobbering the cache, and the cached
	// re-emit still ran.
	cached, ok := rt.cache.Get(key)
	require.True(t, ok)
	assert.InDelta(t, 0.7, cached, 1e-9)

	send, ok := fb.last()
	require.True(t, ok)
	assert.Equal(t, uint8(7), send.Controller)
	assert.InDelta(t, 0.7, send.Value, 1e-9)
}

func TestVolumeDispatchPropagatesAudioFailure(t *testing.T) {
	rt, fake, fb, notif := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))

	fake.FailAll = true
	err := rt.ApplyMidiEvent(ccEvent(1, 7, 127))
	require.Error(t, err)

	// The failure leaves the cache at its primed value and produces neither
	// feedback nor a notification.
	key := bindings.Key{DeviceID: "midi:0", Channel: 1, Controller: 7}
	cached, ok := rt.cache.Get(key)
	require.True(t, ok)
	assert.InDelta(t, 0.5, cached, 1e-9)
	assert.Empty(t, fb.all())
	assert.Empty(t, notif.volumes)
}

func TestAddBindingReplacesSameControl(t *testing.T) {
	rt, _, _, _ := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))

	replacement := masterVolumeBinding()
	replacement.ID = "b-master-2"
	replacement.Target = model.SessionTarget("s-1")
	require.NoError(t, rt.AddBinding(replacement))

	prof := rt.ActiveProfile()
	require.NotNil(t, prof)
	require.Len(t, prof.Bindings, 1)
	assert.Equal(t, "b-master-2", prof.Bindings[0].ID)
}

func TestRemoveBindingZeroesControl(t *testing.T) {
	rt, _, fb, _ := newTestRuntime(t)
	binding := masterVolumeBinding()
	require.NoError(t, rt.AddBinding(binding))
	require.NoError(t, rt.ApplyMidiEvent(ccEvent(1, 7, 127)))

	require.NoError(t, rt.RemoveBinding(binding))

	prof := rt.ActiveProfile()
	require.NotNil(t, prof)
	assert.Empty(t, prof.Bindings)

	key := bindings.Key{DeviceID: "midi:0", Channel: 1, Controller: 7}
	_, ok := rt.cache.Get(key)
	assert.False(t, ok)

	send, ok := fb.last()
	require.True(t, ok)
	assert.InDelta(t, 0.0, send.Value, 1e-9, "the control goes dark after removal")
}

func TestSetBindingFeedbackGuard(t *testing.T) {
	rt, _, fb, notif := newTestRuntime(t)
	binding := masterVolumeBinding()
	require.NoError(t, rt.AddBinding(binding))
	key := bindings.Key{DeviceID: "midi:0", Channel: 1, Controller: 7}
	rt.tracker.Touch(key)

	// Adding the binding primed the cache from true audio state.
	cached, ok := rt.cache.Get(key)
	require.True(t, ok)
	require.InDelta(t, 0.5, cached, 1e-9)

	// Silent background update while the control is held: dropped entirely.
	require.NoError(t, rt.SetBindingFeedback(binding.ID, 0.8, nil, true))
	cached, _ = rt.cache.Get(key)
	assert.InDelta(t, 0.5, cached, 1e-9)
	assert.Empty(t, fb.all())

	// User-driven update while held: state and notification advance, the
	// hardware send is suppressed so the motor does not fight the hand.
	require.NoError(t, rt.SetBindingFeedback(binding.ID, 0.8, nil, false))
	cached, ok = rt.cache.Get(key)
	require.True(t, ok)
	assert.InDelta(t, 0.8, cached, 1e-9)
	assert.Empty(t, fb.all())
	require.Len(t, notif.volumes, 1)
	assert.False(t, notif.volumes[0].Silent)
}

func TestUpdateFeedbackEpsilon(t *testing.T) {
	rt, _, fb, _ := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))
	key := bindings.Key{DeviceID: "midi:0", Channel: 1, Controller: 7}
	rt.cache.Set(key, 0.5)

	require.NoError(t, rt.UpdateFeedback(model.MasterTarget(), 0.503, nil, nil))
	assert.Empty(t, fb.all(), "a sub-epsilon change is not worth a frame")

	require.NoError(t, rt.UpdateFeedback(model.MasterTarget(), 0.6, nil, nil))
	send, ok := fb.last()
	require.True(t, ok)
	assert.InDelta(t, 0.6, send.Value, 1e-9)
	cached, _ := rt.cache.Get(key)
	assert.InDelta(t, 0.6, cached, 1e-9)
}

func TestShutdownBeatsPendingReassert(t *testing.T) {
	rt, _, fb, _ := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(muteButtonBinding(model.MasterTarget())))

	// Press latches the mute, release schedules a re-assert of the lit LED.
	require.NoError(t, rt.ApplyMidiEvent(noteEvent(41, 127)))
	require.NoError(t, rt.ApplyMidiEvent(noteEvent(41, 0)))

	rt.Shutdown()
	sendsAfterShutdown := len(fb.all())

	time.Sleep(reassertDelay + 30*time.Millisecond)
	sends := fb.all()
	assert.Len(t, sends, sendsAfterShutdown, "a pending re-assert must not fire after shutdown")
	assert.InDelta(t, 0.0, sends[len(sends)-1].Value, 1e-9, "the control stays dark")
}

func TestShutdownZeroesBoundControls(t *testing.T) {
	rt, _, fb, _ := newTestRuntime(t)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))
	mute := muteButtonBinding(model.MasterTarget())
	require.NoError(t, rt.AddBinding(mute))

	rt.Shutdown()

	sends := fb.all()
	require.Len(t, sends, 2)
	for _, send := range sends {
		assert.InDelta(t, 0.0, send.Value, 1e-9)
	}
}

func TestProfilePersistence(t *testing.T) {
	dir := t.TempDir()
	store := profile.NewStore(dir)
	rt := New(audiotest.New(), &fakeFeedback{}, store, nil)

	_, err := rt.LoadProfile("Streaming")
	require.NoError(t, err)
	require.NoError(t, rt.AddBinding(masterVolumeBinding()))
	require.NoError(t, rt.SaveActiveProfile())

	// A fresh runtime sees the persisted profile.
	rt2 := New(audiotest.New(), &fakeFeedback{}, store, nil)
	prof, err := rt2.LoadProfile("Streaming")
	require.NoError(t, err)
	require.NotNil(t, prof)
	require.Len(t, prof.Bindings, 1)
	assert.Equal(t, "b-master", prof.Bindings[0].ID)
}
