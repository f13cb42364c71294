// Package runtime wires hardware events through binding resolution, target
// mutation, and hardware feedback, and runs the background reconciliation
// that keeps physical controls converged with true audio state.
package runtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/PixPMusic/gopher-mixer/internal/audio"
	"github.com/PixPMusic/gopher-mixer/internal/bindings"
	"github.com/PixPMusic/gopher-mixer/internal/learn"
	"github.com/PixPMusic/gopher-mixer/internal/logging"
	"github.com/PixPMusic/gopher-mixer/internal/model"
	"github.com/PixPMusic/gopher-mixer/internal/profile"
)

const (
	// userActivityWindow is how long after a user interaction a control is
	// considered actively held, suppressing background feedback for it.
	userActivityWindow = 500 * time.Millisecond
	// reassertDelay gives the hardware time to finish processing a note-off
	// before the latched LED state is re-sent.
	reassertDelay = 20 * time.Millisecond
	// removeGrace bounds the race between binding removal and an in-flight
	// reconcile pass that read the binding before it was dropped.
	removeGrace = 100 * time.Millisecond
	// feedbackEpsilon is the change below which a feedback write is skipped.
	feedbackEpsilon = 0.005
)

// Feedback is the outbound half of the MIDI transport consumed here.
// *midi.Manager implements it.
type Feedback interface {
	SendFeedback(deviceID string, channel, controller uint8, value float64, msgType model.MidiMessageType) error
}

// Runtime owns the shared mutable state behind independent short-held
// locks, one per logical resource. No operation holds more than one lock at
// a time; values are copied out before a dependent lock is taken.
type Runtime struct {
	audio    audio.Control
	feedback Feedback
	profiles *profile.Store
	notifier Notifier

	learn   *learn.Controller
	tracker *bindings.Tracker
	cache   *feedbackCache

	profileMu     sync.Mutex
	activeProfile *model.Profile

	osdMu         sync.Mutex
	osdLastUpdate time.Time

	reasserts *reassertScheduler
	log       *slog.Logger
	audioLog  *slog.Logger
}

// New assembles a runtime. notifier may be nil, in which case notifications
// are discarded.
func New(audioControl audio.Control, feedback Feedback, profiles *profile.Store, notifier Notifier) *Runtime {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Runtime{
		audio:     audioControl,
		feedback:  feedback,
		profiles:  profiles,
		notifier:  notifier,
		learn:     learn.NewController(),
		tracker:   bindings.NewTracker(),
		cache:     newFeedbackCache(),
		reasserts: newReassertScheduler(),
		log:       logging.Get(logging.App),
		audioLog:  logging.Get(logging.Audio),
	}
}

// ApplyMidiEvent is the dispatch entry point, invoked from the transport's
// callback goroutine for every decoded event. Learn capture preempts normal
// binding dispatch entirely.
func (r *Runtime) ApplyMidiEvent(event model.MidiEvent) error {
	if r.learn.Observe(event) {
		return nil
	}

	prof := r.profileSnapshot()
	if prof == nil {
		return nil
	}

	key := bindings.KeyFromEvent(event)
	binding, ok := bindings.Find(prof, key)
	if !ok {
		return nil
	}

	value, ok := r.tracker.Apply(binding, event)
	if !ok {
		return nil
	}

	if binding.Action == model.ActionToggleMute {
		return r.dispatchToggleMute(prof, binding, key, event)
	}
	return r.dispatchVolume(prof, binding, key, value)
}

func (r *Runtime) dispatchVolume(prof *model.Profile, binding model.Binding, key bindings.Key, value float64) error {
	switch binding.Target.Kind {
	case model.TargetUnset:
		return nil
	case model.TargetIntegration:
		r.notifier.IntegrationTriggered(IntegrationTrigger{
			BindingID: binding.ID,
			Action:    "Volume",
			Value:     value,
			Target:    binding.Target,
		})
		return nil
	}

	if err := r.applyVolumeTarget(binding.Target, value); err != nil {
		return err
	}

	r.cache.Set(key, value)
	r.noteOsdActivity()

	if err := r.feedback.SendFeedback(binding.DeviceID, binding.Control.Channel, binding.Control.Controller, value, binding.Control.MsgType); err != nil {
		r.log.Warn("feedback send failed", "binding", binding.ID, "err", err)
	}

	r.notifier.VolumeUpdate(VolumeUpdate{
		Target:       binding.Target,
		Volume:       value,
		FocusSession: r.focusSnapshot(binding.Target),
		BindingID:    binding.ID,
	})
	if prof.OsdSettings.Enabled {
		r.notifier.ShowOSD()
	}
	return nil
}

func (r *Runtime) dispatchToggleMute(prof *model.Profile, binding model.Binding, key bindings.Key, event model.MidiEvent) error {
	// Refresh user activity so the reconcile pass leaves this key alone.
	r.tracker.Touch(key)

	// A momentary button's note-off would clear the controller's LED even
	// though the latched state is unchanged. Re-assert the cached value
	// shortly after instead of toggling again.
	if event.Value == 0 && event.MsgType == model.MessageNote {
		r.reasserts.schedule(key, reassertDelay, func() {
			value, _ := r.cache.Get(key)
			_ = r.feedback.SendFeedback(binding.DeviceID, binding.Control.Channel, binding.Control.Controller, value, binding.Control.MsgType)
		})
		return nil
	}

	muted, done, err := r.toggleMuteTarget(binding, key)
	if err != nil {
		return err
	}
	if !done {
		return nil
	}

	r.noteOsdActivity()
	feedbackValue := 0.0
	if muted {
		feedbackValue = 1.0
	}
	r.cache.Set(key, feedbackValue)

	if err := r.feedback.SendFeedback(binding.DeviceID, binding.Control.Channel, binding.Control.Controller, feedbackValue, binding.Control.MsgType); err != nil {
		r.log.Warn("feedback send failed", "binding", binding.ID, "err", err)
	}

	r.notifier.MuteUpdate(MuteUpdate{
		Target:       binding.Target,
		Muted:        muted,
		Action:       "toggle_mute",
		FocusSession: r.focusSnapshot(binding.Target),
		BindingID:    binding.ID,
	})
	if prof.OsdSettings.Enabled {
		r.notifier.ShowOSD()
	}
	return nil
}

// profileSnapshot copies the active profile out from under its lock.
func (r *Runtime) profileSnapshot() *model.Profile {
	r.profileMu.Lock()
	defer r.profileMu.Unlock()
	if r.activeProfile == nil {
		return nil
	}
	snapshot := *r.activeProfile
	snapshot.Bindings = append([]model.Binding(nil), r.activeProfile.Bindings...)
	return &snapshot
}

func (r *Runtime) focusSnapshot(target model.BindingTarget) *model.SessionInfo {
	if target.Kind != model.TargetFocus {
		return nil
	}
	focused, err := r.audio.FocusedSession()
	if err != nil {
		return nil
	}
	return focused
}

func (r *Runtime) noteOsdActivity() {
	r.osdMu.Lock()
	r.osdLastUpdate = time.Now()
	r.osdMu.Unlock()
}

// reassertScheduler tracks delayed feedback re-assertions keyed by control,
// so a rapid double release cannot leave two in flight for the same key.
// Callbacks re-check their registration under the lock before running;
// timer.Stop alone cannot stop a callback that has already fired.
type reassertScheduler struct {
	mu     sync.Mutex
	timers map[bindings.Key]*time.Timer
	closed bool
}

func newReassertScheduler() *reassertScheduler {
	return &reassertScheduler{timers: make(map[bindings.Key]*time.Timer)}
}

func (s *reassertScheduler) schedule(key bindings.Key, delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.closed || s.timers[key] != timer {
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()
		fn()
	})
	s.timers[key] = timer
}

func (s *reassertScheduler) cancel(key bindings.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if timer, ok := s.timers[key]; ok {
		timer.Stop()
		delete(s.timers, key)
	}
}

// close cancels everything and refuses further scheduling. A callback that
// already fired observes the flag and does nothing.
func (s *reassertScheduler) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, timer := range s.timers {
		timer.Stop()
		delete(s.timers, key)
	}
}
