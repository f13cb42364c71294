package runtime

import (
	"fmt"
	"math"
	"time"

	"github.com/PixPMusic/gopher-mixer/internal/bindings"
	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// LoadProfile makes the named profile active, creating an empty one if it
// has never been saved, and primes the feedback cache from audio state.
func (r *Runtime) LoadProfile(name string) (*model.Profile, error) {
	prof, err := r.profiles.Load(name)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		fresh := model.Profile{Name: name, OsdSettings: model.DefaultOsdSettings()}
		prof = &fresh
	}

	r.profileMu.Lock()
	r.activeProfile = prof
	r.profileMu.Unlock()

	snapshot := r.profileSnapshot()
	r.syncFeedbackValues(snapshot)
	return snapshot, nil
}

// ActiveProfile returns a copy of the active profile, or nil.
func (r *Runtime) ActiveProfile() *model.Profile {
	return r.profileSnapshot()
}

// SaveActiveProfile persists the active profile.
func (r *Runtime) SaveActiveProfile() error {
	snapshot := r.profileSnapshot()
	if snapshot == nil {
		return fmt.Errorf("no active profile")
	}
	return r.profiles.Save(*snapshot)
}

// AddBinding adds a binding to the active profile, replacing any existing
// binding on the same device and control, and resyncs feedback so the
// hardware reflects the bound target immediately.
func (r *Runtime) AddBinding(binding model.Binding) error {
	r.profileMu.Lock()
	if r.activeProfile == nil {
		r.activeProfile = &model.Profile{Name: "Default", OsdSettings: model.DefaultOsdSettings()}
	}
	kept := r.activeProfile.Bindings[:0]
	for _, existing := range r.activeProfile.Bindings {
		if existing.DeviceID == binding.DeviceID && existing.Control == binding.Control {
			continue
		}
		kept = append(kept, existing)
	}
	r.activeProfile.Bindings = append(kept, binding)
	r.profileMu.Unlock()

	r.syncFeedbackValues(r.profileSnapshot())
	return nil
}

// RemoveBinding drops a binding in two phases: remove it from the profile
// and persist (stopping future dispatch), clear transient state, then after
// a grace period send a final zero so the control goes dark. The grace
// period bounds the race against a reconcile pass that read the binding
// before removal.
func (r *Runtime) RemoveBinding(binding model.Binding) error {
	var snapshot *model.Profile
	r.profileMu.Lock()
	if r.activeProfile != nil {
		kept := r.activeProfile.Bindings[:0]
		for _, existing := range r.activeProfile.Bindings {
			if existing.ID != binding.ID {
				kept = append(kept, existing)
			}
		}
		r.activeProfile.Bindings = kept
		copied := *r.activeProfile
		copied.Bindings = append([]model.Binding(nil), kept...)
		snapshot = &copied
	}
	r.profileMu.Unlock()

	if snapshot != nil {
		if err := r.profiles.Save(*snapshot); err != nil {
			return err
		}
	}

	key := bindings.KeyFromBinding(binding)
	r.cache.Remove(key)
	r.tracker.Remove(key)
	r.reasserts.cancel(key)

	time.Sleep(removeGrace)

	if err := r.feedback.SendFeedback(binding.DeviceID, binding.Control.Channel, binding.Control.Controller, 0.0, binding.Control.MsgType); err != nil {
		r.log.Warn("zero feedback failed", "binding", binding.ID, "err", err)
	}
	return nil
}

// StartLearn arms learn mode; the next control touched is captured instead
// of dispatched.
func (r *Runtime) StartLearn() {
	r.learn.Arm()
}

// ConsumeLearnedControl pops the captured control, if learning completed.
func (r *Runtime) ConsumeLearnedControl() *model.LearnedControl {
	return r.learn.Consume()
}

// SetBindingFeedback is the UI-driven feedback write: it updates the cache
// and hardware for one binding, honoring the anti-jitter guard. A silent
// update is a background sync that must never fight an actively-held
// control; a non-silent one is user-driven and always updates internal
// state, suppressing only the hardware send while the control is held.
func (r *Runtime) SetBindingFeedback(bindingID string, value float64, action *model.BindingAction, silent bool) error {
	prof := r.profileSnapshot()
	if prof == nil {
		return nil
	}

	var binding *model.Binding
	for i := range prof.Bindings {
		if prof.Bindings[i].ID == bindingID {
			binding = &prof.Bindings[i]
			break
		}
	}
	if binding == nil {
		return nil
	}

	key := bindings.KeyFromBinding(*binding)

	// Note controls are LEDs, not motors; they cannot jitter.
	isNote := binding.Control.MsgType == model.MessageNote
	userActive := !isNote && r.tracker.ActiveWithin(key, userActivityWindow)
	if userActive && silent {
		return nil
	}

	if current, ok := r.cache.Get(key); ok && math.Abs(current-value) < feedbackEpsilon {
		return nil
	}
	r.cache.Set(key, value)
	r.noteOsdActivity()

	if !userActive {
		if err := r.feedback.SendFeedback(binding.DeviceID, binding.Control.Channel, binding.Control.Controller, value, binding.Control.MsgType); err != nil {
			r.log.Warn("feedback send failed", "binding", binding.ID, "err", err)
		}
	}

	effectiveAction := binding.Action
	if action != nil {
		effectiveAction = *action
	}
	focus := r.focusSnapshot(binding.Target)

	switch effectiveAction {
	case model.ActionToggleMute:
		r.notifier.MuteUpdate(MuteUpdate{
			Target:       binding.Target,
			Muted:        value > 0.5,
			Action:       "toggle_mute",
			FocusSession: focus,
			BindingID:    binding.ID,
			Silent:       silent,
		})
	default:
		r.notifier.VolumeUpdate(VolumeUpdate{
			Target:       binding.Target,
			Volume:       value,
			FocusSession: focus,
			BindingID:    binding.ID,
			Silent:       silent,
		})
	}

	if prof.OsdSettings.Enabled && !silent {
		r.notifier.ShowOSD()
	}
	return nil
}

// UpdateFeedback refreshes feedback for every binding matching the given
// target (optionally narrowed by binding id or action), with the same
// anti-jitter guard as SetBindingFeedback.
func (r *Runtime) UpdateFeedback(target model.BindingTarget, value float64, bindingID *string, action *model.BindingAction) error {
	prof := r.profileSnapshot()
	if prof == nil {
		return nil
	}

	for _, binding := range prof.Bindings {
		var matches bool
		switch {
		case bindingID != nil:
			matches = binding.ID == *bindingID
		case action != nil:
			matches = binding.Action == *action && binding.Target.Equal(target)
		default:
			matches = binding.Target.Equal(target)
		}
		if !matches {
			continue
		}

		key := bindings.KeyFromBinding(binding)
		isNote := binding.Control.MsgType == model.MessageNote
		if !isNote && r.tracker.ActiveWithin(key, userActivityWindow) {
			continue
		}

		if current, ok := r.cache.Get(key); ok && math.Abs(current-value) < feedbackEpsilon {
			continue
		}
		r.cache.Set(key, value)

		if err := r.feedback.SendFeedback(binding.DeviceID, binding.Control.Channel, binding.Control.Controller, value, binding.Control.MsgType); err != nil {
			r.log.Warn("feedback send failed", "binding", binding.ID, "err", err)
		}
	}
	return nil
}

// Shutdown zeroes every bound control so lights and motors go dark, and
// closes the re-assert scheduler so a late callback cannot re-light one.
func (r *Runtime) Shutdown() {
	r.reasserts.close()
	prof := r.profileSnapshot()
	if prof == nil {
		return
	}
	for _, binding := range prof.Bindings {
		_ = r.feedback.SendFeedback(binding.DeviceID, binding.Control.Channel, binding.Control.Controller, 0.0, binding.Control.MsgType)
	}
}
