package runtime

import (
	"context"
	"time"

	"github.com/PixPMusic/gopher-mixer/internal/audio"
	"github.com/PixPMusic/gopher-mixer/internal/bindings"
	"github.com/PixPMusic/gopher-mixer/internal/model"
)

const (
	// ReconcileInterval is the cadence of the background sync pass.
	ReconcileInterval = 50 * time.Millisecond
	// osdHideAfter is how long the OSD stays up without feedback updates.
	osdHideAfter = 1200 * time.Millisecond
)

// RunReconcileLoop drives the periodic reconciliation until ctx is done.
// Run it in a single goroutine; the pass itself is not reentrant-safe by
// design (one background writer).
func (r *Runtime) RunReconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(ReconcileInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.ReconcileOnce()
		}
	}
}

// ReconcileOnce runs one reconciliation pass: commit expired learn
// candidates, re-derive the feedback cache from true audio state, re-emit
// feedback for every cached control, and expire the OSD.
func (r *Runtime) ReconcileOnce() {
	r.learn.CommitExpired()

	prof := r.profileSnapshot()
	if prof != nil {
		r.syncFeedbackValues(prof)

		cached := r.cache.Snapshot()
		for _, binding := range prof.Bindings {
			key := bindings.KeyFromBinding(binding)
			value, ok := cached[key]
			if !ok {
				continue
			}
			// Per-binding best effort: one dead control must not block the
			// rest of the pass.
			_ = r.feedback.SendFeedback(binding.DeviceID, binding.Control.Channel, binding.Control.Controller, value, binding.Control.MsgType)
		}
	}

	r.expireOsd(prof)
}

// syncFeedbackValues re-derives cached feedback from true audio state:
// mute state for toggle bindings, volume for volume bindings. Focus targets
// are skipped for volume resync because the focused session is transient.
// Keys with recent user activity are left alone so a background pass never
// fights a control the user is holding.
func (r *Runtime) syncFeedbackValues(prof *model.Profile) {
	sessions, err := r.audio.ListSessions()
	if err != nil {
		r.audioLog.Debug("session list failed during reconcile", "err", err)
		return
	}
	playback, err := r.audio.ListPlaybackDevices()
	if err != nil {
		playback = nil
	}
	recording, err := r.audio.ListRecordingDevices()
	if err != nil {
		recording = nil
	}

	for _, binding := range prof.Bindings {
		key := bindings.KeyFromBinding(binding)
		if r.tracker.ActiveWithin(key, userActivityWindow) {
			continue
		}

		var value float64
		var ok bool
		if binding.Action == model.ActionToggleMute {
			value, ok = r.muteStateFor(binding.Target, sessions, playback, recording)
		} else {
			value, ok = volumeStateFor(binding.Target, sessions, playback, recording)
		}
		if ok {
			r.cache.Set(key, value)
		}
	}
}

func (r *Runtime) muteStateFor(target model.BindingTarget, sessions []model.SessionInfo, playback, recording []model.AudioDeviceInfo) (float64, bool) {
	var muted bool
	switch target.Kind {
	case model.TargetMaster:
		master := audio.FindMasterSession(sessions)
		if master == nil {
			return 0, false
		}
		muted = master.IsMuted
	case model.TargetFocus:
		focused, err := r.audio.FocusedSession()
		if err != nil || focused == nil {
			return 0, false
		}
		muted = focused.IsMuted
	case model.TargetSession:
		session := audio.FindSessionByID(sessions, target.SessionID)
		if session == nil {
			return 0, false
		}
		muted = session.IsMuted
	case model.TargetApplication:
		session := audio.MatchSession(sessions, target.Name)
		if session == nil {
			return 0, false
		}
		muted = session.IsMuted
	case model.TargetDevice:
		device := findDeviceTarget(target.DeviceID, playback, recording)
		if device == nil {
			return 0, false
		}
		muted = device.IsMuted
	default:
		return 0, false
	}
	if muted {
		return 1.0, true
	}
	return 0.0, true
}

func volumeStateFor(target model.BindingTarget, sessions []model.SessionInfo, playback, recording []model.AudioDeviceInfo) (float64, bool) {
	switch target.Kind {
	case model.TargetMaster:
		master := audio.FindMasterSession(sessions)
		if master == nil {
			return 0, false
		}
		return master.Volume, true
	case model.TargetSession:
		session := audio.FindSessionByID(sessions, target.SessionID)
		if session == nil {
			return 0, false
		}
		return session.Volume, true
	case model.TargetApplication:
		session := audio.MatchSession(sessions, target.Name)
		if session == nil {
			return 0, false
		}
		return session.Volume, true
	case model.TargetDevice:
		device := findDeviceTarget(target.DeviceID, playback, recording)
		if device == nil {
			return 0, false
		}
		return device.Volume, true
	default:
		// Focus volume is intentionally not resynced; Integration and Unset
		// have no audio state.
		return 0, false
	}
}

func findDeviceTarget(deviceID string, playback, recording []model.AudioDeviceInfo) *model.AudioDeviceInfo {
	kind, rawID := audio.ParseDeviceTarget(deviceID)
	if kind == audio.DeviceRecording {
		return audio.FindDevice(recording, rawID)
	}
	return audio.FindDevice(playback, rawID)
}

// expireOsd hides the on-screen display once it has been idle long enough.
func (r *Runtime) expireOsd(prof *model.Profile) {
	if prof != nil && !prof.OsdSettings.Enabled {
		return
	}
	r.osdMu.Lock()
	shouldHide := !r.osdLastUpdate.IsZero() && time.Since(r.osdLastUpdate) > osdHideAfter
	if shouldHide {
		r.osdLastUpdate = time.Time{}
	}
	r.osdMu.Unlock()
	if shouldHide {
		r.notifier.HideOSD()
	}
}
