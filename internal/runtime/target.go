package runtime

import (
	"fmt"

	"github.com/PixPMusic/gopher-mixer/internal/audio"
	"github.com/PixPMusic/gopher-mixer/internal/bindings"
	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// applyVolumeTarget routes a shaped volume to the audio capability.
// Integration and Unset targets never reach here.
func (r *Runtime) applyVolumeTarget(target model.BindingTarget, volume float64) error {
	switch target.Kind {
	case model.TargetMaster:
		return r.audio.SetMasterVolume(volume)
	case model.TargetFocus:
		return r.audio.SetFocusedSessionVolume(volume)
	case model.TargetSession:
		return r.audio.SetSessionVolume(target.SessionID, volume)
	case model.TargetApplication:
		return r.audio.SetApplicationVolume(target.Name, volume)
	case model.TargetDevice:
		return r.audio.SetDeviceVolume(target.DeviceID, volume)
	default:
		return fmt.Errorf("unsupported volume target: %s", target.Kind)
	}
}

// toggleMuteTarget reads the target's current mute state, inverts it, and
// applies it. done is false when the target could not be resolved — an
// expected miss, not an error.
func (r *Runtime) toggleMuteTarget(binding model.Binding, key bindings.Key) (muted bool, done bool, err error) {
	target := binding.Target
	switch target.Kind {
	case model.TargetMaster:
		sessions, err := r.audio.ListSessions()
		if err != nil {
			return false, false, err
		}
		current := false
		if master := audio.FindMasterSession(sessions); master != nil {
			current = master.IsMuted
		}
		next := !current
		if err := r.audio.SetMasterMute(next); err != nil {
			return false, false, err
		}
		return next, true, nil

	case model.TargetFocus:
		focused, err := r.audio.FocusedSession()
		if err != nil || focused == nil {
			return false, false, err
		}
		next := !focused.IsMuted
		if err := r.audio.SetFocusedSessionMute(next); err != nil {
			return false, false, err
		}
		return next, true, nil

	case model.TargetSession:
		sessions, err := r.audio.ListSessions()
		if err != nil {
			return false, false, err
		}
		session := audio.FindSessionByID(sessions, target.SessionID)
		if session == nil {
			return false, false, nil
		}
		next := !session.IsMuted
		if err := r.audio.SetSessionMute(target.SessionID, next); err != nil {
			return false, false, err
		}
		return next, true, nil

	case model.TargetApplication:
		sessions, err := r.audio.ListSessions()
		if err != nil {
			return false, false, err
		}
		session := audio.MatchSession(sessions, target.Name)
		if session == nil {
			return false, false, nil
		}
		next := !session.IsMuted
		if err := r.audio.SetApplicationMute(target.Name, next); err != nil {
			return false, false, err
		}
		return next, true, nil

	case model.TargetDevice:
		device := r.lookupDevice(target.DeviceID)
		if device == nil {
			return false, false, nil
		}
		next := !device.IsMuted
		if err := r.audio.SetDeviceMute(target.DeviceID, next); err != nil {
			return false, false, err
		}
		return next, true, nil

	case model.TargetIntegration:
		// Integrations never touch the audio capability; current state is
		// whatever we last latched for the control.
		current, _ := r.cache.Get(key)
		next := current <= 0.5
		value := 0.0
		if next {
			value = 1.0
		}
		r.notifier.IntegrationTriggered(IntegrationTrigger{
			BindingID: binding.ID,
			Action:    "ToggleMute",
			Value:     value,
			Target:    target,
		})
		return false, false, nil

	default:
		return false, false, nil
	}
}

func (r *Runtime) lookupDevice(deviceID string) *model.AudioDeviceInfo {
	kind, rawID := audio.ParseDeviceTarget(deviceID)
	var devices []model.AudioDeviceInfo
	var err error
	if kind == audio.DeviceRecording {
		devices, err = r.audio.ListRecordingDevices()
	} else {
		devices, err = r.audio.ListPlaybackDevices()
	}
	if err != nil {
		return nil
	}
	return audio.FindDevice(devices, rawID)
}
