// Package audio defines the capability this core uses to read and mutate
// the host mixer. Platform backends live behind the Control interface and
// are selected at startup; the core never depends on a concrete one.
package audio

import (
	"errors"

	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// ErrUnsupported is returned by the stub backend on platforms without an
// audio implementation.
var ErrUnsupported = errors.New("audio control is not supported on this platform")

// Control is the audio capability consumed by the runtime. All operations
// either fully apply or fail; there are no partial-application semantics.
type Control interface {
	ListSessions() ([]model.SessionInfo, error)
	ListPlaybackDevices() ([]model.AudioDeviceInfo, error)
	ListRecordingDevices() ([]model.AudioDeviceInfo, error)
	FocusedSession() (*model.SessionInfo, error)

	SetMasterVolume(volume float64) error
	SetSessionVolume(sessionID string, volume float64) error
	SetApplicationVolume(name string, volume float64) error
	SetDeviceVolume(deviceID string, volume float64) error
	SetFocusedSessionVolume(volume float64) error

	SetMasterMute(muted bool) error
	SetSessionMute(sessionID string, muted bool) error
	SetApplicationMute(name string, muted bool) error
	SetDeviceMute(deviceID string, muted bool) error
	SetFocusedSessionMute(muted bool) error
}

// Unsupported is the fallback backend. Listing succeeds with empty results
// so the UI stays functional; mutations fail.
type Unsupported struct{}

// NewBackend selects the platform backend. Only the stub ships with the
// core; platform implementations register by replacing this constructor.
func NewBackend() Control {
	return &Unsupported{}
}

func (u *Unsupported) ListSessions() ([]model.SessionInfo, error)            { return nil, nil }
func (u *Unsupported) ListPlaybackDevices() ([]model.AudioDeviceInfo, error) { return nil, nil }
func (u *Unsupported) ListRecordingDevices() ([]model.AudioDeviceInfo, error) {
	return nil, nil
}
func (u *Unsupported) FocusedSession() (*model.SessionInfo, error) { return nil, nil }

func (u *Unsupported) SetMasterVolume(float64) error            { return ErrUnsupported }
func (u *Unsupported) SetSessionVolume(string, float64) error   { return ErrUnsupported }
func (u *Unsupported) SetApplicationVolume(string, float64) error {
	return ErrUnsupported
}
func (u *Unsupported) SetDeviceVolume(string, float64) error  { return ErrUnsupported }
func (u *Unsupported) SetFocusedSessionVolume(float64) error  { return ErrUnsupported }
func (u *Unsupported) SetMasterMute(bool) error               { return ErrUnsupported }
func (u *Unsupported) SetSessionMute(string, bool) error      { return ErrUnsupported }
func (u *Unsupported) SetApplicationMute(string, bool) error  { return ErrUnsupported }
func (u *Unsupported) SetDeviceMute(string, bool) error       { return ErrUnsupported }
func (u *Unsupported) SetFocusedSessionMute(bool) error       { return ErrUnsupported }
