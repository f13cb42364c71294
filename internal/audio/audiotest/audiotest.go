// Package audiotest provides an in-memory audio.Control for tests.
package audiotest

import (
	"errors"
	"sync"

	"github.com/PixPMusic/gopher-mixer/internal/audio"
	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// Fake is a recording audio backend. Sessions and devices are seeded by the
// test; mutations update the seeded state in place so reads observe them.
type Fake struct {
	mu sync.Mutex

	Sessions         []model.SessionInfo
	PlaybackDevices  []model.AudioDeviceInfo
	RecordingDevices []model.AudioDeviceInfo
	Focused          *model.SessionInfo

	// FailAll makes every call return an error, for collaborator-failure
	// paths.
	FailAll bool

	// Calls records mutation names in order, e.g. "SetMasterVolume".
	Calls []string

	MasterVolume float64
	MasterMuted  bool
}

var errFakeFailure = errors.New("audiotest: forced failure")

// New returns an empty fake.
func New() *Fake {
	return &Fake{}
}

func (f *Fake) record(name string) error {
	f.Calls = append(f.Calls, name)
	if f.FailAll {
		return errFakeFailure
	}
	return nil
}

func (f *Fake) ListSessions() ([]model.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAll {
		return nil, errFakeFailure
	}
	out := make([]model.SessionInfo, len(f.Sessions))
	copy(out, f.Sessions)
	return out, nil
}

func (f *Fake) ListPlaybackDevices() ([]model.AudioDeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAll {
		return nil, errFakeFailure
	}
	out := make([]model.AudioDeviceInfo, len(f.PlaybackDevices))
	copy(out, f.PlaybackDevices)
	return out, nil
}

func (f *Fake) ListRecordingDevices() ([]model.AudioDeviceInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAll {
		return nil, errFakeFailure
	}
	out := make([]model.AudioDeviceInfo, len(f.RecordingDevices))
	copy(out, f.RecordingDevices)
	return out, nil
}

func (f *Fake) FocusedSession() (*model.SessionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailAll {
		return nil, errFakeFailure
	}
	if f.Focused == nil {
		return nil, nil
	}
	focused := *f.Focused
	return &focused, nil
}

func (f *Fake) SetMasterVolume(volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetMasterVolume"); err != nil {
		return err
	}
	f.MasterVolume = volume
	for i := range f.Sessions {
		if f.Sessions[i].IsMaster {
			f.Sessions[i].Volume = volume
		}
	}
	return nil
}

func (f *Fake) SetSessionVolume(sessionID string, volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetSessionVolume"); err != nil {
		return err
	}
	for i := range f.Sessions {
		if f.Sessions[i].ID == sessionID {
			f.Sessions[i].Volume = volume
		}
	}
	return nil
}

func (f *Fake) SetApplicationVolume(name string, volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetApplicationVolume"); err != nil {
		return err
	}
	for i := range f.Sessions {
		if f.Sessions[i].DisplayName == name || f.Sessions[i].ProcessName == name {
			f.Sessions[i].Volume = volume
		}
	}
	return nil
}

func (f *Fake) SetDeviceVolume(deviceID string, volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetDeviceVolume"); err != nil {
		return err
	}
	f.setDevice(deviceID, func(d *model.AudioDeviceInfo) { d.Volume = volume })
	return nil
}

func (f *Fake) SetFocusedSessionVolume(volume float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetFocusedSessionVolume"); err != nil {
		return err
	}
	if f.Focused != nil {
		f.Focused.Volume = volume
	}
	return nil
}

func (f *Fake) SetMasterMute(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetMasterMute"); err != nil {
		return err
	}
	f.MasterMuted = muted
	for i := range f.Sessions {
		if f.Sessions[i].IsMaster {
			f.Sessions[i].IsMuted = muted
		}
	}
	return nil
}

func (f *Fake) SetSessionMute(sessionID string, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetSessionMute"); err != nil {
		return err
	}
	for i := range f.Sessions {
		if f.Sessions[i].ID == sessionID {
			f.Sessions[i].IsMuted = muted
		}
	}
	return nil
}

func (f *Fake) SetApplicationMute(name string, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetApplicationMute"); err != nil {
		return err
	}
	for i := range f.Sessions {
		if f.Sessions[i].DisplayName == name || f.Sessions[i].ProcessName == name {
			f.Sessions[i].IsMuted = muted
		}
	}
	return nil
}

func (f *Fake) SetDeviceMute(deviceID string, muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetDeviceMute"); err != nil {
		return err
	}
	f.setDevice(deviceID, func(d *model.AudioDeviceInfo) { d.IsMuted = muted })
	return nil
}

func (f *Fake) SetFocusedSessionMute(muted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("SetFocusedSessionMute"); err != nil {
		return err
	}
	if f.Focused != nil {
		f.Focused.IsMuted = muted
	}
	return nil
}

func (f *Fake) setDevice(deviceID string, apply func(*model.AudioDeviceInfo)) {
	kind, rawID := audio.ParseDeviceTarget(deviceID)
	devices := f.PlaybackDevices
	if kind == audio.DeviceRecording {
		devices = f.RecordingDevices
	}
	for i := range devices {
		if devices[i].ID == rawID {
			apply(&devices[i])
		}
	}
}

// CallCount returns how many times the named mutation ran.
func (f *Fake) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, call := range f.Calls {
		if call == name {
			count++
		}
	}
	return count
}
