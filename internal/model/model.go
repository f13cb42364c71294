package model

import (
	"encoding/json"

	"github.com/google/uuid"
)

// MidiMessageType classifies a decoded hardware message.
type MidiMessageType string

const (
	MessageControlChange MidiMessageType = "ControlChange"
	MessageNote          MidiMessageType = "Note"
	MessagePitchBend     MidiMessageType = "PitchBend"
)

// PitchBendController is the controller number used to key pitch-bend
// messages, which carry no controller byte of their own.
const PitchBendController uint8 = 0xE0

// MidiMode selects how a control's raw value maps to a target value.
type MidiMode string

const (
	ModeAbsolute MidiMode = "Absolute"
	ModeRelative MidiMode = "Relative"
)

// BindingAction is what a binding does to its target.
type BindingAction string

const (
	ActionVolume     BindingAction = "Volume"
	ActionToggleMute BindingAction = "ToggleMute"
)

// MidiControl identifies a physical control on a device.
type MidiControl struct {
	Channel    uint8           `json:"channel"`
	Controller uint8           `json:"controller"`
	MsgType    MidiMessageType `json:"msg_type"`
}

// MidiEvent is one decoded hardware message. Produced per byte-frame by the
// transport, consumed synchronously by the dispatcher.
type MidiEvent struct {
	DeviceID   string          `json:"device_id"`
	Channel    uint8           `json:"channel"`
	Controller uint8           `json:"controller"`
	Value      uint8           `json:"value"`
	Value14    *uint16         `json:"value_14,omitempty"` // pitch-bend only
	MsgType    MidiMessageType `json:"msg_type"`
}

// LearnedControl is the identity captured by learn mode.
type LearnedControl struct {
	DeviceID   string          `json:"device_id"`
	Channel    uint8           `json:"channel"`
	Controller uint8           `json:"controller"`
	MsgType    MidiMessageType `json:"msg_type"`
}

// Binding maps a physical control to an audio action. Owned by a Profile.
type Binding struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	DeviceID   string        `json:"device_id"`
	Control    MidiControl   `json:"control"`
	Target     BindingTarget `json:"target"`
	Action     BindingAction `json:"action"`
	Mode       MidiMode      `json:"mode"`
	Deadzone   float64       `json:"deadzone"`
	DebounceMs uint64        `json:"debounce_ms"`
}

// NewBinding creates a binding with a generated ID and defaults.
func NewBinding(name string) Binding {
	return Binding{
		ID:     uuid.New().String(),
		Name:   name,
		Target: UnsetTarget(),
		Action: ActionVolume,
		Mode:   ModeAbsolute,
	}
}

// OsdSettings controls the on-screen display. Placement is consumed by the
// UI layer; this core only tracks visibility timing.
type OsdSettings struct {
	Enabled      bool    `json:"enabled"`
	MonitorIndex int     `json:"monitor_index"`
	MonitorName  *string `json:"monitor_name,omitempty"`
	MonitorID    *string `json:"monitor_id,omitempty"`
	Anchor       string  `json:"anchor"`
}

// DefaultOsdSettings returns the settings used when a profile has none.
func DefaultOsdSettings() OsdSettings {
	return OsdSettings{
		Enabled: true,
		Anchor:  "top-right",
	}
}

// Profile is the persisted set of bindings plus per-profile settings.
type Profile struct {
	Name           string                     `json:"name"`
	Bindings       []Binding                  `json:"bindings"`
	OsdSettings    OsdSettings                `json:"osd_settings"`
	PluginSettings map[string]json.RawMessage `json:"plugin_settings,omitempty"`
}

// ProfileSummary is the list-view projection of a profile.
type ProfileSummary struct {
	Name string `json:"name"`
}

// DeviceInfo describes a MIDI port.
type DeviceInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SessionInfo describes one mixer session as reported by the audio backend.
type SessionInfo struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	ProcessName string  `json:"process_name,omitempty"`
	ProcessPath string  `json:"process_path,omitempty"`
	Volume      float64 `json:"volume"`
	IsMuted     bool    `json:"is_muted"`
	IsMaster    bool    `json:"is_master"`
}

// AudioDeviceInfo describes a playback or recording endpoint.
type AudioDeviceInfo struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Volume      float64 `json:"volume"`
	IsMuted     bool    `json:"is_muted"`
	IsDefault   bool    `json:"is_default"`
}

// UnmarshalJSON applies defaults for fields older profiles omit.
func (c *MidiControl) UnmarshalJSON(data []byte) error {
	type alias MidiControl
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = MidiControl(raw)
	if c.MsgType == "" {
		c.MsgType = MessageControlChange
	}
	return nil
}

// UnmarshalJSON applies defaults for fields older profiles omit.
func (b *Binding) UnmarshalJSON(data []byte) error {
	type alias Binding
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*b = Binding(raw)
	if b.Action == "" {
		b.Action = ActionVolume
	}
	return nil
}

// UnmarshalJSON decodes bindings one at a time so a single unparseable entry
// drops that binding instead of rejecting the whole profile.
func (p *Profile) UnmarshalJSON(data []byte) error {
	type alias Profile
	var raw struct {
		alias
		Bindings []json.RawMessage `json:"bindings"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Profile(raw.alias)
	p.Bindings = make([]Binding, 0, len(raw.Bindings))
	for _, entry := range raw.Bindings {
		var binding Binding
		if err := json.Unmarshal(entry, &binding); err != nil {
			continue
		}
		p.Bindings = append(p.Bindings, binding)
	}
	return nil
}
