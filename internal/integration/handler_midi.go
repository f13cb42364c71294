package integration

import (
	"encoding/json"
	"fmt"
	"math"

	"gitlab.com/gomidi/midi/v2"
)

// MidiHandler forwards triggers as MIDI messages to an arbitrary output
// port, letting one controller drive another device (or software expecting
// MIDI input) through a binding.
type MidiHandler struct{}

// midiData is the payload shape for "midi" integrations.
type midiData struct {
	DeviceName string `json:"device_name"`
	MsgType    string `json:"msg_type"` // "note_on", "note_off", "cc", "pc"
	Channel    int    `json:"channel"`  // 1-16
	Note       int    `json:"note"`     // 0-127, also the CC number
	Velocity   int    `json:"velocity"` // 0-127, ignored when scale_value is set
	Program    int    `json:"program"`  // 0-127
	ScaleValue bool   `json:"scale_value"`
}

func (h *MidiHandler) IsSupported() bool {
	return true
}

func (h *MidiHandler) Execute(trig Trigger) (string, error) {
	var data midiData
	if err := json.Unmarshal(trig.Data, &data); err != nil {
		return "", fmt.Errorf("invalid MIDI integration data: %v", err)
	}
	if data.DeviceName == "" {
		return "", fmt.Errorf("no device specified")
	}

	channel := uint8(data.Channel - 1)
	if channel > 15 {
		channel = 0
	}
	velocity := uint8(data.Velocity)
	if data.ScaleValue {
		velocity = uint8(math.Round(trig.Value * 127))
	}

	var msg midi.Message
	switch data.MsgType {
	case "note_on":
		msg = midi.NoteOn(channel, uint8(data.Note), velocity)
	case "note_off":
		msg = midi.NoteOff(channel, uint8(data.Note))
	case "cc":
		msg = midi.ControlChange(channel, uint8(data.Note), velocity)
	case "pc":
		msg = midi.ProgramChange(channel, uint8(data.Program))
	default:
		return "", fmt.Errorf("unknown message type: %s", data.MsgType)
	}

	outPort, err := midi.FindOutPort(data.DeviceName)
	if err != nil {
		return "", fmt.Errorf("port %q not found: %v", data.DeviceName, err)
	}
	send, err := midi.SendTo(outPort)
	if err != nil {
		return "", fmt.Errorf("failed to create sender: %v", err)
	}
	if err := send(msg); err != nil {
		return "", fmt.Errorf("send failed: %v", err)
	}
	return fmt.Sprintf("sent %s to %s", data.MsgType, data.DeviceName), nil
}
