package midi

import (
	"math"

	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// ParseMessage decodes one raw byte-frame into a MidiEvent. Frames other
// than control change, note on/off, and pitch bend are ignored.
func ParseMessage(deviceID string, frame []byte) (model.MidiEvent, bool) {
	if len(frame) < 3 {
		return model.MidiEvent{}, false
	}
	status := frame[0]
	command := status & 0xF0
	channel := status & 0x0F

	switch command {
	case 0xB0:
		return model.MidiEvent{
			DeviceID:   deviceID,
			Channel:    channel,
			Controller: frame[1],
			Value:      frame[2],
			MsgType:    model.MessageControlChange,
		}, true
	case 0x90, 0x80:
		value := frame[2]
		if command == 0x80 {
			// Note Off arrives as velocity 0.
			value = 0
		}
		return model.MidiEvent{
			DeviceID:   deviceID,
			Channel:    channel,
			Controller: frame[1],
			Value:      value,
			MsgType:    model.MessageNote,
		}, true
	case 0xE0:
		lsb := uint16(frame[1])
		msb := uint16(frame[2])
		value14 := msb<<7 | lsb
		return model.MidiEvent{
			DeviceID:   deviceID,
			Channel:    channel,
			Controller: model.PitchBendController,
			Value:      frame[2],
			Value14:    &value14,
			MsgType:    model.MessagePitchBend,
		}, true
	default:
		return model.MidiEvent{}, false
	}
}

// EncodeFeedback builds the byte-frame that pushes a value back to the
// hardware control. The value is clamped to [0,1] before scaling.
func EncodeFeedback(channel, controller uint8, value float64, msgType model.MidiMessageType) []byte {
	clamped := value
	if clamped < 0 {
		clamped = 0
	} else if clamped > 1 {
		clamped = 1
	}

	switch msgType {
	case model.MessageNote:
		velocity := uint8(math.Round(clamped * 127))
		return []byte{0x90 | (channel & 0x0F), controller, velocity}
	case model.MessagePitchBend:
		value14 := uint16(math.Round(clamped * 16383))
		lsb := uint8(value14 & 0x7F)
		msb := uint8((value14 >> 7) & 0x7F)
		return []byte{0xE0 | (channel & 0x0F), lsb, msb}
	default:
		data := uint8(math.Round(clamped * 127))
		return []byte{0xB0 | (channel & 0x0F), controller, data}
	}
}
