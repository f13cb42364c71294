// Package midi owns the hardware transport: port enumeration, the input
// listener that feeds decoded events to the dispatcher, and the feedback
// path that pushes values back to motorized faders and LEDs.
package midi

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PixPMusic/gopher-mixer/internal/logging"
	"github.com/PixPMusic/gopher-mixer/internal/model"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

const portPrefix = "midi:"

const (
	// reconnectCooldown is the minimum spacing between reconnect attempts
	// after an output write failure.
	reconnectCooldown = 5 * time.Second
	// maxReconnectFailures is how many consecutive failed reconnects we
	// tolerate before giving up for the rest of the connection session.
	maxReconnectFailures = 3
)

type sendFunc func(frame []byte) error

// Manager is the MIDI transport capability. One input and one output
// connection are held at a time; opening a new one replaces the old.
type Manager struct {
	mu                sync.Mutex
	stopInput         func()
	send              sendFunc
	activeDevice      string
	activeOutput      string
	lastReconnect     time.Time
	reconnectFailures int

	// Seams for tests; default to the gomidi implementations.
	openOutput func(deviceID string) (sendFunc, error)
	now        func() time.Time
}

// NewManager creates a disconnected manager.
func NewManager() *Manager {
	m := &Manager{now: time.Now}
	m.openOutput = openOutputPort
	return m
}

// Close stops any connections and releases the MIDI driver.
func (m *Manager) Close() {
	m.Stop()
	gomidi.CloseDriver()
}

// ListInputDevices returns the available input ports. IDs are stable for
// the current port ordering ("midi:<index>").
func (m *Manager) ListInputDevices() []model.DeviceInfo {
	ins := gomidi.GetInPorts()
	devices := make([]model.DeviceInfo, 0, len(ins))
	for i, in := range ins {
		devices = append(devices, model.DeviceInfo{
			ID:   fmt.Sprintf("%s%d", portPrefix, i),
			Name: in.String(),
		})
	}
	return devices
}

// ListOutputDevices returns the available output ports.
func (m *Manager) ListOutputDevices() []model.DeviceInfo {
	outs := gomidi.GetOutPorts()
	devices := make([]model.DeviceInfo, 0, len(outs))
	for i, out := range outs {
		devices = append(devices, model.DeviceInfo{
			ID:   fmt.Sprintf("%s%d", portPrefix, i),
			Name: out.String(),
		})
	}
	return devices
}

// Start opens the input and output ports and begins delivering decoded
// events to onEvent from the driver's callback goroutine. Any previous
// connections are replaced. The input device id becomes the session's
// active device: feedback addressed to other devices is dropped.
func (m *Manager) Start(inputDeviceID, outputDeviceID string, onEvent func(model.MidiEvent)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stopInput != nil {
		m.stopInput()
		m.stopInput = nil
	}

	inPort, err := findInputPort(inputDeviceID)
	if err != nil {
		return err
	}

	// Output is optional; without one, feedback calls are silent no-ops.
	if outputDeviceID != "" {
		if err := m.connectOutputLocked(outputDeviceID); err != nil {
			return err
		}
	}

	deviceID := inputDeviceID
	stop, err := gomidi.ListenTo(inPort, func(msg gomidi.Message, timestampms int32) {
		event, ok := ParseMessage(deviceID, msg)
		if !ok {
			return
		}
		logging.Get(logging.MidiIn).Debug("event",
			"device", deviceID, "channel", event.Channel,
			"controller", event.Controller, "value", event.Value, "type", event.MsgType)
		onEvent(event)
	})
	if err != nil {
		return fmt.Errorf("failed to start listening: %w", err)
	}

	m.stopInput = stop
	m.activeDevice = inputDeviceID
	return nil
}

// Stop tears down both connections. Subsequent feedback calls become
// no-ops via the active-device check.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopInput != nil {
		m.stopInput()
		m.stopInput = nil
	}
	m.send = nil
	m.activeDevice = ""
	m.activeOutput = ""
	m.lastReconnect = time.Time{}
	m.reconnectFailures = 0
}

// ActiveDevice returns the input device id owning this session, if any.
func (m *Manager) ActiveDevice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeDevice
}

// SendFeedback pushes a value to a hardware control. It is a no-op when the
// device is not the active one or no output is connected. On a write
// failure it applies the reconnect policy: at most one attempt per
// cooldown, permanent give-up after maxReconnectFailures consecutive
// failures, and a single retry of the original frame after a successful
// reconnect.
func (m *Manager) SendFeedback(deviceID string, channel, controller uint8, value float64, msgType model.MidiMessageType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.activeDevice == "" || m.activeDevice != deviceID {
		return nil
	}
	// No output yet; stay quiet instead of spamming errors on startup.
	if m.activeOutput == "" {
		return nil
	}

	frame := EncodeFeedback(channel, controller, value, msgType)

	if m.send != nil {
		if err := m.send(frame); err == nil {
			return nil
		}
	}

	log := logging.Get(logging.MidiOut)

	canAttempt := m.lastReconnect.IsZero() ||
		m.now().Sub(m.lastReconnect) >= reconnectCooldown
	if !canAttempt || m.reconnectFailures >= maxReconnectFailures {
		// Too soon, or the budget is spent; drop the frame silently.
		return nil
	}

	m.lastReconnect = m.now()
	log.Warn("output write failed, attempting reconnect", "output", m.activeOutput)

	send, err := m.openOutput(m.activeOutput)
	if err != nil {
		m.reconnectFailures++
		log.Warn("reconnect failed",
			"output", m.activeOutput, "failures", m.reconnectFailures, "err", err)
		return nil
	}

	m.send = send
	m.reconnectFailures = 0
	if err := m.send(frame); err != nil {
		log.Warn("retry send failed", "output", m.activeOutput, "err", err)
	}
	return nil
}

func (m *Manager) connectOutputLocked(outputDeviceID string) error {
	send, err := m.openOutput(outputDeviceID)
	if err != nil {
		return err
	}
	m.send = send
	m.activeOutput = outputDeviceID
	m.reconnectFailures = 0
	return nil
}

func openOutputPort(deviceID string) (sendFunc, error) {
	index, err := portIndex(deviceID)
	if err != nil {
		return nil, err
	}
	outs := gomidi.GetOutPorts()
	if index >= len(outs) {
		return nil, fmt.Errorf("MIDI output port not found: %s", deviceID)
	}
	send, err := gomidi.SendTo(outs[index])
	if err != nil {
		return nil, fmt.Errorf("failed to connect to output: %w", err)
	}
	return func(frame []byte) error {
		return send(gomidi.Message(frame))
	}, nil
}

func findInputPort(deviceID string) (drivers.In, error) {
	index, err := portIndex(deviceID)
	if err != nil {
		return nil, err
	}
	ins := gomidi.GetInPorts()
	if index >= len(ins) {
		return nil, fmt.Errorf("MIDI input port not found: %s", deviceID)
	}
	return ins[index], nil
}

func portIndex(deviceID string) (int, error) {
	raw, ok := strings.CutPrefix(deviceID, portPrefix)
	if !ok {
		return 0, fmt.Errorf("invalid device id: %s", deviceID)
	}
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid device id: %s", deviceID)
	}
	return index, nil
}
