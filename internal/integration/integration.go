// Package integration routes triggers from integration-targeted bindings to
// external handlers. A binding whose target is an integration never touches
// the audio engine; its shaped value is delivered here instead.
package integration

import (
	"encoding/json"
	"log/slog"

	"github.com/PixPMusic/gopher-mixer/internal/logging"
)

// Trigger carries one integration event: the binding that fired, the shaped
// value, and the integration's stored payload.
type Trigger struct {
	BindingID string
	Action    string // "Volume" or "ToggleMute"
	Value     float64
	ID        string
	Kind      string
	Data      json.RawMessage
}

// Handler executes triggers for one integration kind
type Handler interface {
	// Execute runs the trigger and returns output or error
	Execute(trig Trigger) (string, error)

	// IsSupported returns true if the handler can run on the current platform
	IsSupported() bool
}

// Dispatcher routes triggers to the handler registered for their kind.
// Handlers run on their own goroutine so a slow integration never stalls
// the MIDI callback.
type Dispatcher struct {
	handlers map[string]Handler
	log      *slog.Logger
}

// NewDispatcher creates a dispatcher with the built-in handlers.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		handlers: map[string]Handler{
			"shell": &ShellHandler{},
			"midi":  &MidiHandler{},
		},
		log: logging.Get(logging.App),
	}
}

// Register adds or replaces the handler for a kind.
func (d *Dispatcher) Register(kind string, handler Handler) {
	d.handlers[kind] = handler
}

// Dispatch hands the trigger to its handler. Unknown kinds are logged and
// dropped; they are data errors in the profile, not runtime failures.
func (d *Dispatcher) Dispatch(trig Trigger) {
	handler, ok := d.handlers[trig.Kind]
	if !ok {
		d.log.Debug("no handler for integration kind", "kind", trig.Kind, "binding", trig.BindingID)
		return
	}
	if !handler.IsSupported() {
		d.log.Warn("integration kind not supported on this platform", "kind", trig.Kind)
		return
	}
	go func() {
		out, err := handler.Execute(trig)
		if err != nil {
			d.log.Warn("integration failed", "kind", trig.Kind, "binding", trig.BindingID, "err", err)
			return
		}
		if out != "" {
			d.log.Debug("integration output", "kind", trig.Kind, "output", out)
		}
	}()
}
