// Package learn captures the next physical control the user touches.
//
// Touch-sensitive motor faders emit a Note-on the moment a finger lands,
// followed by the actual CC or pitch-bend stream. Accepting the Note
// immediately would learn the wrong control, so Note events are buffered as
// candidates and only committed once they survive a grace window without
// being superseded by a non-Note event.
package learn

import (
	"sync"
	"time"

	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// GraceWindow is how long a Note candidate must survive before it commits.
const GraceWindow = 150 * time.Millisecond

type candidate struct {
	control    model.LearnedControl
	capturedAt time.Time
}

// Controller is the two-state (idle/armed) learn machine. Safe for use from
// the hardware callback, the command surface, and the reconcile loop.
type Controller struct {
	mu        sync.Mutex
	armed     bool
	candidate *candidate
	learned   *model.LearnedControl
}

// NewController returns an idle controller.
func NewController() *Controller {
	return &Controller{}
}

// Arm enters learn mode, clearing any previous capture.
func (c *Controller) Arm() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.armed = true
	c.candidate = nil
	c.learned = nil
}

// Armed reports whether learn mode is active.
func (c *Controller) Armed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armed
}

// Observe feeds a hardware event into the controller. It returns true when
// the event was consumed by learn mode and must not be dispatched further.
func (c *Controller) Observe(event model.MidiEvent) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.armed {
		return false
	}

	control := model.LearnedControl{
		DeviceID:   event.DeviceID,
		Channel:    event.Channel,
		Controller: event.Controller,
		MsgType:    event.MsgType,
	}

	if event.MsgType == model.MessageNote {
		c.candidate = &candidate{control: control, capturedAt: time.Now()}
		return true
	}

	// Non-Note events win immediately and discard any pending candidate.
	c.armed = false
	c.candidate = nil
	c.learned = &control
	return true
}

// CommitExpired promotes a pending Note candidate that has outlived the
// grace window. Called periodically by the reconcile loop.
func (c *Controller) CommitExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.candidate == nil {
		return
	}
	if time.Since(c.candidate.capturedAt) <= GraceWindow {
		return
	}
	pending := c.candidate
	c.candidate = nil
	if !c.armed {
		return
	}
	c.armed = false
	c.learned = &pending.control
}

// Consume pops the learned control, if one is ready. Each capture is
// consumed exactly once.
func (c *Controller) Consume() *model.LearnedControl {
	c.mu.Lock()
	defer c.mu.Unlock()
	learned := c.learned
	c.learned = nil
	return learned
}
