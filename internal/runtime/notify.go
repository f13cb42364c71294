package runtime

import (
	"encoding/json"

	"github.com/PixPMusic/gopher-mixer/internal/logging"
	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// VolumeUpdate reports a volume change to the UI/OSD layer.
type VolumeUpdate struct {
	Target       model.BindingTarget `json:"target"`
	Volume       float64             `json:"volume"`
	FocusSession *model.SessionInfo  `json:"focus_session,omitempty"`
	BindingID    string              `json:"binding_id"`
	Silent       bool                `json:"silent"`
}

// MuteUpdate reports a mute change to the UI/OSD layer.
type MuteUpdate struct {
	Target       model.BindingTarget `json:"target"`
	Muted        bool                `json:"muted"`
	Action       string              `json:"action"`
	FocusSession *model.SessionInfo  `json:"focus_session,omitempty"`
	BindingID    string              `json:"binding_id"`
	Silent       bool                `json:"silent"`
}

// IntegrationTrigger is raised when a binding targets a third-party
// integration; the plugin runtime consumes it instead of the audio backend.
type IntegrationTrigger struct {
	BindingID string              `json:"binding_id"`
	Action    string              `json:"action"`
	Value     float64             `json:"value"`
	Target    model.BindingTarget `json:"target"`
}

// Notifier receives fire-and-forget notifications. Delivery is best-effort;
// implementations must not block the caller.
type Notifier interface {
	VolumeUpdate(update VolumeUpdate)
	MuteUpdate(update MuteUpdate)
	IntegrationTriggered(trigger IntegrationTrigger)
	ShowOSD()
	HideOSD()
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) VolumeUpdate(VolumeUpdate)               {}
func (NopNotifier) MuteUpdate(MuteUpdate)                   {}
func (NopNotifier) IntegrationTriggered(IntegrationTrigger) {}
func (NopNotifier) ShowOSD()                                {}
func (NopNotifier) HideOSD()                                {}

// LogNotifier writes notifications to the application log. Used by the
// headless entry point where no UI is attached.
type LogNotifier struct{}

func (LogNotifier) VolumeUpdate(update VolumeUpdate) {
	payload, _ := json.Marshal(update)
	logging.Get(logging.App).Info("volume_update", "payload", string(payload))
}

func (LogNotifier) MuteUpdate(update MuteUpdate) {
	payload, _ := json.Marshal(update)
	logging.Get(logging.App).Info("mute_update", "payload", string(payload))
}

func (LogNotifier) IntegrationTriggered(trigger IntegrationTrigger) {
	payload, _ := json.Marshal(trigger)
	logging.Get(logging.App).Info("integration_binding_triggered", "payload", string(payload))
}

func (LogNotifier) ShowOSD() {}
func (LogNotifier) HideOSD() {}
