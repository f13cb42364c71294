package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// TargetKind discriminates a BindingTarget.
type TargetKind string

const (
	TargetMaster      TargetKind = "Master"
	TargetFocus       TargetKind = "Focus"
	TargetSession     TargetKind = "Session"
	TargetApplication TargetKind = "Application"
	TargetDevice      TargetKind = "Device"
	TargetIntegration TargetKind = "Integration"
	TargetUnset       TargetKind = "Unset"
)

// BindingTarget is a tagged variant describing what a binding controls.
// Only the fields belonging to the active kind are meaningful.
//
// Integration is the stable extensibility point for third-party plugins:
// IntegrationID is a stable string such as "obs", IntegrationKind is an
// integration-defined discriminator for the Data shape, and Data is opaque
// integration-defined JSON validated only by its consumer.
type BindingTarget struct {
	Kind            TargetKind
	SessionID       string
	Name            string
	DeviceID        string
	IntegrationID   string
	IntegrationKind string
	Data            json.RawMessage
}

func MasterTarget() BindingTarget { return BindingTarget{Kind: TargetMaster} }
func FocusTarget() BindingTarget  { return BindingTarget{Kind: TargetFocus} }
func UnsetTarget() BindingTarget  { return BindingTarget{Kind: TargetUnset} }

func SessionTarget(sessionID string) BindingTarget {
	return BindingTarget{Kind: TargetSession, SessionID: sessionID}
}

func ApplicationTarget(name string) BindingTarget {
	return BindingTarget{Kind: TargetApplication, Name: name}
}

func DeviceTarget(deviceID string) BindingTarget {
	return BindingTarget{Kind: TargetDevice, DeviceID: deviceID}
}

func IntegrationTarget(id, kind string, data json.RawMessage) BindingTarget {
	return BindingTarget{Kind: TargetIntegration, IntegrationID: id, IntegrationKind: kind, Data: data}
}

// Equal reports whether two targets describe the same thing. Integration
// payloads are compared byte-wise.
func (t BindingTarget) Equal(other BindingTarget) bool {
	if t.Kind != other.Kind {
		return false
	}
	switch t.Kind {
	case TargetSession:
		return t.SessionID == other.SessionID
	case TargetApplication:
		return t.Name == other.Name
	case TargetDevice:
		return t.DeviceID == other.DeviceID
	case TargetIntegration:
		return t.IntegrationID == other.IntegrationID &&
			t.IntegrationKind == other.IntegrationKind &&
			bytes.Equal(t.Data, other.Data)
	default:
		return true
	}
}

// MarshalJSON writes the on-disk shape: unit kinds as bare strings, the rest
// as single-key objects.
func (t BindingTarget) MarshalJSON() ([]byte, error) {
	switch t.Kind {
	case TargetMaster, TargetFocus, TargetUnset, "":
		kind := t.Kind
		if kind == "" {
			kind = TargetUnset
		}
		return json.Marshal(string(kind))
	case TargetSession:
		return json.Marshal(map[string]any{"Session": map[string]string{"session_id": t.SessionID}})
	case TargetApplication:
		return json.Marshal(map[string]any{"Application": map[string]string{"name": t.Name}})
	case TargetDevice:
		return json.Marshal(map[string]any{"Device": map[string]string{"device_id": t.DeviceID}})
	case TargetIntegration:
		data := t.Data
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		return json.Marshal(map[string]any{"Integration": map[string]any{
			"integration_id": t.IntegrationID,
			"kind":           t.IntegrationKind,
			"data":           data,
		}})
	default:
		return nil, fmt.Errorf("unknown binding target kind: %s", t.Kind)
	}
}

// UnmarshalJSON is the versioned decode boundary for persisted targets.
// Older profiles stored OBS and Wave Link targets as dedicated variants;
// those collapse into Integration so stored profiles stay loadable.
func (t *BindingTarget) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	decoded, err := targetFromValue(v)
	if err != nil {
		return err
	}
	*t = decoded
	return nil
}

func targetFromValue(v any) (BindingTarget, error) {
	if v == nil {
		return UnsetTarget(), nil
	}
	if s, ok := v.(string); ok {
		switch s {
		case "Master":
			return MasterTarget(), nil
		case "Focus":
			return FocusTarget(), nil
		case "Unset":
			return UnsetTarget(), nil
		default:
			return BindingTarget{}, fmt.Errorf("unknown binding target string: %s", s)
		}
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return BindingTarget{}, fmt.Errorf("binding target must be a string or object")
	}

	// Unwrapped integration shape, written by some older frontends.
	if _, hasID := obj["integration_id"]; hasID {
		if _, hasKind := obj["kind"]; hasKind {
			return integrationFromFields(obj)
		}
	}

	if len(obj) != 1 {
		return BindingTarget{}, fmt.Errorf("binding target must be a single-key object")
	}
	var key string
	var val any
	for k, v := range obj {
		key, val = k, v
	}

	switch key {
	case "Master":
		return MasterTarget(), nil
	case "Focus":
		return FocusTarget(), nil
	case "Unset":
		return UnsetTarget(), nil
	case "Session":
		id, err := stringField(val, "session_id", "Session")
		if err != nil {
			return BindingTarget{}, err
		}
		return SessionTarget(id), nil
	case "Application":
		name, err := stringField(val, "name", "Application")
		if err != nil {
			return BindingTarget{}, err
		}
		return ApplicationTarget(name), nil
	case "Device":
		id, err := stringField(val, "device_id", "Device")
		if err != nil {
			return BindingTarget{}, err
		}
		return DeviceTarget(id), nil
	case "Integration":
		fields, ok := val.(map[string]any)
		if !ok {
			return BindingTarget{}, fmt.Errorf("Integration target must be an object")
		}
		return integrationFromFields(fields)

	// Legacy OBS variants collapse into Integration.
	case "Obs", "obs":
		return legacyIntegration(val, "obs", "action", "action")
	case "ObsInput", "obsInput", "obs_input":
		return legacyIntegration(val, "obs", "input", "input_name")
	case "ObsScene", "obsScene", "obs_scene":
		return legacyIntegration(val, "obs", "scene", "scene_name")
	case "ObsSource", "obsSource", "obs_source":
		return legacyIntegration(val, "obs", "source", "scene_name", "source_name")
	case "ObsMedia", "obsMedia", "obs_media":
		return legacyIntegration(val, "obs", "media", "source_name", "action")

	// Legacy Wave Link variant; its fields were optional.
	case "WaveLink", "wavelink", "waveLink":
		fields, _ := val.(map[string]any)
		identifier, _ := fields["identifier"].(string)
		mixerID, _ := fields["mixer_id"].(string)
		data, err := json.Marshal(map[string]string{"identifier": identifier, "mixer_id": mixerID})
		if err != nil {
			return BindingTarget{}, err
		}
		return IntegrationTarget("wavelink", "endpoint", data), nil

	default:
		return BindingTarget{}, fmt.Errorf("unknown binding target variant: %s", key)
	}
}

func integrationFromFields(fields map[string]any) (BindingTarget, error) {
	id, ok := fields["integration_id"].(string)
	if !ok {
		return BindingTarget{}, fmt.Errorf("Integration.integration_id missing")
	}
	kind, ok := fields["kind"].(string)
	if !ok {
		return BindingTarget{}, fmt.Errorf("Integration.kind missing")
	}
	data := json.RawMessage("null")
	if raw, present := fields["data"]; present {
		encoded, err := json.Marshal(raw)
		if err != nil {
			return BindingTarget{}, err
		}
		data = encoded
	}
	return IntegrationTarget(id, kind, data), nil
}

func legacyIntegration(val any, id, kind string, required ...string) (BindingTarget, error) {
	fields, ok := val.(map[string]any)
	if !ok {
		return BindingTarget{}, fmt.Errorf("%s target must be an object", id)
	}
	payload := make(map[string]string, len(required))
	for _, field := range required {
		s, ok := fields[field].(string)
		if !ok {
			return BindingTarget{}, fmt.Errorf("%s.%s missing", id, field)
		}
		payload[field] = s
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return BindingTarget{}, err
	}
	return IntegrationTarget(id, kind, data), nil
}

func stringField(val any, field, variant string) (string, error) {
	fields, ok := val.(map[string]any)
	if !ok {
		return "", fmt.Errorf("%s target must be an object", variant)
	}
	s, ok := fields[field].(string)
	if !ok {
		return "", fmt.Errorf("%s.%s missing", variant, field)
	}
	return s, nil
}
