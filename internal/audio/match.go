package audio

import (
	"path/filepath"
	"strings"
	"unicode"

	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// DeviceKind says which endpoint list a device target refers to.
type DeviceKind int

const (
	DevicePlayback DeviceKind = iota
	DeviceRecording
)

// ParseDeviceTarget splits an optional "playback:"/"recording:" prefix off a
// device id. No prefix means playback.
func ParseDeviceTarget(deviceID string) (DeviceKind, string) {
	if raw, ok := strings.CutPrefix(deviceID, "recording:"); ok {
		return DeviceRecording, raw
	}
	if raw, ok := strings.CutPrefix(deviceID, "playback:"); ok {
		return DevicePlayback, raw
	}
	return DevicePlayback, deviceID
}

// MatchSession finds the session a user-facing application name refers to.
// Comparisons run in order — executable stem, executable name without
// extension, exact display name, friendlified path label, humanized process
// name — all case-insensitively; the first match wins. Returns nil when
// nothing matches.
func MatchSession(sessions []model.SessionInfo, name string) *model.SessionInfo {
	target := strings.ToLower(name)
	for i := range sessions {
		if sessionMatches(&sessions[i], target) {
			return &sessions[i]
		}
	}
	return nil
}

func sessionMatches(session *model.SessionInfo, target string) bool {
	if session.ProcessPath != "" {
		stem := fileStem(session.ProcessPath)
		if stem != "" && strings.ToLower(stem) == target {
			return true
		}
	}
	if session.ProcessName != "" {
		stem := strings.TrimSuffix(session.ProcessName, ".exe")
		if strings.ToLower(stem) == target {
			return true
		}
	}
	if strings.ToLower(session.DisplayName) == target {
		return true
	}
	if session.ProcessPath != "" {
		if friendly := FriendlyProcessLabel(session.ProcessPath); friendly != "" {
			if strings.ToLower(friendly) == target {
				return true
			}
		}
	}
	if session.ProcessName != "" {
		if strings.ToLower(humanizeLabel(session.ProcessName)) == target {
			return true
		}
	}
	return false
}

// FindSessionByID returns the session with the given id, or nil.
func FindSessionByID(sessions []model.SessionInfo, id string) *model.SessionInfo {
	for i := range sessions {
		if sessions[i].ID == id {
			return &sessions[i]
		}
	}
	return nil
}

// FindMasterSession returns the master session, or nil.
func FindMasterSession(sessions []model.SessionInfo) *model.SessionInfo {
	for i := range sessions {
		if sessions[i].IsMaster {
			return &sessions[i]
		}
	}
	return nil
}

// FindDevice returns the device with the given raw id, or nil.
func FindDevice(devices []model.AudioDeviceInfo, rawID string) *model.AudioDeviceInfo {
	for i := range devices {
		if devices[i].ID == rawID {
			return &devices[i]
		}
	}
	return nil
}

// FriendlyProcessLabel turns an executable path into a display label:
// "c:/apps/music_player.exe" becomes "Music Player".
func FriendlyProcessLabel(path string) string {
	return humanizeLabel(fileStem(path))
}

func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func humanizeLabel(label string) string {
	cleaned := strings.NewReplacer("_", " ", "-", " ").Replace(label)
	words := strings.Fields(cleaned)
	for i, word := range words {
		words[i] = humanizeWord(word)
	}
	return strings.Join(words, " ")
}

// humanizeWord title-cases all-lowercase words but leaves mixed case alone
// so names like "OBS" or "VoiceMeeter" survive.
func humanizeWord(word string) string {
	if strings.ContainsFunc(word, unicode.IsUpper) {
		return word
	}
	runes := []rune(strings.ToLower(word))
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
