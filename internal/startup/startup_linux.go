//go:build linux

package startup

import (
	"fmt"
	"os"
	"path/filepath"
)

func autostartEntryPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "autostart", "gopher-mixer.desktop")
}

func enable() error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}

	entry := fmt.Sprintf(`[Desktop Entry]
Type=Application
Name=GopherMixer
Exec=%s
Hidden=false
NoDisplay=false
X-GNOME-Autostart-enabled=true
`, execPath)

	path := autostartEntryPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(entry), 0644)
}

func disable() error {
	err := os.Remove(autostartEntryPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func isEnabled() bool {
	_, err := os.Stat(autostartEntryPath())
	return err == nil
}
