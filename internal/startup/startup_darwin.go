//go:build darwin

package startup

import (
	"fmt"
	"os"
	"path/filepath"
)

const launchAgentLabel = "com.pixpmusic.gopher-mixer"

func agentPlistPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, "Library", "LaunchAgents", launchAgentLabel+".plist")
}

func enable() error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}

	plist := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>%s</string>
    <key>ProgramArguments</key>
    <array>
        <string>%s</string>
    </array>
    <key>RunAtLoad</key>
    <true/>
</dict>
</plist>
`, launchAgentLabel, execPath)

	path := agentPlistPath()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(plist), 0644)
}

func disable() error {
	err := os.Remove(agentPlistPath())
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func isEnabled() bool {
	_, err := os.Stat(agentPlistPath())
	return err == nil
}
