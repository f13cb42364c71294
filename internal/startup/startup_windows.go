//go:build windows

package startup

import (
	"os"
	"os/exec"
	"strings"
)

const (
	runKey  = `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`
	appName = "GopherMixer"
)

func enable() error {
	execPath, err := os.Executable()
	if err != nil {
		return err
	}
	return exec.Command("reg", "add", runKey,
		"/v", appName,
		"/t", "REG_SZ",
		"/d", execPath,
		"/f").Run()
}

func disable() error {
	output, err := exec.Command("reg", "delete", runKey,
		"/v", appName,
		"/f").CombinedOutput()
	// A missing value means it is already disabled.
	if err != nil && !strings.Contains(string(output), "unable to find the specified registry key or value") {
		return err
	}
	return nil
}

func isEnabled() bool {
	return exec.Command("reg", "query", runKey, "/v", appName).Run() == nil
}
