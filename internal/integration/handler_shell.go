package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ShellHandler runs a command stored in the integration payload. The trigger
// context is passed through the environment so one command can serve both
// volume and mute bindings.
type ShellHandler struct{}

// shellData is the payload shape for "shell" integrations.
type shellData struct {
	Command string `json:"command"`
}

func (h *ShellHandler) IsSupported() bool {
	// PowerShell on Windows, Bash/Zsh on Unix
	return true
}

func (h *ShellHandler) Execute(trig Trigger) (string, error) {
	var data shellData
	if err := json.Unmarshal(trig.Data, &data); err != nil {
		return "", fmt.Errorf("invalid shell integration data: %v", err)
	}
	if strings.TrimSpace(data.Command) == "" {
		return "", fmt.Errorf("empty command")
	}

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", data.Command)
	case "darwin", "linux":
		shell := "/bin/bash"
		if runtime.GOOS == "darwin" {
			if _, err := exec.LookPath("zsh"); err == nil {
				shell = "/bin/zsh"
			}
		}
		cmd = exec.Command(shell, "-c", data.Command)
	default:
		return "", fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	cmd.Env = append(cmd.Environ(),
		fmt.Sprintf("MIXER_ACTION=%s", trig.Action),
		fmt.Sprintf("MIXER_VALUE=%f", trig.Value),
		fmt.Sprintf("MIXER_BINDING_ID=%s", trig.BindingID),
		fmt.Sprintf("MIXER_INTEGRATION_ID=%s", trig.ID),
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		errMsg := stderr.String()
		if errMsg != "" {
			return stdout.String(), fmt.Errorf("shell error: %s", strings.TrimSpace(errMsg))
		}
		return stdout.String(), fmt.Errorf("shell execution failed: %v", err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
