//go:build !darwin && !linux && !windows

package startup

import (
	"fmt"
	"runtime"
)

func enable() error {
	return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
}

func disable() error {
	return fmt.Errorf("autostart is not supported on %s", runtime.GOOS)
}

func isEnabled() bool {
	return false
}
