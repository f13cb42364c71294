// Package startup registers the application to launch at login. Each
// platform contributes its own registration mechanism via build tags.
package startup

// Sync brings the platform registration in line with the desired setting.
func Sync(enabled bool) error {
	if enabled == IsEnabled() {
		return nil
	}
	if enabled {
		return Enable()
	}
	return Disable()
}

// Enable registers the application to launch at system startup.
func Enable() error {
	return enable()
}

// Disable removes the application from system startup. Disabling when not
// registered is not an error.
func Disable() error {
	return disable()
}

// IsEnabled checks if the application is registered for startup.
func IsEnabled() bool {
	return isEnabled()
}
