package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// Config holds application settings that live outside any profile.
type Config struct {
	ActiveProfile  string `json:"active_profile"`
	InputDeviceID  string `json:"input_device_id"`
	OutputDeviceID string `json:"output_device_id"`
	StartInTray    bool   `json:"start_in_tray"`
	ExitToTray     bool   `json:"exit_to_tray"`
	MinimizeToTray bool   `json:"minimize_to_tray"`
	Autostart      bool   `json:"autostart"`
	Verbose        bool   `json:"verbose"`
}

// configDir returns the platform-appropriate config directory
func configDir() (string, error) {
	configHome, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configHome, "gopher-mixer"), nil
}

// ConfigPath returns the full path to the settings file
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "settings.json"), nil
}

// Dir returns the config directory, creating it if needed.
func Dir() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

// Load reads the settings from disk, returning defaults if not found
func Load() (*Config, error) {
	configPath, err := ConfigPath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return &Config{ActiveProfile: "Default"}, nil
	}
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.ActiveProfile == "" {
		cfg.ActiveProfile = "Default"
	}
	return &cfg, nil
}

// Save writes the settings to disk
func (c *Config) Save() error {
	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
