// Package profile persists named binding profiles to disk. The store is a
// blocking key-value file keyed by profile name; last write wins.
package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PixPMusic/gopher-mixer/internal/model"
)

// Store reads and writes profiles.json inside a config directory.
type Store struct {
	path string
}

// NewStore creates a store rooted at configDir.
func NewStore(configDir string) *Store {
	return &Store{path: filepath.Join(configDir, "profiles.json")}
}

// List returns summaries of all stored profiles.
func (s *Store) List() ([]model.ProfileSummary, error) {
	profiles, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	summaries := make([]model.ProfileSummary, 0, len(profiles))
	for _, profile := range profiles {
		summaries = append(summaries, model.ProfileSummary{Name: profile.Name})
	}
	return summaries, nil
}

// Load returns the named profile, or nil if it does not exist.
func (s *Store) Load(name string) (*model.Profile, error) {
	profiles, err := s.loadAll()
	if err != nil {
		return nil, err
	}
	for i := range profiles {
		if profiles[i].Name == name {
			return &profiles[i], nil
		}
	}
	return nil, nil
}

// Save writes the profile, replacing any existing one with the same name.
func (s *Store) Save(profile model.Profile) error {
	profiles, err := s.loadAll()
	if err != nil {
		return err
	}
	replaced := false
	for i := range profiles {
		if profiles[i].Name == profile.Name {
			profiles[i] = profile
			replaced = true
			break
		}
	}
	if !replaced {
		profiles = append(profiles, profile)
	}
	return s.writeAll(profiles)
}

// Delete removes the named profile. Deleting a missing profile is not an
// error.
func (s *Store) Delete(name string) error {
	profiles, err := s.loadAll()
	if err != nil {
		return err
	}
	kept := profiles[:0]
	for _, profile := range profiles {
		if profile.Name != name {
			kept = append(kept, profile)
		}
	}
	return s.writeAll(kept)
}

// Clear removes the backing file entirely.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed deleting %s: %w", s.path, err)
	}
	return nil
}

func (s *Store) loadAll() ([]model.Profile, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed reading %s: %w", s.path, err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}
	var profiles []model.Profile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("failed parsing %s: %w", s.path, err)
	}
	return profiles, nil
}

func (s *Store) writeAll(profiles []model.Profile) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed creating %s: %w", dir, err)
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed writing %s: %w", s.path, err)
	}
	return nil
}
