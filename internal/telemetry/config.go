// Package telemetry sends anonymous usage events to PostHog when the user has
// opted in.
package telemetry

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// ConfigFileName is the name of the telemetry configuration file.
const ConfigFileName = "telemetry.json"

// Config holds the opt-in state. It lives next to the main config but in its
// own file so it survives config resets.
type Config struct {
	Enabled bool `json:"enabled"`

	// ConsentAsked is set once the user has made a choice either way.
	ConsentAsked bool `json:"consent_asked"`

	// AnonymousID is generated on first load and never changes.
	AnonymousID string `json:"anonymous_id"`
}

// Store reads and writes the telemetry file in one directory.
type Store struct {
	fs  afero.Fs
	dir string
}

func NewStore(fsys afero.Fs, dir string) *Store {
	return &Store{fs: fsys, dir: dir}
}

// Path returns the telemetry file location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, ConfigFileName)
}

// Load returns the stored config, or a disabled one with a fresh anonymous id
// when no file exists yet.
func (s *Store) Load() (*Config, error) {
	cfg := &Config{}

	data, err := afero.ReadFile(s.fs, s.Path())
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read telemetry config: %w", err)
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse telemetry config: %w", err)
		}
	}

	if cfg.AnonymousID == "" {
		cfg.AnonymousID = uuid.New().String()
	}
	return cfg, nil
}

// Save writes c with owner-only permissions.
func (s *Store) Save(c *Config) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal telemetry config: %w", err)
	}
	if err := afero.WriteFile(s.fs, s.Path(), data, 0o600); err != nil {
		return fmt.Errorf("write telemetry config: %w", err)
	}
	return nil
}

// Enable turns on telemetry and marks consent as given.
func (c *Config) Enable() {
	c.Enabled = true
	c.ConsentAsked = true
}

// Disable turns off telemetry and marks consent as given.
func (c *Config) Disable() {
	c.Enabled = false
	c.ConsentAsked = true
}

func (c *Config) NeedsConsent() bool { return !c.ConsentAsked }

func (c *Config) IsEnabled() bool { return c.Enabled }
