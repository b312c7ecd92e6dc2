// Package settings persists the user-facing detection toggles: the enabled
// flag, the confidence threshold, and the auto-remove flag. They are read
// once at startup and written back whenever a toggle changes.
package settings

import (
	"fmt"
	"os"

	"github.com/spf13/viper"

	"github.com/evanlambb/biaslens/internal/logger"
)

// DefaultPath is where settings live unless a caller overrides it.
const DefaultPath = "settings.yaml"

// Threshold bounds; values outside are clamped on load.
const (
	MinThreshold     = 0.1
	MaxThreshold     = 0.9
	DefaultThreshold = 0.5
)

// Settings are the persisted detection toggles.
type Settings struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Threshold  float64 `yaml:"threshold" mapstructure:"threshold"`
	AutoRemove bool    `yaml:"auto_remove" mapstructure:"auto_remove"`
}

// Store reads and writes settings to a YAML file.
type Store struct {
	path   string
	logger logger.Interface
}

// NewStore creates a settings store backed by the given file path.
func NewStore(path string, log logger.Interface) *Store {
	return &Store{path: path, logger: log}
}

// Load reads the persisted settings. A missing file yields defaults; an
// out-of-range threshold is clamped rather than rejected, so a hand-edited
// file never disables the feature.
func (s *Store) Load() (Settings, error) {
	defaults := Settings{Enabled: true, Threshold: DefaultThreshold}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return defaults, nil
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return defaults, fmt.Errorf("read settings: %w", err)
	}

	loaded := defaults
	if err := v.Unmarshal(&loaded); err != nil {
		return defaults, fmt.Errorf("parse settings: %w", err)
	}

	if loaded.Threshold < MinThreshold {
		s.logger.Warn("Clamping threshold to minimum", "threshold", loaded.Threshold)
		loaded.Threshold = MinThreshold
	}
	if loaded.Threshold > MaxThreshold {
		s.logger.Warn("Clamping threshold to maximum", "threshold", loaded.Threshold)
		loaded.Threshold = MaxThreshold
	}

	return loaded, nil
}

// Save writes the settings back to disk.
func (s *Store) Save(settings Settings) error {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.Set("enabled", settings.Enabled)
	v.Set("threshold", settings.Threshold)
	v.Set("auto_remove", settings.AutoRemove)

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	s.logger.Debug("Settings saved",
		"enabled", settings.Enabled,
		"threshold", settings.Threshold,
		"auto_remove", settings.AutoRemove)
	return nil
}
