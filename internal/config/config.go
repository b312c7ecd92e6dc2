// Package config provides configuration management for the BiasLens
// application. Values are loaded from a YAML file and environment variables
// via viper, with validation on load.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/evanlambb/biaslens/internal/logger"
)

// Server defaults.
const (
	defaultServerAddress      = ":8090"
	defaultServerReadTimeout  = 30 * time.Second
	defaultServerWriteTimeout = 30 * time.Second
)

// Classifier defaults.
const (
	defaultClassifierURL     = "http://localhost:8000"
	defaultClassifierTimeout = 30 * time.Second
)

// Detection defaults and bounds.
const (
	defaultThreshold     = 0.5
	minThreshold         = 0.1
	maxThreshold         = 0.9
	defaultMinTextLength = 20
	defaultDebounce      = 500 * time.Millisecond
)

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `yaml:"address" mapstructure:"address"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// ClassifierConfig holds the external classifier endpoint configuration.
type ClassifierConfig struct {
	BaseURL string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// DetectionConfig holds the scanning and decoration configuration.
type DetectionConfig struct {
	// Enabled controls whether scanning runs at all.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Threshold is the minimum classifier confidence, in [0.1, 0.9].
	Threshold float64 `yaml:"threshold" mapstructure:"threshold"`
	// AutoRemove deletes flagged text instead of highlighting it.
	AutoRemove bool `yaml:"auto_remove" mapstructure:"auto_remove"`
	// MinTextLength is the minimum direct text for a scan candidate.
	MinTextLength int `yaml:"min_text_length" mapstructure:"min_text_length"`
	// Debounce is the quiescence window for mutation-triggered rescans.
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// Config represents the application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Classifier ClassifierConfig `yaml:"classifier" mapstructure:"classifier"`
	Detection  DetectionConfig  `yaml:"detection" mapstructure:"detection"`
	Logger     logger.Config    `yaml:"logger" mapstructure:"logger"`
}

// Init wires viper to the config file and environment. A missing config file
// is not an error; defaults and environment variables take over.
func Init(cfgFile string) error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
	}

	viper.SetEnvPrefix("BIASLENS")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("%w: %w", ErrConfigLoadFailed, err)
		}
	}
	return nil
}

// Load builds the configuration from viper's current state (config file plus
// environment overrides) and validates it.
func Load() (*Config, error) {
	setDefaults()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConfigParseFailed, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the configuration for out-of-range values.
func (c *Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("%w: server address is required", ErrConfigInvalid)
	}
	if c.Classifier.BaseURL == "" {
		return fmt.Errorf("%w: classifier base URL is required", ErrConfigInvalid)
	}
	if c.Detection.Threshold < minThreshold || c.Detection.Threshold > maxThreshold {
		return fmt.Errorf("%w: detection threshold %.2f outside [%.1f, %.1f]",
			ErrConfigInvalid, c.Detection.Threshold, minThreshold, maxThreshold)
	}
	if c.Detection.MinTextLength < 1 {
		return fmt.Errorf("%w: min text length must be positive", ErrConfigInvalid)
	}
	return nil
}

// setDefaults registers default values with viper.
func setDefaults() {
	viper.SetDefault("server.address", defaultServerAddress)
	viper.SetDefault("server.read_timeout", defaultServerReadTimeout)
	viper.SetDefault("server.write_timeout", defaultServerWriteTimeout)

	viper.SetDefault("classifier.base_url", defaultClassifierURL)
	viper.SetDefault("classifier.timeout", defaultClassifierTimeout)

	viper.SetDefault("detection.enabled", true)
	viper.SetDefault("detection.threshold", defaultThreshold)
	viper.SetDefault("detection.auto_remove", false)
	viper.SetDefault("detection.min_text_length", defaultMinTextLength)
	viper.SetDefault("detection.debounce", defaultDebounce)

	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.encoding", "console")
}
