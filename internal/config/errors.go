package config

import "errors"

// Common configuration errors.
var (
	// ErrConfigInvalid is returned when the configuration is invalid.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrConfigLoadFailed is returned when loading the configuration fails.
	ErrConfigLoadFailed = errors.New("failed to load configuration")

	// ErrConfigParseFailed is returned when parsing the configuration fails.
	ErrConfigParseFailed = errors.New("failed to parse configuration")
)
