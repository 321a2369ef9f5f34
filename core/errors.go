package core

import (
	"fmt"
	"time"
)

// ConfigError represents a configuration-related error with actionable instructions.
type ConfigError struct {
	Code    string // Error code for programmatic handling
	Message string // Human-readable error message
	Action  string // Actionable instruction for resolution
}

func (e *ConfigError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s. %s", e.Message, e.Action)
	}
	return e.Message
}

// Error codes for configuration errors
const (
	ErrCodeIntervalTooShort  = "INTERVAL_TOO_SHORT"
	ErrCodeInvalidScreenSize = "INVALID_SCREEN_SIZE"
	ErrCodeInvalidValue      = "INVALID_VALUE"
	ErrCodeDataDirUnwritable = "DATA_DIR_UNWRITABLE"
)

// ErrIntervalTooShort returns an error for a generation interval below the minimum.
// Generating more often than once a minute would hammer the free providers.
func ErrIntervalTooShort(interval time.Duration) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeIntervalTooShort,
		Message: fmt.Sprintf("Generation interval %s is below the 1 minute minimum", interval),
		Action:  "Set GENERATION_INTERVAL to at least 60 (seconds)",
	}
}

// ErrInvalidScreenSize returns an error for a partial or non-positive screen override.
func ErrInvalidScreenSize(width, height int) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidScreenSize,
		Message: fmt.Sprintf("Invalid screen override %dx%d", width, height),
		Action:  "Set both SCREEN_WIDTH and SCREEN_HEIGHT to positive pixel counts, or neither",
	}
}

// ErrInvalidValue returns an error for a generically malformed configuration value.
func ErrInvalidValue(varName, value, reason string) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeInvalidValue,
		Message: fmt.Sprintf("Invalid value %q for %s: %s", value, varName, reason),
		Action:  fmt.Sprintf("Fix %s in your .env file", varName),
	}
}

// ErrDataDirUnwritable returns an error when the data directory cannot be created or written.
func ErrDataDirUnwritable(path string, cause error) *ConfigError {
	return &ConfigError{
		Code:    ErrCodeDataDirUnwritable,
		Message: fmt.Sprintf("Data directory %s is not writable: %v", path, cause),
		Action:  "Point WALLGEN_DATA_DIR at a writable location",
	}
}

// IsConfigError checks if an error is a ConfigError and returns it if so.
func IsConfigError(err error) (*ConfigError, bool) {
	if configErr, ok := err.(*ConfigError); ok {
		return configErr, true
	}
	return nil, false
}

// GetErrorCode extracts the error code from an error if it's a ConfigError.
func GetErrorCode(err error) string {
	if configErr, ok := IsConfigError(err); ok {
		return configErr.Code
	}
	return ""
}
