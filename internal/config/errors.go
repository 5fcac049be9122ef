package config

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigInvalid is wrapped by ValidationError.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrConfigParseFailed is returned when the merged settings cannot be decoded.
	ErrConfigParseFailed = errors.New("failed to parse configuration")
)

// ValidationError represents an error in configuration validation
type ValidationError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config: field %q with value %v: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrConfigInvalid
}
