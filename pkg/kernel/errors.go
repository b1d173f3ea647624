package kernel

import (
	"errors"
	"fmt"
)

var (
	// ErrPatternTooLong is returned when a pattern exceeds MaxPatternLen units.
	ErrPatternTooLong = errors.New("pattern too long")
	// ErrInvalidMode is returned for a match mode outside prefix/suffix/contains.
	ErrInvalidMode = errors.New("invalid match mode")
	// ErrEmptyPattern is returned when the host is asked to search for nothing.
	ErrEmptyPattern = errors.New("pattern is empty")
	// ErrInvalidPattern is returned for pattern units the granularity cannot hold.
	ErrInvalidPattern = errors.New("invalid pattern")
	// ErrInvalidDispatch is returned for malformed dispatch descriptions.
	ErrInvalidDispatch = errors.New("invalid dispatch")

	// ErrRuntimeUnavailable means no compatible compute backend exists or a
	// dispatch failed on the device. Hosts fall back to the CPU backend.
	ErrRuntimeUnavailable = errors.New("compute runtime unavailable")
)

// ConfigError describes a search configuration rejected before dispatch.
//
// The sentinel cause can be matched with errors.Is.
type ConfigError struct {
	Field  string
	Reason string
	cause  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.cause }

func configError(field string, cause error, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...), cause: cause}
}

// unavailable wraps ErrRuntimeUnavailable with the backend name.
func unavailable(backend string, err error) error {
	if err == nil {
		return fmt.Errorf("%s: %w", backend, ErrRuntimeUnavailable)
	}
	return fmt.Errorf("%s: %w: %w", backend, ErrRuntimeUnavailable, err)
}
