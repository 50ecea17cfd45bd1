package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Not found errors
	ErrNotFound      = errors.New("resource not found")
	ErrTrialNotFound = fmt.Errorf("%w: trial", ErrNotFound)

	// Validation errors
	ErrInvalidParameters = errors.New("invalid simulation parameters")
	ErrEmptyGrid         = errors.New("parameter grid is empty")
	ErrInvalidPeriods    = errors.New("invalid pre/post period split")

	// Per-trial errors
	ErrEstimationFailed = errors.New("effect estimation failed")
	ErrCacheCorrupt     = errors.New("cache entry corrupt")
)

// Error constructors with context
func NewParameterError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrInvalidParameters, field, reason)
}

func NewEstimationError(trialKey string, err error) error {
	return fmt.Errorf("%w for trial %s: %v", ErrEstimationFailed, trialKey, err)
}

func NewCacheCorruptionError(trialKey string, err error) error {
	return fmt.Errorf("%w for trial %s: %v", ErrCacheCorrupt, trialKey, err)
}

// Error checking helpers
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsParameterError(err error) bool {
	return errors.Is(err, ErrInvalidParameters) ||
		errors.Is(err, ErrEmptyGrid) ||
		errors.Is(err, ErrInvalidPeriods)
}

// IsTrialError reports whether err is isolated to a single trial and
// must not abort the surrounding sweep.
func IsTrialError(err error) bool {
	return errors.Is(err, ErrEstimationFailed) ||
		errors.Is(err, ErrCacheCorrupt)
}
