package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidShingleSize is returned when the shingle size is not positive.
	ErrInvalidShingleSize = errors.New("shingle size must be positive")

	// ErrInvalidMinContentLength is returned when the minimum content length is negative.
	ErrInvalidMinContentLength = errors.New("minimum content length must not be negative")

	// ErrInvalidMinTokenLength is returned when the minimum token length is negative.
	ErrInvalidMinTokenLength = errors.New("minimum token length must not be negative")

	// ErrInvalidPenalty is returned when a penalty is negative.
	ErrInvalidPenalty = errors.New("penalty must not be negative")

	// ErrInvalidTimeout is returned when the per-page timeout is negative.
	ErrInvalidTimeout = errors.New("timeout must not be negative")

	// ErrNilCorpus is returned when Analyze is called without a corpus.
	ErrNilCorpus = errors.New("corpus is nil")

	// ErrCorpusMismatch is returned when a corpus was built for a different
	// shingle size or hash algorithm than the engine.
	ErrCorpusMismatch = errors.New("corpus settings do not match engine")
)

// ConfigurationError reports an invalid engine configuration.
// It is only returned from New.
type ConfigurationError struct {
	// Field is the option that failed validation.
	Field string
	// Err is the underlying sentinel error.
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// ComputationError reports an unexpected failure while analyzing one page.
// It never escapes Analyze; its message is stored on the report.
type ComputationError struct {
	PageID string
	Err    error
}

func (e *ComputationError) Error() string {
	return fmt.Sprintf("analysis of %s failed: %v", e.PageID, e.Err)
}

func (e *ComputationError) Unwrap() error {
	return e.Err
}
