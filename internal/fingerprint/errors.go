package fingerprint

import "errors"

var (
	// ErrUnknownAlgorithm is returned when a hash algorithm name is not registered.
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")

	// ErrInsufficientContent is returned when text is too short to fingerprint
	// or produced no shingles.
	ErrInsufficientContent = errors.New("insufficient content")
)
