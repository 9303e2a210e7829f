package pipeline

import "errors"

var (
	// ErrFileTooLarge is returned for local files above the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNotText is returned for local files that are not valid UTF-8.
	ErrNotText = errors.New("file is not UTF-8 text")
)
