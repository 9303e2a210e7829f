package crawler

import "errors"

var (
	// ErrUnsupportedScheme is returned for start URLs that are not http(s).
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrUnexpectedStatus is returned for 4xx/5xx responses.
	ErrUnexpectedStatus = errors.New("unexpected HTTP status")

	// ErrUnsupportedContentType is returned for responses that carry no text.
	ErrUnsupportedContentType = errors.New("unsupported content type")
)
