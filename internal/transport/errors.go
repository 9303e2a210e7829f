package transport

import "errors"

// ErrInvalidProxyAddress is returned when the proxy address is not "host:port".
var ErrInvalidProxyAddress = errors.New("invalid proxy address format, expected host:port")
