package mdns

import "errors"

var (
	// ErrUnloaded is returned when an operation reaches an adapter that
	// has been unloaded.
	ErrUnloaded = errors.New("mdns: adapter unloaded")

	// ErrNotSupported is returned for operations mDNS discovery cannot
	// perform, such as property writes.
	ErrNotSupported = errors.New("mdns: operation not supported")
)
