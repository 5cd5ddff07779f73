package virtual

import "errors"

var (
	// ErrUnloaded is returned when an operation reaches an adapter that
	// has been unloaded.
	ErrUnloaded = errors.New("virtual: adapter unloaded")

	// ErrUnknownDevice is returned when a write targets a device the
	// adapter does not serve or has not paired.
	ErrUnknownDevice = errors.New("virtual: unknown device")
)
