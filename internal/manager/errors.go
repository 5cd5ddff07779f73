package manager

import "errors"

// Domain errors for the manager package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, manager.ErrOperationInProgress) {
//	    // reject the concurrent pairing request
//	}
var (
	// ErrDuplicateAdapterID is returned when an adapter registers with an
	// ID already held by another adapter.
	ErrDuplicateAdapterID = errors.New("manager: duplicate adapter id")

	// ErrAdapterUnavailable is returned when a device's owning adapter
	// has been unloaded and can no longer service requests.
	ErrAdapterUnavailable = errors.New("manager: adapter unavailable")

	// ErrDeviceNotFound is returned when no registered device matches
	// the given ID.
	ErrDeviceNotFound = errors.New("manager: device not found")

	// ErrOperationInProgress is returned when a pairing or unpairing
	// request arrives while another session is active. At most one
	// session runs gateway-wide.
	ErrOperationInProgress = errors.New("manager: operation already in progress")

	// ErrPairingCancelled is delivered on a session's result channel when
	// the session is cancelled before any device arrives.
	ErrPairingCancelled = errors.New("manager: pairing cancelled")

	// ErrPairingTimeout is delivered on a session's result channel when
	// the session window expires without a result.
	ErrPairingTimeout = errors.New("manager: pairing timed out")
)
