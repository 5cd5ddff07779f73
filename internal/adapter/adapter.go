package adapter

import (
	"context"
	"time"

	"github.com/emberhome/ember-core/internal/thing"
)

// Adapter is the capability contract every device driver implements.
//
// Adapters bridge one protocol or transport (MQTT, mDNS, in-memory
// virtual devices) into the uniform thing model. They never talk to
// consumers directly: discovered devices, removals and property changes
// flow through the Registry callbacks handed to the adapter at
// construction.
//
// Pairing methods must be idempotent: starting an already-running mode
// restarts its window, and cancelling when idle is a no-op. SetProperty
// dispatches a write and returns once the command is accepted by the
// driver - the authoritative new value arrives later through
// HandlePropertyChanged.
type Adapter interface {
	// ID returns the stable adapter identifier (e.g. "virtual", "mqtt").
	ID() string

	// Name returns the human-readable adapter name.
	Name() string

	// StartPairing opens a discovery window for new devices.
	// The timeout bounds the window; zero means no driver-side limit.
	StartPairing(ctx context.Context, timeout time.Duration) error

	// CancelPairing closes an open discovery window.
	// Calling it when no window is open is a no-op.
	CancelPairing()

	// StartUnpairing arms the adapter to detect a device removal.
	StartUnpairing(ctx context.Context, timeout time.Duration) error

	// CancelUnpairing disarms removal detection.
	// Calling it when not armed is a no-op.
	CancelUnpairing()

	// SetProperty dispatches a property write to a device.
	// It is fire-and-forget: a nil return means the command was accepted,
	// not that the device applied it.
	SetProperty(ctx context.Context, deviceID, name string, value any) error

	// Unload releases driver resources. Safe to call mid-operation;
	// any open pairing window is abandoned.
	Unload() error
}

// Registry is the callback surface the manager provides to adapters.
//
// Adapters receive it explicitly at construction - there is no global
// state. All three callbacks are safe for concurrent use.
type Registry interface {
	// HandleDeviceAdded reports a device whose identification completed.
	// The registry takes ownership of the device value.
	HandleDeviceAdded(d *thing.Device)

	// HandleDeviceRemoved reports a device the adapter no longer owns.
	HandleDeviceRemoved(d *thing.Device)

	// HandlePropertyChanged reports an authoritative property value.
	HandlePropertyChanged(deviceID, name string, value any)
}

// Factory constructs an adapter wired to a registry. Factories are
// registered statically by adapter type; a factory returning an error
// means the driver failed to initialise and the adapter is never
// registered.
type Factory func(reg Registry) (Adapter, error)
