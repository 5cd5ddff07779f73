package virtual

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/emberhome/ember-core/internal/adapter"
	"github.com/emberhome/ember-core/internal/infrastructure/config"
	"github.com/emberhome/ember-core/internal/thing"
)

// AdapterID is the stable identifier the virtual adapter registers under.
const AdapterID = "virtual"

// identifyDelay simulates the identification handshake a real driver
// performs before confirming a discovered device.
const defaultIdentifyDelay = 50 * time.Millisecond

// Logger interface for dependency injection (avoids direct slog dependency).
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Adapter serves configuration-declared in-memory devices. It exists for
// development and testing: pairing hands the next declared device to the
// registry after a short identification delay, and property writes are
// applied locally and echoed back as authoritative changes.
type Adapter struct {
	reg           adapter.Registry
	logger        Logger
	identifyDelay time.Duration

	mu       sync.Mutex
	devices  []*thing.Device // declared devices, in config order
	paired   map[string]bool
	pairing  *window
	unpair   *window
	unloaded bool
}

// window tracks one open pairing or unpairing window.
type window struct {
	cancel chan struct{}
}

// NewFactory returns a factory building the virtual adapter from its
// configuration. The factory fails if a declared device is invalid, so a
// config typo surfaces at startup rather than mid-pairing.
func NewFactory(cfg config.VirtualAdapterConfig) adapter.Factory {
	return func(reg adapter.Registry) (adapter.Adapter, error) {
		return New(cfg, reg)
	}
}

// New builds the virtual adapter, validating every declared device.
func New(cfg config.VirtualAdapterConfig, reg adapter.Registry) (*Adapter, error) {
	a := &Adapter{
		reg:           reg,
		logger:        noopLogger{},
		identifyDelay: defaultIdentifyDelay,
		paired:        make(map[string]bool),
	}

	for _, dc := range cfg.Devices {
		d, err := deviceFromConfig(dc)
		if err != nil {
			return nil, fmt.Errorf("virtual device %q: %w", dc.ID, err)
		}
		a.devices = append(a.devices, d)
	}

	return a, nil
}

// SetLogger sets the logger for the adapter.
func (a *Adapter) SetLogger(logger Logger) {
	a.logger = logger
}

// ID returns the adapter identifier.
func (a *Adapter) ID() string { return AdapterID }

// Name returns the human-readable adapter name.
func (a *Adapter) Name() string { return "Virtual Devices" }

// StartPairing opens a discovery window. After the identification delay
// the next declared-but-unpaired device is reported to the registry.
// Restarting an open window replaces it.
func (a *Adapter) StartPairing(_ context.Context, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.unloaded {
		return ErrUnloaded
	}

	a.closePairingLocked()
	w := &window{cancel: make(chan struct{})}
	a.pairing = w

	go a.identifyNext(w)
	return nil
}

// CancelPairing closes an open discovery window. No-op when idle.
func (a *Adapter) CancelPairing() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closePairingLocked()
}

// StartUnpairing arms removal detection. After the identification delay
// the most recently paired device is reported removed.
func (a *Adapter) StartUnpairing(_ context.Context, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.unloaded {
		return ErrUnloaded
	}

	a.closeUnpairingLocked()
	w := &window{cancel: make(chan struct{})}
	a.unpair = w

	go a.removeLast(w)
	return nil
}

// CancelUnpairing disarms removal detection. No-op when idle.
func (a *Adapter) CancelUnpairing() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closeUnpairingLocked()
}

// SetProperty applies a write to the local device state and echoes the
// new value back through the registry as an authoritative change.
func (a *Adapter) SetProperty(_ context.Context, deviceID, name string, value any) error {
	a.mu.Lock()

	d := a.deviceLocked(deviceID)
	if d == nil || !a.paired[deviceID] {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
	}

	p, ok := d.Property(name)
	if !ok {
		a.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", thing.ErrPropertyNotFound, deviceID, name)
	}
	if err := thing.ValidateValue(p.Type, value); err != nil {
		a.mu.Unlock()
		return err
	}

	p.Value = value
	a.mu.Unlock()

	a.reg.HandlePropertyChanged(deviceID, name, value)
	return nil
}

// Unload abandons any open windows and stops serving devices.
func (a *Adapter) Unload() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closePairingLocked()
	a.closeUnpairingLocked()
	a.unloaded = true
	return nil
}

// identifyNext waits out the identification delay, then reports the
// first unpaired declared device. An exhausted device list leaves the
// window open; the coordinator's timeout or cancel closes it.
func (a *Adapter) identifyNext(w *window) {
	select {
	case <-time.After(a.identifyDelay):
	case <-w.cancel:
		return
	}

	a.mu.Lock()
	if a.pairing != w {
		a.mu.Unlock()
		return
	}

	var next *thing.Device
	for _, d := range a.devices {
		if !a.paired[d.ID] {
			next = d
			break
		}
	}
	if next == nil {
		a.mu.Unlock()
		a.logger.Debug("pairing window open but all declared devices paired")
		return
	}

	a.paired[next.ID] = true
	a.pairing = nil
	report := next.DeepCopy()
	a.mu.Unlock()

	a.logger.Info("virtual device identified", "device_id", report.ID)
	a.reg.HandleDeviceAdded(report)
}

// removeLast waits out the identification delay, then reports the most
// recently paired device as removed.
func (a *Adapter) removeLast(w *window) {
	select {
	case <-time.After(a.identifyDelay):
	case <-w.cancel:
		return
	}

	a.mu.Lock()
	if a.unpair != w {
		a.mu.Unlock()
		return
	}

	var last *thing.Device
	for i := len(a.devices) - 1; i >= 0; i-- {
		if a.paired[a.devices[i].ID] {
			last = a.devices[i]
			break
		}
	}
	if last == nil {
		a.mu.Unlock()
		a.logger.Debug("unpairing window open but no devices paired")
		return
	}

	delete(a.paired, last.ID)
	a.unpair = nil
	report := last.DeepCopy()
	a.mu.Unlock()

	a.logger.Info("virtual device removed", "device_id", report.ID)
	a.reg.HandleDeviceRemoved(report)
}

func (a *Adapter) deviceLocked(id string) *thing.Device {
	for _, d := range a.devices {
		if d.ID == id {
			return d
		}
	}
	return nil
}

func (a *Adapter) closePairingLocked() {
	if a.pairing != nil {
		close(a.pairing.cancel)
		a.pairing = nil
	}
}

func (a *Adapter) closeUnpairingLocked() {
	if a.unpair != nil {
		close(a.unpair.cancel)
		a.unpair = nil
	}
}

// deviceFromConfig builds a validated device from its declaration.
func deviceFromConfig(dc config.VirtualDeviceConfig) (*thing.Device, error) {
	d := &thing.Device{
		ID:         dc.ID,
		Title:      dc.Title,
		AdapterID:  AdapterID,
		Status:     thing.StatusReady,
		Properties: make(map[string]*thing.Property, len(dc.Properties)),
	}

	for _, pc := range dc.Properties {
		p := &thing.Property{
			Name:     pc.Name,
			Type:     thing.PropertyType(pc.Type),
			Unit:     pc.Unit,
			ReadOnly: pc.ReadOnly,
			Value:    pc.Value,
		}
		if p.Value == nil {
			p.Value = zeroValue(p.Type)
		}
		d.Properties[p.Name] = p
	}

	if err := thing.ValidateDevice(d); err != nil {
		return nil, err
	}
	return d, nil
}

// zeroValue returns the neutral value for a property type, used when a
// declaration omits an initial value.
func zeroValue(t thing.PropertyType) any {
	switch t {
	case thing.PropertyTypeBoolean:
		return false
	case thing.PropertyTypeInteger:
		return 0
	case thing.PropertyTypeNumber:
		return 0.0
	default:
		return ""
	}
}
