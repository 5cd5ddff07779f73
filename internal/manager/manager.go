package manager

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emberhome/ember-core/internal/adapter"
	"github.com/emberhome/ember-core/internal/thing"
)

// Logger interface for dependency injection (avoids direct slog dependency).
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Manager is the authoritative registry of adapters and devices.
//
// It owns the in-memory device cache, proxies property reads and writes
// between consumers and adapters, coordinates the single gateway-wide
// pairing session (see pairing.go) and fans lifecycle events out to
// subscribers (see events.go). The cache is populated on startup via
// RefreshCache() and kept in sync by the adapter callbacks.
//
// All public methods are thread-safe. Devices returned to callers are
// deep copies; mutating them never affects registry state.
type Manager struct {
	store    Store
	adapters map[string]adapter.Adapter
	devices  map[string]*thing.Device
	bus      *eventBus
	session  session
	logger   Logger

	mu sync.RWMutex
}

// New creates a manager backed by the given store.
func New(store Store) *Manager {
	return &Manager{
		store:    store,
		adapters: make(map[string]adapter.Adapter),
		devices:  make(map[string]*thing.Device),
		bus:      newEventBus(),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the manager.
func (m *Manager) SetLogger(logger Logger) {
	m.logger = logger
}

// RefreshCache reloads all persisted devices into the cache.
// This should be called on application startup, before adapters load,
// so previously paired devices survive restarts.
func (m *Manager) RefreshCache(ctx context.Context) error {
	devices, err := m.store.List(ctx)
	if err != nil {
		return fmt.Errorf("loading things from store: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.devices = make(map[string]*thing.Device, len(devices))
	for _, d := range devices {
		m.devices[d.ID] = d.DeepCopy()
	}

	m.logger.Info("thing cache refreshed", "count", len(devices))
	return nil
}

// AddAdapter registers an adapter under its ID and announces it on the
// event bus. Returns ErrDuplicateAdapterID if the ID is already taken.
func (m *Manager) AddAdapter(a adapter.Adapter) error {
	m.mu.Lock()
	if _, exists := m.adapters[a.ID()]; exists {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateAdapterID, a.ID())
	}
	m.adapters[a.ID()] = a
	m.mu.Unlock()

	m.bus.publish(Event{Type: EventAdapterAdded, AdapterID: a.ID()})
	m.logger.Info("adapter registered", "adapter_id", a.ID(), "name", a.Name())
	return nil
}

// Adapter returns the adapter with the given ID and whether it exists.
func (m *Manager) Adapter(id string) (adapter.Adapter, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.adapters[id]
	return a, ok
}

// AdapterInfo is the consumer-facing description of an adapter.
type AdapterInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Adapters returns descriptions of all registered adapters, sorted by ID.
func (m *Manager) Adapters() []AdapterInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]AdapterInfo, 0, len(m.adapters))
	for _, a := range m.adapters {
		infos = append(infos, AdapterInfo{ID: a.ID(), Name: a.Name()})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Device returns a deep copy of the device with the given ID.
func (m *Manager) Device(id string) (*thing.Device, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[id]
	if !ok {
		return nil, false
	}
	return d.DeepCopy(), true
}

// Devices returns deep copies of every registered device, sorted by ID.
func (m *Manager) Devices() []*thing.Device {
	m.mu.RLock()
	defer m.mu.RUnlock()

	devices := make([]*thing.Device, 0, len(m.devices))
	for _, d := range m.devices {
		devices = append(devices, d.DeepCopy())
	}
	sort.Slice(devices, func(i, j int) bool { return devices[i].ID < devices[j].ID })
	return devices
}

// Thing returns the consumer-facing view of the device with the given ID.
func (m *Manager) Thing(id string) (*thing.Thing, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[id]
	if !ok {
		return nil, false
	}
	return d.AsThing(), true
}

// Things returns the consumer-facing view of every registered device,
// sorted by ID.
func (m *Manager) Things() []*thing.Thing {
	m.mu.RLock()
	defer m.mu.RUnlock()

	things := make([]*thing.Thing, 0, len(m.devices))
	for _, d := range m.devices {
		things = append(things, d.AsThing())
	}
	sort.Slice(things, func(i, j int) bool { return things[i].ID < things[j].ID })
	return things
}

// Property returns the current value of a property on a thing.
// Returns ErrDeviceNotFound or thing.ErrPropertyNotFound.
func (m *Manager) Property(thingID, name string) (*thing.Property, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.devices[thingID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, thingID)
	}

	p, ok := d.Property(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", thing.ErrPropertyNotFound, thingID, name)
	}
	return p.DeepCopy(), nil
}

// SetProperty validates a property write and dispatches it to the
// device's owning adapter. The call is fire-and-forget: a nil return
// means the command was accepted, and the authoritative new value
// arrives later through HandlePropertyChanged.
//
// Returns ErrDeviceNotFound, thing.ErrPropertyNotFound,
// thing.ErrPropertyReadOnly, thing.ErrInvalidPropertyValue or
// ErrAdapterUnavailable.
func (m *Manager) SetProperty(ctx context.Context, thingID, name string, value any) error {
	m.mu.RLock()
	d, ok := m.devices[thingID]
	if !ok {
		m.mu.RUnlock()
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, thingID)
	}

	p, ok := d.Property(name)
	if !ok {
		m.mu.RUnlock()
		return fmt.Errorf("%w: %s/%s", thing.ErrPropertyNotFound, thingID, name)
	}
	if p.ReadOnly {
		m.mu.RUnlock()
		return fmt.Errorf("%w: %s/%s", thing.ErrPropertyReadOnly, thingID, name)
	}
	if err := thing.ValidateValue(p.Type, value); err != nil {
		m.mu.RUnlock()
		return err
	}

	a, ok := m.adapters[d.AdapterID]
	m.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrAdapterUnavailable, d.AdapterID)
	}

	if err := a.SetProperty(ctx, thingID, name, value); err != nil {
		return fmt.Errorf("dispatching property write: %w", err)
	}

	m.logger.Debug("property write dispatched",
		"thing_id", thingID, "property", name, "adapter_id", d.AdapterID)
	return nil
}

// HandleDeviceAdded registers a device reported by an adapter.
//
// The device is cached, persisted and announced as thing-added before
// any pairing session resolves, so a consumer reacting to the session
// result always finds the thing in the registry. If a pairing session
// is open, the device wins it and every other adapter's discovery
// window is cancelled.
//
// Invalid devices are logged and dropped; an adapter bug must not
// corrupt the registry.
func (m *Manager) HandleDeviceAdded(d *thing.Device) {
	if err := thing.ValidateDevice(d); err != nil {
		m.logger.Error("rejecting invalid device from adapter", "error", err)
		return
	}

	m.mu.Lock()

	registered := d.DeepCopy()
	registered.Status = thing.StatusReady
	if registered.Properties == nil {
		registered.Properties = make(map[string]*thing.Property)
	}
	m.devices[registered.ID] = registered

	if err := m.store.Save(context.Background(), registered); err != nil {
		// The cache stays authoritative for this run; persistence is
		// retried implicitly on the next update.
		m.logger.Error("persisting thing failed", "thing_id", registered.ID, "error", err)
	}

	th := registered.AsThing()
	m.bus.publish(Event{Type: EventThingAdded, Thing: th})

	var toCancel []adapter.Adapter
	if m.session.mode == modeAdding {
		m.resolveSessionLocked(PairingResult{Thing: th})
		for id, a := range m.adapters {
			if id != registered.AdapterID {
				toCancel = append(toCancel, a)
			}
		}
	}
	m.mu.Unlock()

	m.disarmAdapters(toCancel, modeAdding)
	m.logger.Info("thing added", "thing_id", registered.ID, "adapter_id", registered.AdapterID)
}

// HandleDeviceRemoved unregisters a device reported by an adapter.
//
// The device leaves the cache and the store, and thing-removed is
// published, before this method returns: a consumer holding the removed
// thing's ID sees the removal event no later than the unpairing session
// result. Unknown devices are a no-op.
func (m *Manager) HandleDeviceRemoved(d *thing.Device) {
	if d == nil {
		return
	}

	m.mu.Lock()

	existing, ok := m.devices[d.ID]
	if !ok {
		m.mu.Unlock()
		m.logger.Debug("removal for unknown thing ignored", "thing_id", d.ID)
		return
	}

	delete(m.devices, d.ID)

	if err := m.store.Delete(context.Background(), d.ID); err != nil {
		m.logger.Error("deleting thing failed", "thing_id", d.ID, "error", err)
	}

	th := existing.AsThing()
	th.Status = thing.StatusRemoved
	m.bus.publish(Event{Type: EventThingRemoved, Thing: th})

	var toCancel []adapter.Adapter
	if m.session.mode == modeRemoving {
		m.resolveSessionLocked(PairingResult{Thing: th})
		for id, a := range m.adapters {
			if id != existing.AdapterID {
				toCancel = append(toCancel, a)
			}
		}
	}
	m.mu.Unlock()

	m.disarmAdapters(toCancel, modeRemoving)
	m.logger.Info("thing removed", "thing_id", d.ID, "adapter_id", existing.AdapterID)
}

// HandlePropertyChanged records an authoritative property value reported
// by an adapter and publishes property-changed. Values for unknown
// devices or properties are logged and dropped.
func (m *Manager) HandlePropertyChanged(deviceID, name string, value any) {
	m.mu.Lock()

	d, ok := m.devices[deviceID]
	if !ok {
		m.mu.Unlock()
		m.logger.Debug("property change for unknown thing ignored",
			"thing_id", deviceID, "property", name)
		return
	}

	p, ok := d.Property(name)
	if !ok {
		m.mu.Unlock()
		m.logger.Debug("change for undeclared property ignored",
			"thing_id", deviceID, "property", name)
		return
	}

	if err := thing.ValidateValue(p.Type, value); err != nil {
		m.mu.Unlock()
		m.logger.Warn("adapter reported value disagreeing with property type",
			"thing_id", deviceID, "property", name, "error", err)
		return
	}

	p.Value = value
	d.UpdatedAt = time.Now().UTC()
	m.mu.Unlock()

	m.bus.publish(Event{
		Type:     EventPropertyChanged,
		ThingID:  deviceID,
		Property: name,
		Value:    value,
	})
}

// Subscribe registers a lifecycle event subscriber. The returned channel
// delivers events until Unsubscribe is called with the returned ID or
// the manager closes. Slow subscribers lose events rather than blocking
// the registry.
func (m *Manager) Subscribe() (int, <-chan Event) {
	return m.bus.subscribe()
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Manager) Unsubscribe(id int) {
	m.bus.unsubscribe(id)
}

// Stats contains manager statistics.
type Stats struct {
	Adapters      int  `json:"adapters"`
	Things        int  `json:"things"`
	SessionActive bool `json:"session_active"`
}

// GetStats returns current manager statistics.
func (m *Manager) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Stats{
		Adapters:      len(m.adapters),
		Things:        len(m.devices),
		SessionActive: m.session.mode != modeIdle,
	}
}

// Close cancels any open session, unloads every adapter and shuts the
// event bus down. Safe to call once at shutdown.
func (m *Manager) Close() error {
	m.CancelAddNewThing()
	m.CancelRemoveSomeThing()

	m.mu.Lock()
	adapters := m.adapterList()
	m.adapters = make(map[string]adapter.Adapter)
	m.mu.Unlock()

	for _, a := range adapters {
		if err := a.Unload(); err != nil {
			m.logger.Warn("adapter unload failed", "adapter_id", a.ID(), "error", err)
		}
	}

	m.bus.shutdown()
	m.logger.Info("manager closed")
	return nil
}

// adapterList snapshots the registered adapters. Caller must hold m.mu.
func (m *Manager) adapterList() []adapter.Adapter {
	adapters := make([]adapter.Adapter, 0, len(m.adapters))
	for _, a := range m.adapters {
		adapters = append(adapters, a)
	}
	return adapters
}
