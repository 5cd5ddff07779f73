package virtual

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/emberhome/ember-core/internal/infrastructure/config"
	"github.com/emberhome/ember-core/internal/thing"
)

// mockRegistry records callbacks from the adapter.
type mockRegistry struct {
	mu      sync.Mutex
	added   []*thing.Device
	removed []*thing.Device
	changes []propChange

	addedCh   chan *thing.Device
	removedCh chan *thing.Device
}

type propChange struct {
	deviceID string
	name     string
	value    any
}

func newMockRegistry() *mockRegistry {
	return &mockRegistry{
		addedCh:   make(chan *thing.Device, 8),
		removedCh: make(chan *thing.Device, 8),
	}
}

func (r *mockRegistry) HandleDeviceAdded(d *thing.Device) {
	r.mu.Lock()
	r.added = append(r.added, d)
	r.mu.Unlock()
	r.addedCh <- d
}

func (r *mockRegistry) HandleDeviceRemoved(d *thing.Device) {
	r.mu.Lock()
	r.removed = append(r.removed, d)
	r.mu.Unlock()
	r.removedCh <- d
}

func (r *mockRegistry) HandlePropertyChanged(deviceID, name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, propChange{deviceID: deviceID, name: name, value: value})
}

func testConfig() config.VirtualAdapterConfig {
	return config.VirtualAdapterConfig{
		Enabled: true,
		Devices: []config.VirtualDeviceConfig{
			{
				ID:    "virtual-plug-7",
				Title: "Plug 7",
				Properties: []config.VirtualDevicePropertyConfig{
					{Name: "on", Type: "boolean", Value: false},
					{Name: "power", Type: "number", Unit: "watt", ReadOnly: true, Value: 0.0},
				},
			},
			{
				ID:    "virtual-plug-8",
				Title: "Plug 8",
				Properties: []config.VirtualDevicePropertyConfig{
					{Name: "on", Type: "boolean"},
				},
			},
		},
	}
}

// newTestAdapter builds an adapter with a near-zero identification delay.
func newTestAdapter(t *testing.T, reg *mockRegistry) *Adapter {
	t.Helper()

	a, err := New(testConfig(), reg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	a.identifyDelay = time.Millisecond
	return a
}

func waitAdded(t *testing.T, reg *mockRegistry) *thing.Device {
	t.Helper()
	select {
	case d := <-reg.addedCh:
		return d
	case <-time.After(time.Second):
		t.Fatal("no device reported added")
		return nil
	}
}

func waitRemoved(t *testing.T, reg *mockRegistry) *thing.Device {
	t.Helper()
	select {
	case d := <-reg.removedCh:
		return d
	case <-time.After(time.Second):
		t.Fatal("no device reported removed")
		return nil
	}
}

func TestNewRejectsInvalidDevice(t *testing.T) {
	cfg := config.VirtualAdapterConfig{
		Devices: []config.VirtualDeviceConfig{
			{ID: "bad", Title: "Bad", Properties: []config.VirtualDevicePropertyConfig{
				{Name: "mode", Type: "blob"},
			}},
		},
	}

	if _, err := New(cfg, newMockRegistry()); err == nil {
		t.Error("New() error = nil, want invalid property type error")
	}
}

func TestPairingIdentifiesDeclaredDevices(t *testing.T) {
	reg := newMockRegistry()
	a := newTestAdapter(t, reg)
	ctx := context.Background()

	if err := a.StartPairing(ctx, 0); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	first := waitAdded(t, reg)
	if first.ID != "virtual-plug-7" {
		t.Errorf("first device = %q, want virtual-plug-7", first.ID)
	}
	if first.AdapterID != AdapterID {
		t.Errorf("AdapterID = %q, want %q", first.AdapterID, AdapterID)
	}

	// Second window hands over the next declared device.
	if err := a.StartPairing(ctx, 0); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	second := waitAdded(t, reg)
	if second.ID != "virtual-plug-8" {
		t.Errorf("second device = %q, want virtual-plug-8", second.ID)
	}

	t.Run("exhausted list reports nothing", func(t *testing.T) {
		if err := a.StartPairing(ctx, 0); err != nil {
			t.Fatalf("StartPairing() error = %v", err)
		}
		select {
		case d := <-reg.addedCh:
			t.Errorf("unexpected device %q with all devices paired", d.ID)
		case <-time.After(50 * time.Millisecond):
		}
		a.CancelPairing()
	})
}

func TestCancelPairingStopsIdentification(t *testing.T) {
	reg := newMockRegistry()
	a := newTestAdapter(t, reg)
	a.identifyDelay = 50 * time.Millisecond

	if err := a.StartPairing(context.Background(), 0); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	a.CancelPairing()

	select {
	case d := <-reg.addedCh:
		t.Errorf("device %q reported after cancel", d.ID)
	case <-time.After(150 * time.Millisecond):
	}

	// Cancel when idle is a no-op.
	a.CancelPairing()
}

func TestUnpairingRemovesLastPaired(t *testing.T) {
	reg := newMockRegistry()
	a := newTestAdapter(t, reg)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := a.StartPairing(ctx, 0); err != nil {
			t.Fatalf("StartPairing() error = %v", err)
		}
		waitAdded(t, reg)
	}

	if err := a.StartUnpairing(ctx, 0); err != nil {
		t.Fatalf("StartUnpairing() error = %v", err)
	}
	removed := waitRemoved(t, reg)
	if removed.ID != "virtual-plug-8" {
		t.Errorf("removed device = %q, want most recently paired virtual-plug-8", removed.ID)
	}

	// The removed device becomes pairable again.
	if err := a.StartPairing(ctx, 0); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	if d := waitAdded(t, reg); d.ID != "virtual-plug-8" {
		t.Errorf("re-paired device = %q, want virtual-plug-8", d.ID)
	}
}

func TestSetProperty(t *testing.T) {
	reg := newMockRegistry()
	a := newTestAdapter(t, reg)
	ctx := context.Background()

	if err := a.StartPairing(ctx, 0); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	waitAdded(t, reg)

	if err := a.SetProperty(ctx, "virtual-plug-7", "on", true); err != nil {
		t.Fatalf("SetProperty() error = %v", err)
	}

	reg.mu.Lock()
	changes := append([]propChange(nil), reg.changes...)
	reg.mu.Unlock()
	if len(changes) != 1 {
		t.Fatalf("registry saw %d changes, want 1", len(changes))
	}
	if changes[0].deviceID != "virtual-plug-7" || changes[0].name != "on" || changes[0].value != true {
		t.Errorf("change = %+v, want virtual-plug-7/on/true", changes[0])
	}

	t.Run("unpaired device rejected", func(t *testing.T) {
		err := a.SetProperty(ctx, "virtual-plug-8", "on", true)
		if !errors.Is(err, ErrUnknownDevice) {
			t.Errorf("SetProperty() error = %v, want ErrUnknownDevice", err)
		}
	})

	t.Run("unknown property rejected", func(t *testing.T) {
		err := a.SetProperty(ctx, "virtual-plug-7", "colour", "red")
		if !errors.Is(err, thing.ErrPropertyNotFound) {
			t.Errorf("SetProperty() error = %v, want ErrPropertyNotFound", err)
		}
	})

	t.Run("type mismatch rejected", func(t *testing.T) {
		err := a.SetProperty(ctx, "virtual-plug-7", "on", "yes")
		if !errors.Is(err, thing.ErrInvalidPropertyValue) {
			t.Errorf("SetProperty() error = %v, want ErrInvalidPropertyValue", err)
		}
	})
}

func TestUnload(t *testing.T) {
	reg := newMockRegistry()
	a := newTestAdapter(t, reg)
	a.identifyDelay = 50 * time.Millisecond

	if err := a.StartPairing(context.Background(), 0); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	if err := a.Unload(); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}

	select {
	case d := <-reg.addedCh:
		t.Errorf("device %q reported after unload", d.ID)
	case <-time.After(150 * time.Millisecond):
	}

	if err := a.StartPairing(context.Background(), 0); !errors.Is(err, ErrUnloaded) {
		t.Errorf("StartPairing() after unload error = %v, want ErrUnloaded", err)
	}
}

func TestZeroValues(t *testing.T) {
	reg := newMockRegistry()
	a := newTestAdapter(t, reg)
	ctx := context.Background()

	if err := a.StartPairing(ctx, 0); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	waitAdded(t, reg)
	if err := a.StartPairing(ctx, 0); err != nil {
		t.Fatalf("StartPairing() error = %v", err)
	}
	d := waitAdded(t, reg)

	p, ok := d.Property("on")
	if !ok {
		t.Fatal("on property missing")
	}
	if p.Value != false {
		t.Errorf("declared-without-value boolean = %v, want false", p.Value)
	}
}
