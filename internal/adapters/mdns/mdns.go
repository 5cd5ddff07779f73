package mdns

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"

	"github.com/emberhome/ember-core/internal/adapter"
	"github.com/emberhome/ember-core/internal/infrastructure/config"
	"github.com/emberhome/ember-core/internal/thing"
)

// AdapterID is the stable identifier the mDNS adapter registers under.
const AdapterID = "mdns"

// Defaults for the browsed service.
const (
	DefaultService = "_webthing._tcp"
	DefaultDomain  = "local."
)

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

// browser abstracts zeroconf service discovery for testing.
type browser interface {
	Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error
}

// zeroconfBrowser creates a fresh resolver per browse, matching
// zeroconf's intended single-shot resolver usage.
type zeroconfBrowser struct{}

func (zeroconfBrowser) Browse(ctx context.Context, service, domain string, entries chan<- *zeroconf.ServiceEntry) error {
	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return fmt.Errorf("creating resolver: %w", err)
	}
	return resolver.Browse(ctx, service, domain, entries)
}

// Adapter discovers network devices advertising a Web Thing service
// over mDNS. Discovery only runs while a pairing window is open; the
// first advertisement seen wins the window.
//
// The adapter cannot observe removals (a service that stops advertising
// just goes silent), so unpairing is a no-op: an armed removal session
// waits on the other adapters.
type Adapter struct {
	service string
	domain  string
	reg     adapter.Registry
	browse  browser
	logger  Logger

	mu       sync.Mutex
	cancel   context.CancelFunc
	unloaded bool
}

// NewFactory returns a factory building the mDNS adapter from its
// configuration.
func NewFactory(cfg config.MDNSAdapterConfig) adapter.Factory {
	return func(reg adapter.Registry) (adapter.Adapter, error) {
		return New(cfg, reg), nil
	}
}

// New builds the mDNS adapter.
func New(cfg config.MDNSAdapterConfig, reg adapter.Registry) *Adapter {
	service := cfg.Service
	if service == "" {
		service = DefaultService
	}
	domain := cfg.Domain
	if domain == "" {
		domain = DefaultDomain
	}

	return &Adapter{
		service: service,
		domain:  domain,
		reg:     reg,
		browse:  zeroconfBrowser{},
		logger:  noopLogger{},
	}
}

// SetLogger sets the logger for the adapter.
func (a *Adapter) SetLogger(logger Logger) {
	a.logger = logger
}

// ID returns the adapter identifier.
func (a *Adapter) ID() string { return AdapterID }

// Name returns the human-readable adapter name.
func (a *Adapter) Name() string { return "mDNS Discovery" }

// StartPairing begins browsing for service advertisements. Restarting
// an open window replaces the running browse.
func (a *Adapter) StartPairing(ctx context.Context, timeout time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.unloaded {
		return ErrUnloaded
	}

	a.stopBrowseLocked()

	var browseCtx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		browseCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		browseCtx, cancel = context.WithCancel(ctx)
	}
	a.cancel = cancel

	entries := make(chan *zeroconf.ServiceEntry, 8)
	if err := a.browse.Browse(browseCtx, a.service, a.domain, entries); err != nil {
		cancel()
		a.cancel = nil
		return fmt.Errorf("browsing %s: %w", a.service, err)
	}

	go a.consume(browseCtx, cancel, entries)
	return nil
}

// CancelPairing stops an active browse. No-op when idle.
func (a *Adapter) CancelPairing() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopBrowseLocked()
}

// StartUnpairing is a no-op; mDNS cannot observe device removal.
func (a *Adapter) StartUnpairing(_ context.Context, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.unloaded {
		return ErrUnloaded
	}
	a.logger.Debug("unpairing armed but mdns cannot detect removals")
	return nil
}

// CancelUnpairing is a no-op.
func (a *Adapter) CancelUnpairing() {}

// SetProperty is unsupported: discovered services describe themselves
// over their own transport, which this adapter does not speak.
func (a *Adapter) SetProperty(_ context.Context, deviceID, _ string, _ any) error {
	return fmt.Errorf("%w: %s", ErrNotSupported, deviceID)
}

// Unload stops any active browse.
func (a *Adapter) Unload() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopBrowseLocked()
	a.unloaded = true
	return nil
}

// consume reports the first advertisement and stops the browse.
func (a *Adapter) consume(ctx context.Context, cancel context.CancelFunc, entries <-chan *zeroconf.ServiceEntry) {
	defer cancel()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				return
			}
			if entry == nil {
				continue
			}

			d := deviceFromEntry(entry)
			if err := thing.ValidateDevice(d); err != nil {
				a.logger.Warn("skipping invalid advertisement",
					"instance", entry.Instance, "error", err)
				continue
			}

			a.mu.Lock()
			a.cancel = nil
			a.mu.Unlock()

			a.logger.Info("service discovered", "device_id", d.ID, "host", entry.HostName)
			a.reg.HandleDeviceAdded(d)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (a *Adapter) stopBrowseLocked() {
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
}

// deviceFromEntry maps a service advertisement to a device. The
// endpoint is exposed as read-only properties; interacting with the
// device beyond discovery is up to protocol-specific adapters.
func deviceFromEntry(entry *zeroconf.ServiceEntry) *thing.Device {
	// An instance name that sanitises to nothing (all-unicode names do)
	// gets a generated identifier instead of colliding on "mdns-".
	instance := sanitiseInstance(entry.Instance)
	if instance == "" {
		instance = thing.GenerateID()
	}
	id := "mdns-" + instance

	title := entry.Instance
	if title == "" {
		title = entry.HostName
	}

	address := entry.HostName
	if len(entry.AddrIPv4) > 0 {
		address = entry.AddrIPv4[0].String()
	}

	props := map[string]*thing.Property{
		"address": {
			Name:     "address",
			Type:     thing.PropertyTypeString,
			ReadOnly: true,
			Value:    address,
		},
		"port": {
			Name:     "port",
			Type:     thing.PropertyTypeInteger,
			ReadOnly: true,
			Value:    entry.Port,
		},
	}

	// TXT records ("key=value") seed additional read-only properties.
	// Malformed or colliding keys are skipped.
	for _, txt := range entry.Text {
		key, value, ok := strings.Cut(txt, "=")
		key = sanitiseInstance(key)
		if !ok || key == "" {
			continue
		}
		if _, exists := props[key]; exists {
			continue
		}
		props[key] = &thing.Property{
			Name:     key,
			Type:     thing.PropertyTypeString,
			ReadOnly: true,
			Value:    value,
		}
	}

	return &thing.Device{
		ID:         id,
		Title:      title,
		AdapterID:  AdapterID,
		Status:     thing.StatusReady,
		Properties: props,
	}
}

// sanitiseInstance folds an advertised instance name into the
// registry's ID alphabet.
func sanitiseInstance(instance string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(instance) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
