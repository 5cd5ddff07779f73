package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/emberhome/ember-core/internal/adapter"
	"github.com/emberhome/ember-core/internal/infrastructure/mqtt"
	"github.com/emberhome/ember-core/internal/thing"
)

// AdapterID is the stable identifier the MQTT bridge registers under.
const AdapterID = "mqtt"

// setQoS is the QoS level for outbound property write commands.
// At-least-once: a lost set command is a failed user action.
const setQoS = 1

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

// Client is the broker surface the bridge needs. *mqtt.Client satisfies
// it; tests substitute an in-memory fake.
type Client interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// announcement is the wire format a device publishes on its announce
// topic to join the gateway.
type announcement struct {
	ID         string                  `json:"id"`
	Title      string                  `json:"title"`
	Properties map[string]announceProp `json:"properties"`
}

type announceProp struct {
	Type     string `json:"type"`
	Unit     string `json:"unit,omitempty"`
	ReadOnly bool   `json:"read_only,omitempty"`
	Value    any    `json:"value"`
}

// Adapter bridges devices speaking the gateway's MQTT convention into
// the registry.
//
// Topic scheme, relative to the configured prefix:
//
//	<prefix>/announce/<id>  device -> gateway  join (gated to pairing window)
//	<prefix>/state/<id>     device -> gateway  property values (JSON object)
//	<prefix>/set/<id>       gateway -> device  property write commands
//	<prefix>/leave/<id>     device -> gateway  departure
//
// State and leave traffic is accepted at any time so devices paired in a
// previous run keep working after a restart; the registry drops messages
// for devices it does not know.
type Adapter struct {
	client Client
	reg    adapter.Registry
	prefix string
	logger Logger

	mu          sync.Mutex
	pairingOpen bool
	unloaded    bool
}

// NewFactory returns a factory building the MQTT bridge over an
// established broker connection.
func NewFactory(client Client, prefix string) adapter.Factory {
	return func(reg adapter.Registry) (adapter.Adapter, error) {
		return New(client, prefix, reg)
	}
}

// New builds the bridge and subscribes to the device topics.
func New(client Client, prefix string, reg adapter.Registry) (*Adapter, error) {
	if prefix == "" {
		prefix = mqtt.TopicPrefix
	}

	a := &Adapter{
		client: client,
		reg:    reg,
		prefix: prefix,
		logger: noopLogger{},
	}

	subscriptions := map[string]mqtt.MessageHandler{
		prefix + "/announce/+": a.handleAnnounce,
		prefix + "/state/+":    a.handleState,
		prefix + "/leave/+":    a.handleLeave,
	}
	for topic, handler := range subscriptions {
		if err := client.Subscribe(topic, setQoS, handler); err != nil {
			return nil, fmt.Errorf("subscribing to %s: %w", topic, err)
		}
	}

	return a, nil
}

// SetLogger sets the logger for the bridge.
func (a *Adapter) SetLogger(logger Logger) {
	a.logger = logger
}

// ID returns the adapter identifier.
func (a *Adapter) ID() string { return AdapterID }

// Name returns the human-readable adapter name.
func (a *Adapter) Name() string { return "MQTT Devices" }

// StartPairing opens the announce gate. Announcements arriving while
// the gate is closed are ignored, so devices cannot self-register
// outside a user-initiated pairing session.
func (a *Adapter) StartPairing(_ context.Context, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.unloaded {
		return ErrUnloaded
	}
	a.pairingOpen = true
	return nil
}

// CancelPairing closes the announce gate. No-op when already closed.
func (a *Adapter) CancelPairing() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pairingOpen = false
}

// StartUnpairing is a no-op: leave signals are honoured at any time, so
// an armed removal session simply waits for the next one.
func (a *Adapter) StartUnpairing(_ context.Context, _ time.Duration) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.unloaded {
		return ErrUnloaded
	}
	return nil
}

// CancelUnpairing is a no-op.
func (a *Adapter) CancelUnpairing() {}

// SetProperty publishes a write command on the device's set topic.
func (a *Adapter) SetProperty(_ context.Context, deviceID, name string, value any) error {
	payload, err := json.Marshal(map[string]any{name: value})
	if err != nil {
		return fmt.Errorf("marshalling set command: %w", err)
	}

	topic := fmt.Sprintf("%s/set/%s", a.prefix, deviceID)
	if err := a.client.Publish(topic, payload, setQoS, false); err != nil {
		return fmt.Errorf("publishing set command: %w", err)
	}

	a.logger.Debug("set command published", "device_id", deviceID, "property", name)
	return nil
}

// Unload unsubscribes from the device topics.
func (a *Adapter) Unload() error {
	a.mu.Lock()
	a.unloaded = true
	a.pairingOpen = false
	a.mu.Unlock()

	var firstErr error
	for _, topic := range []string{
		a.prefix + "/announce/+",
		a.prefix + "/state/+",
		a.prefix + "/leave/+",
	} {
		if err := a.client.Unsubscribe(topic); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unsubscribing from %s: %w", topic, err)
		}
	}
	return firstErr
}

// handleAnnounce admits a device during an open pairing window.
func (a *Adapter) handleAnnounce(topic string, payload []byte) error {
	a.mu.Lock()
	open := a.pairingOpen && !a.unloaded
	if open {
		// One announcement consumes the window.
		a.pairingOpen = false
	}
	a.mu.Unlock()

	if !open {
		a.logger.Debug("announcement outside pairing window ignored", "topic", topic)
		return nil
	}

	var ann announcement
	if err := json.Unmarshal(payload, &ann); err != nil {
		a.reopenGate()
		return fmt.Errorf("parsing announcement: %w", err)
	}
	if ann.ID == "" {
		ann.ID = deviceIDFromTopic(topic)
	}

	d := &thing.Device{
		ID:         ann.ID,
		Title:      ann.Title,
		AdapterID:  AdapterID,
		Status:     thing.StatusReady,
		Properties: make(map[string]*thing.Property, len(ann.Properties)),
	}
	for name, p := range ann.Properties {
		d.Properties[name] = &thing.Property{
			Name:     name,
			Type:     thing.PropertyType(p.Type),
			Unit:     p.Unit,
			ReadOnly: p.ReadOnly,
			Value:    p.Value,
		}
	}

	if err := thing.ValidateDevice(d); err != nil {
		a.reopenGate()
		return fmt.Errorf("rejecting announcement for %q: %w", ann.ID, err)
	}

	a.logger.Info("device announced", "device_id", d.ID, "title", d.Title)
	a.reg.HandleDeviceAdded(d)
	return nil
}

// handleState forwards property values to the registry. The registry
// drops values for unknown devices or undeclared properties.
func (a *Adapter) handleState(topic string, payload []byte) error {
	deviceID := deviceIDFromTopic(topic)

	var values map[string]any
	if err := json.Unmarshal(payload, &values); err != nil {
		return fmt.Errorf("parsing state for %q: %w", deviceID, err)
	}

	for name, value := range values {
		a.reg.HandlePropertyChanged(deviceID, name, value)
	}
	return nil
}

// handleLeave removes a departed device. Honoured at any time, not just
// during unpairing sessions; a device that leaves the network is gone
// either way.
func (a *Adapter) handleLeave(topic string, _ []byte) error {
	deviceID := deviceIDFromTopic(topic)
	a.logger.Info("device leave received", "device_id", deviceID)
	a.reg.HandleDeviceRemoved(&thing.Device{ID: deviceID, AdapterID: AdapterID})
	return nil
}

// reopenGate restores the pairing window after a malformed announcement
// so a bad packet does not silently consume the user's session.
func (a *Adapter) reopenGate() {
	a.mu.Lock()
	if !a.unloaded {
		a.pairingOpen = true
	}
	a.mu.Unlock()
}

// deviceIDFromTopic extracts the trailing segment of a device topic.
func deviceIDFromTopic(topic string) string {
	idx := strings.LastIndex(topic, "/")
	if idx < 0 {
		return topic
	}
	return topic[idx+1:]
}
