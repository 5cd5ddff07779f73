package syncclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"
)

// defaultTimeout bounds a single HTTP round trip when the caller does
// not supply its own http.Client.
const defaultTimeout = 10 * time.Second

// State describes how much the client trusts a property value.
type State int

const (
	// StateUnknown means no authoritative value has been seen yet.
	StateUnknown State = iota
	// StateConfirmed means the value came from the gateway.
	StateConfirmed
	// StateInFlight means a write was dispatched and the value shown is
	// the optimistic one, not yet proven by the gateway.
	StateInFlight
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateConfirmed:
		return "confirmed"
	case StateInFlight:
		return "in-flight"
	default:
		return "unknown"
	}
}

// View is a snapshot of one property as the consumer should render it.
type View struct {
	Name  string
	Value any
	State State
}

// Logger is the minimal logging interface the client needs.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Config holds what the client needs to reach one thing's properties.
type Config struct {
	// BaseURL is the API root, e.g. "http://gateway:8080/api/v1".
	BaseURL string
	// Token is the bearer token attached to every request.
	Token string
	// ThingID identifies the thing this client tracks.
	ThingID string
	// HTTPClient overrides the default client. Optional.
	HTTPClient *http.Client
}

// entry is the internal per-property record.
type entry struct {
	state     State
	value     any // value the consumer should render
	confirmed any // last gateway-proven value, for reverts
}

// Client reconciles a local property view with the gateway.
//
// All methods are safe for concurrent use.
type Client struct {
	baseURL string
	token   string
	thingID string
	http    *http.Client
	logger  Logger

	mu    sync.Mutex
	props map[string]*entry
}

// New creates a client for one thing. No request is made until
// Refresh, Set or ApplyNotification is called.
func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: cfg.BaseURL,
		token:   cfg.Token,
		thingID: cfg.ThingID,
		http:    hc,
		logger:  noopLogger{},
		props:   make(map[string]*entry),
	}
}

// SetLogger attaches a logger. Call before first use.
func (c *Client) SetLogger(l Logger) {
	if l != nil {
		c.logger = l
	}
}

// Value returns the current view of a property. A property the client
// has never seen renders as unknown.
func (c *Client) Value(name string) View {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.props[name]
	if !ok {
		return View{Name: name, State: StateUnknown}
	}
	return View{Name: name, Value: e.value, State: e.state}
}

// Views returns a snapshot of every tracked property.
func (c *Client) Views() []View {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]View, 0, len(c.props))
	for name, e := range c.props {
		out = append(out, View{Name: name, Value: e.value, State: e.state})
	}
	return out
}

// Refresh reads all properties of the thing and confirms them locally.
//
// A failed read is non-fatal: the local view is left untouched and the
// error is returned for logging. The next refresh heals it.
func (c *Client) Refresh(ctx context.Context) error {
	url := fmt.Sprintf("%s/things/%s/properties", c.baseURL, c.thingID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building refresh request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reading properties: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Read-only body

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reading properties: unexpected status %d", resp.StatusCode)
	}

	var values map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&values); err != nil {
		return fmt.Errorf("decoding properties: %w", err)
	}

	c.mu.Lock()
	for name, v := range values {
		c.confirmLocked(name, v)
	}
	c.mu.Unlock()

	c.logger.Debug("properties refreshed", "thing_id", c.thingID, "count", len(values))
	return nil
}

// Set dispatches a property write.
//
// The property flips to in-flight with the optimistic value before the
// request leaves. A non-2xx response reverts to the last confirmed
// value and returns ErrWriteRejected; a transport failure reverts the
// same way. On success the property stays in-flight until a refresh or
// notification proves the value.
func (c *Client) Set(ctx context.Context, name string, value any) error {
	c.mu.Lock()
	e, ok := c.props[name]
	if !ok {
		e = &entry{state: StateUnknown}
		c.props[name] = e
	}
	prevState, prevValue := e.state, e.confirmed
	e.state = StateInFlight
	e.value = value
	c.mu.Unlock()

	err := c.put(ctx, name, value)
	if err != nil {
		c.mu.Lock()
		// Revert to the last gateway-proven value. A property that was
		// never confirmed goes back to unknown.
		e.value = prevValue
		if prevState == StateUnknown {
			e.state = StateUnknown
		} else {
			e.state = StateConfirmed
		}
		c.mu.Unlock()

		c.logger.Warn("property write failed, reverted",
			"thing_id", c.thingID, "property", name, "error", err)
		return err
	}

	c.logger.Debug("property write dispatched",
		"thing_id", c.thingID, "property", name)
	return nil
}

// put performs the single-key PUT the gateway's property contract uses:
//
//	PUT /things/{id}/properties/{name}
//	{"<name>": <value>}
func (c *Client) put(ctx context.Context, name string, value any) error {
	body, err := json.Marshal(map[string]any{name: value})
	if err != nil {
		return fmt.Errorf("encoding property value: %w", err)
	}

	url := fmt.Sprintf("%s/things/%s/properties/%s", c.baseURL, c.thingID, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building write request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("writing property: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // Response body unused

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: status %d", ErrWriteRejected, resp.StatusCode)
	}
	return nil
}

// ApplyNotification applies a pushed authoritative value, typically
// from the gateway's WebSocket event stream. It resolves any in-flight
// state for that property.
func (c *Client) ApplyNotification(name string, value any) {
	c.mu.Lock()
	c.confirmLocked(name, value)
	c.mu.Unlock()

	c.logger.Debug("notification applied",
		"thing_id", c.thingID, "property", name)
}

// confirmLocked records a gateway-proven value. Caller holds c.mu.
func (c *Client) confirmLocked(name string, value any) {
	e, ok := c.props[name]
	if !ok {
		e = &entry{}
		c.props[name] = e
	}
	e.state = StateConfirmed
	e.value = value
	e.confirmed = value
}
