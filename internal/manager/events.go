package manager

import (
	"sync"
	"time"

	"github.com/emberhome/ember-core/internal/thing"
)

// EventType identifies a lifecycle event category.
type EventType string

// Event types published on the manager's event bus.
const (
	// EventAdapterAdded fires when an adapter registers.
	EventAdapterAdded EventType = "adapter-added"

	// EventThingAdded fires when a device completes pairing and becomes
	// visible to consumers. Carries the fully-formed Thing.
	EventThingAdded EventType = "thing-added"

	// EventThingRemoved fires when a device is unpaired. Carries the
	// Thing as it was at removal.
	EventThingRemoved EventType = "thing-removed"

	// EventPropertyChanged fires when an adapter reports an authoritative
	// property value.
	EventPropertyChanged EventType = "property-changed"
)

// Event is a lifecycle notification. Thing is set for thing-added and
// thing-removed; ThingID, Property and Value are set for
// property-changed; AdapterID is set for adapter-added.
type Event struct {
	Type      EventType    `json:"type"`
	AdapterID string       `json:"adapter_id,omitempty"`
	Thing     *thing.Thing `json:"thing,omitempty"`
	ThingID   string       `json:"thing_id,omitempty"`
	Property  string       `json:"property,omitempty"`
	Value     any          `json:"value,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// subscriberBuffer is the per-subscriber channel depth. A subscriber
// that falls this far behind starts losing events rather than blocking
// publishers.
const subscriberBuffer = 64

// eventBus fans lifecycle events out to subscribers. Publishing never
// blocks: a full subscriber channel drops the event for that subscriber
// only.
type eventBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]chan Event
	closed bool
}

func newEventBus() *eventBus {
	return &eventBus{
		subs: make(map[int]chan Event),
	}
}

// subscribe registers a new subscriber and returns its ID and channel.
// The channel is closed on unsubscribe or bus shutdown.
func (b *eventBus) subscribe() (int, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++

	ch := make(chan Event, subscriberBuffer)
	if b.closed {
		close(ch)
		return id, ch
	}

	b.subs[id] = ch
	return id, ch
}

// unsubscribe removes a subscriber and closes its channel.
// Unknown IDs are a no-op.
func (b *eventBus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

// publish delivers an event to every subscriber without blocking.
func (b *eventBus) publish(ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is not keeping up; drop rather than stall
			// the registry.
		}
	}
}

// shutdown closes all subscriber channels and rejects new subscriptions.
func (b *eventBus) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
