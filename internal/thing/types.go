package thing

import "time"

// Device represents a physical or virtual device owned by exactly one
// adapter for its entire lifetime. Devices enter the registry through
// pairing and leave it through unpairing; consumers only ever see devices
// whose identification has completed.
type Device struct {
	// Identity
	ID    string `json:"id"`
	Title string `json:"title"`

	// AdapterID is a non-owning back-reference to the adapter that
	// discovered this device. Property writes are dispatched through it.
	AdapterID string `json:"adapter_id"`

	// Lifecycle
	Status Status `json:"status"`

	// Properties keyed by property name.
	Properties map[string]*Property `json:"properties"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Property represents a single named value on a device.
// The last-known value is mutated only by the owning adapter's change
// notifications or by a write proxied through the registry.
type Property struct {
	Name     string       `json:"name"`
	Type     PropertyType `json:"type"`
	Unit     string       `json:"unit,omitempty"`
	ReadOnly bool         `json:"read_only"`
	Value    any          `json:"value"`
}

// Thing is the uniform consumer-facing view of a device. It is always
// fully formed - events and API responses never carry a partial Thing.
type Thing struct {
	ID         string              `json:"id"`
	Title      string              `json:"title"`
	AdapterID  string              `json:"adapter_id"`
	Status     Status              `json:"status"`
	Properties map[string]Property `json:"properties"`
}

// DeepCopy creates a complete independent copy of the Device.
// Property structs are cloned so modifications to the copy do not
// affect the original. This is essential for cache isolation.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d // Shallow copy of value fields

	if d.Properties != nil {
		cpy.Properties = make(map[string]*Property, len(d.Properties))
		for name, p := range d.Properties {
			cpy.Properties[name] = p.DeepCopy()
		}
	}

	return &cpy
}

// DeepCopy creates an independent copy of the Property.
// Primitive values (bool, int, float64, string) copy by value; nested
// maps and slices are recursively cloned.
func (p *Property) DeepCopy() *Property {
	if p == nil {
		return nil
	}

	cpy := *p
	cpy.Value = deepCopyValue(p.Value)
	return &cpy
}

// AsThing builds the consumer-facing view of the device.
// The returned Thing is fully independent of the device.
func (d *Device) AsThing() *Thing {
	if d == nil {
		return nil
	}

	t := &Thing{
		ID:         d.ID,
		Title:      d.Title,
		AdapterID:  d.AdapterID,
		Status:     d.Status,
		Properties: make(map[string]Property, len(d.Properties)),
	}

	for name, p := range d.Properties {
		cpy := p.DeepCopy()
		t.Properties[name] = *cpy
	}

	return t
}

// Property returns the named property and whether it exists.
func (d *Device) Property(name string) (*Property, bool) {
	if d == nil || d.Properties == nil {
		return nil, false
	}
	p, ok := d.Properties[name]
	return p, ok
}

// deepCopyValue recursively copies a value, handling nested maps and slices.
func deepCopyValue(v any) any {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case map[string]any:
		cpy := make(map[string]any, len(val))
		for k, elem := range val {
			cpy[k] = deepCopyValue(elem)
		}
		return cpy
	case []any:
		cpy := make([]any, len(val))
		for i, elem := range val {
			cpy[i] = deepCopyValue(elem)
		}
		return cpy
	default:
		// Primitives (string, bool, int, float64, etc.) are safe to copy by value
		return v
	}
}

// Status represents where a device sits in its pairing lifecycle.
type Status string

// Status constants.
const (
	// StatusDiscovered marks a device an adapter has seen but which has
	// not yet been claimed by a pairing session.
	StatusDiscovered Status = "discovered"

	// StatusAdding marks a device mid-identification during pairing.
	StatusAdding Status = "adding"

	// StatusReady marks a registered device visible to consumers.
	StatusReady Status = "ready"

	// StatusRemoved marks a device that has been unpaired.
	StatusRemoved Status = "removed"
)

// AllStatuses returns all valid lifecycle status values.
func AllStatuses() []Status {
	return []Status{
		StatusDiscovered, StatusAdding, StatusReady, StatusRemoved,
	}
}

// PropertyType represents the declared value type of a property.
type PropertyType string

// PropertyType constants.
const (
	PropertyTypeBoolean PropertyType = "boolean"
	PropertyTypeInteger PropertyType = "integer"
	PropertyTypeNumber  PropertyType = "number"
	PropertyTypeString  PropertyType = "string"
)

// AllPropertyTypes returns all valid property type values.
func AllPropertyTypes() []PropertyType {
	return []PropertyType{
		PropertyTypeBoolean, PropertyTypeInteger, PropertyTypeNumber, PropertyTypeString,
	}
}

// NumericValue converts a property value to float64 for telemetry.
// Returns false for non-numeric values (booleans, strings, nil).
func NumericValue(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	default:
		return 0, false
	}
}
