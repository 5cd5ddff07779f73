package thing

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxTitleLength = 100
	maxIDLength    = 128
	idPattern      = `^[a-zA-Z0-9][a-zA-Z0-9._:-]*$`

	// maxProperties bounds the property map to prevent abuse from
	// misbehaving adapters.
	maxProperties = 100
)

var idRegex = regexp.MustCompile(idPattern)

// Pre-computed validation sets for O(1) lookups instead of O(n) linear search.
var (
	validStatuses      map[Status]struct{}
	validPropertyTypes map[PropertyType]struct{}
)

func init() {
	// Build validation sets once at startup
	validStatuses = make(map[Status]struct{}, len(AllStatuses()))
	for _, s := range AllStatuses() {
		validStatuses[s] = struct{}{}
	}

	validPropertyTypes = make(map[PropertyType]struct{}, len(AllPropertyTypes()))
	for _, t := range AllPropertyTypes() {
		validPropertyTypes[t] = struct{}{}
	}
}

// ValidateDevice performs comprehensive validation on a device.
// Returns an error describing the first validation failure found.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateID(d.ID); err != nil {
		return err
	}

	if err := ValidateTitle(d.Title); err != nil {
		return err
	}

	if d.AdapterID == "" {
		return fmt.Errorf("%w: adapter id is required", ErrInvalidDevice)
	}

	if d.Status != "" {
		if err := ValidateStatus(d.Status); err != nil {
			return err
		}
	}

	if len(d.Properties) > maxProperties {
		return fmt.Errorf("%w: too many properties (max %d)", ErrInvalidDevice, maxProperties)
	}

	for name, p := range d.Properties {
		if p == nil {
			return fmt.Errorf("%w: property %q is nil", ErrInvalidDevice, name)
		}
		if p.Name != name {
			return fmt.Errorf("%w: property key %q does not match name %q", ErrInvalidDevice, name, p.Name)
		}
		if err := ValidateProperty(p); err != nil {
			return err
		}
	}

	return nil
}

// ValidateProperty checks a property's type declaration and that its
// last-known value (if set) agrees with it.
func ValidateProperty(p *Property) error {
	if p == nil {
		return ErrInvalidDevice
	}

	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: property name cannot be empty", ErrInvalidDevice)
	}

	if err := ValidatePropertyType(p.Type); err != nil {
		return err
	}

	if p.Value != nil {
		if err := ValidateValue(p.Type, p.Value); err != nil {
			return err
		}
	}

	return nil
}

// ValidateID checks if a device ID is valid.
// IDs are namespaced by adapters (e.g. "virtual-plug-7") and must be
// stable, URL-safe strings.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: id cannot be empty", ErrInvalidID)
	}
	if len(id) > maxIDLength {
		return fmt.Errorf("%w: id exceeds %d characters", ErrInvalidID, maxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("%w: id must be alphanumeric with ._:- separators", ErrInvalidID)
	}
	return nil
}

// ValidateTitle checks if a device title is valid.
func ValidateTitle(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrInvalidTitle)
	}
	if len(title) > maxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrInvalidTitle, maxTitleLength)
	}
	return nil
}

// ValidateStatus checks if a lifecycle status is valid.
// Uses O(1) map lookup for efficiency.
func ValidateStatus(status Status) error {
	if _, ok := validStatuses[status]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// ValidatePropertyType checks if a property type is valid.
// Uses O(1) map lookup for efficiency.
func ValidatePropertyType(t PropertyType) error {
	if _, ok := validPropertyTypes[t]; ok {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidPropertyType, t)
}

// ValidateValue checks that a value agrees with a property's declared type.
//
// JSON decoding delivers all numbers as float64, so integer properties
// accept float64 values with no fractional part alongside native int types.
func ValidateValue(t PropertyType, v any) error {
	if v == nil {
		return fmt.Errorf("%w: value cannot be nil", ErrInvalidPropertyValue)
	}

	switch t {
	case PropertyTypeBoolean:
		if _, ok := v.(bool); !ok {
			return fmt.Errorf("%w: %T is not a boolean", ErrInvalidPropertyValue, v)
		}
	case PropertyTypeInteger:
		switch val := v.(type) {
		case int, int32, int64:
			// ok
		case float64:
			if val != math.Trunc(val) {
				return fmt.Errorf("%w: %v is not an integer", ErrInvalidPropertyValue, val)
			}
		default:
			return fmt.Errorf("%w: %T is not an integer", ErrInvalidPropertyValue, v)
		}
	case PropertyTypeNumber:
		switch v.(type) {
		case int, int32, int64, float32, float64:
			// ok
		default:
			return fmt.Errorf("%w: %T is not a number", ErrInvalidPropertyValue, v)
		}
	case PropertyTypeString:
		if _, ok := v.(string); !ok {
			return fmt.Errorf("%w: %T is not a string", ErrInvalidPropertyValue, v)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidPropertyType, t)
	}

	return nil
}

// GenerateID creates a new UUID for devices that arrive without a
// stable identifier of their own.
func GenerateID() string {
	return uuid.New().String()
}
