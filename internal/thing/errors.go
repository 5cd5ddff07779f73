package thing

import "errors"

// Domain errors for the thing package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, thing.ErrPropertyNotFound) {
//	    // handle not found case
//	}
var (
	// ErrInvalidDevice is returned when device validation fails.
	ErrInvalidDevice = errors.New("thing: invalid device")

	// ErrInvalidID is returned when a device ID is empty or malformed.
	ErrInvalidID = errors.New("thing: invalid id")

	// ErrInvalidTitle is returned when a title is empty or too long.
	ErrInvalidTitle = errors.New("thing: invalid title")

	// ErrInvalidStatus is returned when a lifecycle status is not recognised.
	ErrInvalidStatus = errors.New("thing: invalid status")

	// ErrInvalidPropertyType is returned when a property type is not recognised.
	ErrInvalidPropertyType = errors.New("thing: invalid property type")

	// ErrInvalidPropertyValue is returned when a value disagrees with the
	// property's declared type.
	ErrInvalidPropertyValue = errors.New("thing: invalid property value")

	// ErrPropertyNotFound is returned when a property name does not exist
	// on a device.
	ErrPropertyNotFound = errors.New("thing: property not found")

	// ErrPropertyReadOnly is returned when a write targets a read-only property.
	ErrPropertyReadOnly = errors.New("thing: property is read-only")
)
