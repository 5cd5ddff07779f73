// Package thing defines the core device and property model for Ember Core.
//
// A Device is owned by exactly one adapter for its entire lifetime and
// carries a map of typed Properties. A Thing is the uniform, fully-formed
// view of a device handed to consumers - API responses and lifecycle
// events never expose partial state.
//
// # Lifecycle
//
//	discovered ──► adding ──► ready ──► removed
//
// Adapters report devices as discovered; a pairing session promotes them
// through adding to ready, at which point they become visible in the
// registry. Unpairing marks them removed and drops them.
//
// # Value types
//
// Properties declare one of four value types: boolean, integer, number,
// string. ValidateValue enforces type agreement on every write; JSON's
// float64 decoding of integers is tolerated for integer properties.
//
// # Isolation
//
// Devices handed across package boundaries are deep-copied. Callers can
// never mutate registry state through a returned Device or Thing.
package thing
