// Package virtual implements an in-memory device adapter for
// development and testing.
//
// Devices are declared in configuration. Opening a pairing window hands
// the next not-yet-paired declared device over after a short simulated
// identification delay; unpairing removes the most recently
// paired device. Property writes apply immediately to local state and
// echo back through the registry, exercising the same fire-and-forget
// write path real drivers use.
package virtual
