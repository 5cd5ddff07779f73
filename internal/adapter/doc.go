// Package adapter defines the contract between the device registry and
// protocol drivers.
//
// # Architecture
//
//	┌────────────┐   Registry callbacks    ┌─────────────┐
//	│  manager   │ ◄────────────────────── │   adapter   │
//	│ (registry) │ ──────────────────────► │  (driver)   │
//	└────────────┘   Adapter operations    └─────────────┘
//
// The dependency points both ways but through interfaces only: the
// manager drives adapters through Adapter (pairing windows, property
// writes, unload) and adapters notify the manager through Registry
// (device added/removed, property changed). Neither side imports the
// other's implementation.
//
// Adapters are constructed by statically registered Factory functions
// selected via configuration. A factory that fails to initialise its
// driver is logged and skipped; the rest of the system is unaffected.
package adapter
