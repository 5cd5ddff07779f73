// Package adapters assembles the device drivers declared in
// configuration and registers them with the manager.
//
// Each driver lives in its own subpackage (virtual, mqttbridge, mdns)
// behind the adapter.Factory contract. Load builds the enabled ones,
// skipping any whose driver fails to initialise: a missing radio or an
// unreachable broker degrades the gateway, it does not stop it.
package adapters
