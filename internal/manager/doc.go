// Package manager is the heart of the gateway: the authoritative
// registry of adapters and devices, the pairing coordinator and the
// lifecycle event bus.
//
// # Architecture
//
//	consumers (API, WebSocket, sync client)
//	      │  Things / SetProperty / AddNewThing
//	      ▼
//	┌──────────────────────────────────────────┐
//	│                 Manager                  │
//	│  device cache ─ session ─ event bus      │
//	│        │                    │            │
//	│     Store (SQLite)       Subscribe()     │
//	└──────────────────────────────────────────┘
//	      ▲  Registry callbacks
//	      │
//	  adapters (virtual, mqtt, mdns)
//
// # Pairing sessions
//
// At most one pairing or unpairing session runs at a time, gateway-wide.
// AddNewThing and RemoveSomeThing return a one-shot result channel; a
// concurrent request is rejected with ErrOperationInProgress rather
// than queued. The first device to complete identification wins the
// session and every other adapter's window is cancelled.
//
// # Ordering guarantees
//
// A device is cached, persisted and announced as thing-added before its
// pairing session resolves. A removal is applied and thing-removed
// published before HandleDeviceRemoved returns. Consumers can therefore
// act on a session result without racing the registry.
//
// # Persistence
//
// Only fully registered devices are persisted, as a JSON properties
// document in the things table. The in-memory cache is authoritative at
// runtime; the store exists so paired devices survive restarts.
package manager
