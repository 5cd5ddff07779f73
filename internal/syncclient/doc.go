// Package syncclient reconciles a consumer's cached view of a thing's
// properties with the gateway's authoritative values.
//
// A consumer (widget, automation rule, dashboard tile) never trusts its
// own copy of a property: the gateway is authoritative, and the wire is
// asynchronous. The client models that honestly with a three-state view
// per property:
//
//	unknown    no authoritative value seen yet; render neutral
//	confirmed  last value the gateway reported
//	in-flight  a write was dispatched; the shown value is optimistic
//
// Writes flip the property to in-flight immediately and PUT the value
// with bearer-token auth. A non-2xx response reverts to the last
// confirmed value and returns ErrWriteRejected. A 2xx response keeps
// the property in-flight: the response body does not prove the device
// applied the write, only a later read or push notification does.
//
// Read failures are non-fatal. The value is left as-is and the next
// poll heals it; there is no retry layer inside the client.
//
// Poller drives periodic reconciliation through an x/time rate limiter,
// so a wall of widgets cannot stampede the gateway:
//
//	c := syncclient.New(cfg)
//	p := syncclient.NewPoller(c, 5*time.Second)
//	go p.Run(ctx)
//
// Push notifications (for example from the gateway's WebSocket stream)
// are applied with ApplyNotification and count as authoritative.
package syncclient
