package mqttbridge

import "errors"

// ErrUnloaded is returned when an operation reaches a bridge that has
// been unloaded.
var ErrUnloaded = errors.New("mqttbridge: adapter unloaded")
