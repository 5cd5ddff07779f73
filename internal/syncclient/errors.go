package syncclient

import "errors"

// ErrWriteRejected indicates the gateway refused a property write
// (non-2xx response). The local value has been reverted.
var ErrWriteRejected = errors.New("syncclient: property write rejected")
