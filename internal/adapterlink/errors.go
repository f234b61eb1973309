package adapterlink

import "github.com/juju/errors"

// Error kinds from spec.md 7, owned here and re-exported by the root cec
// package so callers never need to import this internal package directly.
var (
	ErrPortUnavailable   = errors.New("adapterlink: serial port unavailable")
	ErrNoAdapterResponse = errors.New("adapterlink: adapter did not respond")
	ErrRejected          = errors.New("adapterlink: adapter rejected command")
	ErrNotAcked          = errors.New("adapterlink: transmit not acked")
	ErrTimeout           = errors.New("adapterlink: operation timed out")
	ErrClosed            = errors.New("adapterlink: link is closed")
	ErrMalformed         = errors.New("adapterlink: malformed frame")
)
