package cec

import "github.com/hdmicec/gocec/internal/adapterlink"

// Error kinds surfaced by the library (spec.md 7). Callers compare with
// errors.Cause(err) == cec.ErrX, the same pattern the teacher uses for
// errors.Cause(err) == io.EOF in its serial codec. These alias the
// sentinel values owned by internal/adapterlink so there is exactly one
// canonical error value per kind no matter which layer returns it.
var (
	// ErrPortUnavailable is returned from Open when the serial port could
	// not be opened.
	ErrPortUnavailable = adapterlink.ErrPortUnavailable

	// ErrNoAdapterResponse is returned from Open and Ping when the
	// firmware does not answer a PING within the configured timeout.
	ErrNoAdapterResponse = adapterlink.ErrNoAdapterResponse

	// ErrRejected is returned when the adapter answers a command with
	// COMMAND_REJECTED.
	ErrRejected = adapterlink.ErrRejected

	// ErrNotAcked is returned from Transmit when the adapter answers the
	// transmit with TRANSMIT_FAILED, or does not answer within the ack
	// timeout.
	ErrNotAcked = adapterlink.ErrNotAcked

	// ErrTimeout is an internal condition: a read operation expired. It
	// is not normally observed by callers; it causes the owning loop to
	// retry at its next iteration.
	ErrTimeout = adapterlink.ErrTimeout

	// ErrClosed is returned by any I/O call made after Close.
	ErrClosed = adapterlink.ErrClosed

	// ErrMalformed marks a frame that was too short or carried a bad
	// escape sequence; the frame is logged at WARNING and dropped.
	ErrMalformed = adapterlink.ErrMalformed
)
