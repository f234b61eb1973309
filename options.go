package cec

import (
	"time"

	"github.com/hdmicec/gocec/internal/adapterlink"
	"github.com/hdmicec/gocec/internal/eventqueue"
)

// options collects the Open parameters, following the functional-options
// idiom the teacher uses for its own multi-parameter constructors (e.g.
// SerialCodecOptions passed as a struct, here split into discrete
// With-functions so zero or more can be supplied).
type options struct {
	baud        uint
	openTimeout time.Duration
	logCapacity int
	keyCapacity int
	cmdCapacity int
	openSerial  adapterlink.OpenFunc
}

func defaultOptions() *options {
	return &options{
		baud:        38400,
		openTimeout: adapterlink.DefaultOpenTimeout,
		logCapacity: eventqueue.MinLogCapacity,
		keyCapacity: eventqueue.MinKeyCapacity,
		cmdCapacity: eventqueue.MinCommandCapacity,
		openSerial:  adapterlink.OpenSerialPort,
	}
}

// Option configures Open.
type Option func(*options)

// WithBaudRate overrides the default 38400 baud.
func WithBaudRate(baud uint) Option {
	return func(o *options) { o.baud = baud }
}

// WithOpenTimeout overrides how long Open waits for the adapter to answer
// its liveness ping.
func WithOpenTimeout(timeout time.Duration) Option {
	return func(o *options) { o.openTimeout = timeout }
}

// WithQueueCapacities overrides the event queue capacities; values below
// the spec.md 4.A minimums are raised to those minimums at Open time.
func WithQueueCapacities(log, key, cmd int) Option {
	return func(o *options) {
		o.logCapacity = log
		o.keyCapacity = key
		o.cmdCapacity = cmd
	}
}

// withOpenFunc is unexported: it exists so tests can substitute a fake
// serial transport without exposing adapterlink.OpenFunc in the public
// API.
func withOpenFunc(fn adapterlink.OpenFunc) Option {
	return func(o *options) { o.openSerial = fn }
}
