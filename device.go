package cec

import (
	"fmt"

	"github.com/juju/errors"

	"github.com/hdmicec/gocec/internal/adapterlink"
	"github.com/hdmicec/gocec/internal/eventqueue"
	"github.com/hdmicec/gocec/internal/responder"
)

// Device is the façade of spec.md 4.E: it owns the adapter link, the
// responder, and the three host-facing event queues, and binds them into
// one object with an open/close lifecycle. It is grounded on
// mos/dev/dev_conn.go's Client/DevConn split — one type holding
// configuration plus the connection, forwarding calls down to the layer
// that actually does the work — and on LibCEC.h/LibCEC.cpp
// (original_source) for the public surface this type exposes.
type Device struct {
	link *adapterlink.Link
	resp *responder.Responder

	logQueue *eventqueue.Queue[eventqueue.LogMessage]
	keyQueue *eventqueue.Queue[eventqueue.KeyPress]
	cmdQueue *eventqueue.Queue[eventqueue.Command]
}

// Open opens the serial port at path, starts the reader goroutine, probes
// the adapter with a liveness ping, and starts the CEC responder
// goroutine. It is the façade's open() from spec.md 4.E, forwarding to
// the link and then the responder.
func Open(path string, opts ...Option) (*Device, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(o)
	}
	if o.logCapacity < eventqueue.MinLogCapacity {
		o.logCapacity = eventqueue.MinLogCapacity
	}
	if o.keyCapacity < eventqueue.MinKeyCapacity {
		o.keyCapacity = eventqueue.MinKeyCapacity
	}
	if o.cmdCapacity < eventqueue.MinCommandCapacity {
		o.cmdCapacity = eventqueue.MinCommandCapacity
	}

	d := &Device{
		logQueue: eventqueue.New[eventqueue.LogMessage](o.logCapacity),
		keyQueue: eventqueue.New[eventqueue.KeyPress](o.keyCapacity),
		cmdQueue: eventqueue.New[eventqueue.Command](o.cmdCapacity),
	}

	link, err := adapterlink.Open(path, o.baud, o.openTimeout, o.openSerial)
	if err != nil {
		return nil, errors.Trace(err)
	}
	link.SetHostLog(d.pushLog)
	d.link = link

	d.resp = responder.New(link, d.keyQueue, d.cmdQueue, d.pushLog)
	d.resp.Run()

	return d, nil
}

func (d *Device) pushLog(level eventqueue.LogLevel, format string, args ...interface{}) {
	d.logQueue.Push(eventqueue.LogMessage{Level: level, Text: fmt.Sprintf(format, args...)})
}

// Close stops the responder, then the link, joining both before
// returning (spec.md 3, "both threads terminate on façade close").
func (d *Device) Close() error {
	if d.resp != nil {
		d.resp.Stop()
	}
	if d.link != nil {
		return errors.Trace(d.link.Close())
	}
	return nil
}

// Ping verifies the adapter is still responding.
func (d *Device) Ping() error {
	return errors.Trace(d.link.Ping())
}

// StartBootloader puts the adapter into firmware-flashing mode. The
// device is unusable for CEC traffic afterward.
func (d *Device) StartBootloader() error {
	return errors.Trace(d.link.StartBootloader())
}

// Transmit sends a CEC message, filling an unset source nibble with the
// local logical address.
func (d *Device) Transmit(req TransmitRequest) error {
	return errors.Trace(d.resp.Transmit(req))
}

// SetLogicalAddress updates the local logical address and reprograms the
// adapter's ack-mask to match (spec.md 4.D).
func (d *Device) SetLogicalAddress(addr LogicalAddress) error {
	return errors.Trace(d.resp.SetLogicalAddress(addr, d.link.SetAckMask))
}

// PowerOnDevices sends IMAGE_VIEW_ON to addr (default TV).
func (d *Device) PowerOnDevices(addr LogicalAddress) error {
	return errors.Trace(d.resp.PowerOnDevices(addr))
}

// StandbyDevices sends STANDBY to addr (default broadcast).
func (d *Device) StandbyDevices(addr LogicalAddress) error {
	return errors.Trace(d.resp.StandbyDevices(addr))
}

// SetActiveView broadcasts ACTIVE_SOURCE with the local physical address.
func (d *Device) SetActiveView() error {
	return errors.Trace(d.resp.SetActiveView())
}

// SetInactiveView broadcasts INACTIVE_SOURCE with the local physical
// address.
func (d *Device) SetInactiveView() error {
	return errors.Trace(d.resp.SetInactiveView())
}

// CheckKeypressTimeout synthesizes a key-release event for a button that
// has been held longer than the debounce window. Callers that poll
// infrequently should invoke this periodically in addition to the
// responder's own per-loop check.
func (d *Device) CheckKeypressTimeout() {
	d.resp.CheckKeypressTimeout()
}

// PollLog pops the oldest pending LogMessage, if any.
func (d *Device) PollLog() (eventqueue.LogMessage, bool) {
	return d.logQueue.Pop()
}

// PollKey pops the oldest pending KeyPress, if any.
func (d *Device) PollKey() (eventqueue.KeyPress, bool) {
	return d.keyQueue.Pop()
}

// PollCommand pops the oldest pending Command, if any.
func (d *Device) PollCommand() (eventqueue.Command, bool) {
	return d.cmdQueue.Pop()
}

// IsOpen reports whether the underlying link has not yet been closed.
func (d *Device) IsOpen() bool {
	return d.link != nil && d.link.IsOpen()
}
