// Package adapterlink owns the serial port, the reader goroutine, and the
// write+ack handshake with a USB-CEC adapter (spec.md 4.C). It is adapted
// from two places in the teacher: the comm-mutex-guarded write path and
// closeLock-gated concurrent Close of common/mgrpc/codec/serial.go, and
// the command/response transaction shape (send a tagged command, read
// back a typed response with a timeout) of
// mos/flash/esp/flasher/flasher_client.go's simpleCmd/recvResponse.
package adapterlink

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/hdmicec/gocec/internal/adaptercodec"
	"github.com/hdmicec/gocec/internal/eventqueue"
)

// HostLogFunc is how a Link reports recoverable conditions (queue
// overflow, malformed frames) to the host application, in addition to its
// own glog diagnostics. The façade wires this to its LogMessage queue.
type HostLogFunc func(level eventqueue.LogLevel, format string, args ...interface{})

// Port is the subset of github.com/cesanta/go-serial/serial.Serial this
// package needs; a serial.Serial value satisfies it structurally, and
// tests substitute a fake transport.
type Port interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(timeout time.Duration) error
}

const (
	// DefaultOpenTimeout is how long Open waits for a ping response
	// before giving up (spec.md 5).
	DefaultOpenTimeout = 10 * time.Second
	// AckTimeout bounds a single write+ack handshake.
	AckTimeout = 1 * time.Second
	// ReadPollTimeout is the per-call serial read timeout used by the
	// reader goroutine; it bounds how quickly Close is noticed.
	ReadPollTimeout = 50 * time.Millisecond
	// inboundFrameQueueSize is deliberately small: the adapter
	// rate-limits the host via its own ACK handshake, so a small
	// channel is sufficient backpressure (spec.md 5).
	inboundFrameQueueSize = 16
)

// ackResult is the typed request/response rendezvous spec.md's Design
// Notes calls for in place of a hand-rolled mutex+condvar: the reader
// goroutine sends exactly one ackResult per outstanding write.
type ackResult struct {
	tag commandTag
	err error
}

// Link owns the serial port and the inbound CEC frame queue (spec.md's
// "Adapter link exclusively owns the serial port and the inbound frame
// buffer").
type Link struct {
	port Port

	commMu sync.Mutex // serializes the single in-flight write+ack handshake

	stopCh chan struct{}
	wg     sync.WaitGroup

	inbound chan []byte   // reassembled CEC frames, host-bound
	ackCh   chan ackResult // result of the most recent outstanding write

	closeOnce sync.Once
	closeMu   sync.RWMutex
	closed    bool

	lastErrMu sync.Mutex
	lastErr   error

	hostLog HostLogFunc
}

// SetHostLog installs the callback used to surface recoverable
// conditions to the host's LogMessage queue.
func (l *Link) SetHostLog(fn HostLogFunc) {
	l.hostLog = fn
}

func (l *Link) logWarning(format string, args ...interface{}) {
	glog.Warningf(format, args...)
	if l.hostLog != nil {
		l.hostLog(eventqueue.LevelWarning, format, args...)
	}
}

// OpenFunc lets Open be parameterized by how the underlying port is
// created, so tests can substitute a fake transport without pulling in a
// real serial driver.
type OpenFunc func(path string, baud uint) (Port, error)

// Open starts the link: it opens the port, launches the reader goroutine,
// and pings the firmware as a liveness probe, failing with
// ErrNoAdapterResponse if nothing answers within timeout.
func Open(path string, baud uint, timeout time.Duration, openPort OpenFunc) (*Link, error) {
	port, err := openPort(path, baud)
	if err != nil {
		return nil, errors.Annotatef(ErrPortUnavailable, "open %s: %v", path, err)
	}

	l := &Link{
		port:    port,
		stopCh:  make(chan struct{}),
		inbound: make(chan []byte, inboundFrameQueueSize),
		ackCh:   make(chan ackResult, 1),
	}

	l.wg.Add(1)
	go l.readerLoop()

	deadline := time.Now().Add(timeout)
	pingErr := errors.Trace(ErrNoAdapterResponse)
	for time.Now().Before(deadline) {
		if pingErr = l.Ping(); pingErr == nil {
			return l, nil
		}
		// A ping that fails because write itself errored (rather than
		// timing out on the ack) returns immediately; without this the
		// retry loop would spin at full CPU until timeout elapses. Bound
		// the retry rate the same way the reader goroutine bounds its
		// own polling.
		time.Sleep(ReadPollTimeout)
	}
	l.Close()
	return nil, errors.Annotatef(pingErr, "no response from adapter on %s within %s", path, timeout)
}

// readerLoop is the background reader thread of spec.md 4.C: block on a
// short-timeout serial read, feed bytes through the codec, and route
// completed frames either to the inbound queue or to the ack rendezvous.
func (l *Link) readerLoop() {
	defer l.wg.Done()

	var st adaptercodec.ReaderState
	var cur []byte
	buf := make([]byte, 256)

	for {
		select {
		case <-l.stopCh:
			return
		default:
		}

		n, err := l.readFromPort(buf)
		if err != nil {
			if errors.Cause(err) == errTimeout {
				continue
			}
			l.setLastError(err)
			l.logWarning("adapterlink: read error: %v", err)
			return
		}

		for i := 0; i < n; i++ {
			ev := adaptercodec.ConsumeByte(&st, buf[i])
			switch ev.Kind {
			case adaptercodec.EventFrameByte:
				cur = append(cur, ev.Byte)
			case adaptercodec.EventFrameEnd:
				if len(cur) == 0 {
					continue
				}
				frame := cur
				cur = nil
				l.handleFrame(frame)
			}
		}
	}
}

// handleFrame classifies a reassembled frame's leading tag and routes it:
// either to the inbound CEC queue, or to whichever write is currently
// waiting on an ack.
func (l *Link) handleFrame(frame []byte) {
	tag := commandTag(frame[0])
	switch tag {
	case tagFrameData:
		if len(frame) < 2 {
			l.logWarning("adapterlink: malformed FRAME_DATA, dropping")
			return
		}
		select {
		case l.inbound <- frame[1:]:
		default:
			l.logWarning("adapterlink: inbound frame queue full, dropping frame")
		}
	case tagCommandAccepted, tagCommandRejected, tagTransmitAck, tagTransmitFailed:
		l.sendAckResult(ackResult{tag: tag})
	default:
		l.logWarning("adapterlink: unrecognized adapter tag 0x%02x", frame[0])
	}
}

func (l *Link) sendAckResult(r ackResult) {
	select {
	case l.ackCh <- r:
	default:
		// No write is currently waiting; drop it. This can legitimately
		// happen if a previous handshake already timed out.
	}
}

var errTimeout = errors.New("adapterlink: read timeout")

// readFromPort performs one bounded serial read, translating the port's
// own timeout signaling into errTimeout so readerLoop can distinguish a
// routine poll timeout from a real I/O failure. A Port must report a
// timeout as a zero-byte, nil-error read, the convention cesanta/go-serial
// uses; any error the Port returns is treated as a real I/O failure.
func (l *Link) readFromPort(buf []byte) (int, error) {
	l.port.SetReadTimeout(ReadPollTimeout)
	n, err := l.port.Read(buf)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, errTimeout
	}
	return n, nil
}

// write performs the comm-mutex-guarded write+ack handshake of spec.md
// 4.C: serialize the command, write it, wait for the reader goroutine to
// signal the observed response tag, bounded by AckTimeout. When
// waitForAck is false, a TRANSMIT_FAILED response or an ack timeout is
// not surfaced as ErrNotAcked (spec.md 7: "returned from transmit only
// when wait_for_ack=true").
func (l *Link) write(tag commandTag, payload []byte, waitForAck bool) error {
	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	if l.closed {
		return errors.Trace(ErrClosed)
	}

	l.commMu.Lock()
	defer l.commMu.Unlock()

	// Drain any stale ack left over from a previous timed-out handshake.
	select {
	case <-l.ackCh:
	default:
	}

	raw := append([]byte{byte(tag)}, payload...)
	wire := adaptercodec.Encode(raw)
	if _, err := l.port.Write(wire); err != nil {
		return errors.Annotatef(err, "write %s", tag)
	}

	select {
	case res := <-l.ackCh:
		switch res.tag {
		case tagCommandAccepted, tagTransmitAck:
			return nil
		case tagCommandRejected:
			return errors.Trace(ErrRejected)
		case tagTransmitFailed:
			if !waitForAck {
				return nil
			}
			return errors.Trace(ErrNotAcked)
		default:
			return errors.Errorf("adapterlink: unexpected response tag %s", res.tag)
		}
	case <-time.After(AckTimeout):
		if !waitForAck {
			return nil
		}
		return errors.Trace(ErrNotAcked)
	case <-l.stopCh:
		return errors.Trace(ErrClosed)
	}
}

// Ping verifies the firmware is alive.
func (l *Link) Ping() error {
	if err := l.write(tagPing, nil, true); err != nil {
		return errors.Annotatef(ErrNoAdapterResponse, "ping: %v", err)
	}
	return nil
}

// StartBootloader asks the firmware to enter its flashing mode. The link
// is unusable for CEC traffic afterward.
func (l *Link) StartBootloader() error {
	return l.write(tagStartBootloader, nil, true)
}

// SetAckMask reprograms which logical addresses the firmware acks on the
// bus. The bit layout is firmware-defined and opaque to this library
// (spec.md 9, Open Question).
func (l *Link) SetAckMask(mask uint16) error {
	return l.write(tagSetAckMask, []byte{byte(mask >> 8), byte(mask)}, true)
}

// Write transmits a CEC frame and returns on the first response the
// adapter sends: COMMAND_ACCEPTED or TRANSMIT_ACK is success,
// COMMAND_REJECTED is ErrRejected, TRANSMIT_FAILED or no response within
// AckTimeout is ErrNotAcked. A TRANSMIT_ACK or TRANSMIT_FAILED that
// follows a COMMAND_ACCEPTED is not awaited. When waitForAck is false,
// TRANSMIT_FAILED and the ack timeout are reported as success (spec.md 7,
// ErrNotAcked only applies when wait_for_ack=true).
func (l *Link) Write(frame []byte, waitForAck bool) error {
	return l.write(tagTransmit, frame, waitForAck)
}

// Read pops one reassembled CEC frame, waiting up to timeout.
func (l *Link) Read(timeout time.Duration) ([]byte, error) {
	select {
	case f := <-l.inbound:
		return f, nil
	case <-time.After(timeout):
		return nil, errors.Trace(ErrTimeout)
	case <-l.stopCh:
		return nil, errors.Trace(ErrClosed)
	}
}

// IsOpen reports whether the link has not yet been closed.
func (l *Link) IsOpen() bool {
	l.closeMu.RLock()
	defer l.closeMu.RUnlock()
	return !l.closed
}

// LastError returns the most recent unrecoverable error observed by the
// reader goroutine, if any.
func (l *Link) LastError() error {
	l.lastErrMu.Lock()
	defer l.lastErrMu.Unlock()
	return l.lastErr
}

func (l *Link) setLastError(err error) {
	l.lastErrMu.Lock()
	l.lastErr = err
	l.lastErrMu.Unlock()
}

// Close stops the reader goroutine and closes the port, joining the
// reader before returning (spec.md 3, "Both threads terminate on façade
// close; the façade joins them before freeing ports").
func (l *Link) Close() error {
	var closeErr error
	l.closeOnce.Do(func() {
		l.closeMu.Lock()
		l.closed = true
		l.closeMu.Unlock()

		close(l.stopCh)
		closeErr = l.port.Close()
		l.wg.Wait()
	})
	return closeErr
}
