package adapterlink

import (
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"

	"github.com/hdmicec/gocec/internal/adaptercodec"
	"github.com/hdmicec/gocec/internal/eventqueue"
)

// fakePort is an in-memory Port that lets a test script canned responses
// for each write, the way flasher_client_test.go's fake transport drives
// flasher_client.go without a real serial device.
type fakePort struct {
	mu      sync.Mutex
	replies [][]byte // one reply frame (already wire-encoded) released per write
	scripts [][]byte // wire-encoded frames readable now
	writes  [][]byte
	closed  bool

	pending []byte
}

func newFakePort() *fakePort {
	return &fakePort{}
}

// queueReply arranges for the next Write to trigger a FRAME_DATA-style
// reply to become readable.
func (p *fakePort) queueReply(tag commandTag, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	raw := append([]byte{byte(tag)}, payload...)
	p.replies = append(p.replies, adaptercodec.Encode(raw))
}

func (p *fakePort) Read(buf []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) == 0 {
		if len(p.scripts) == 0 {
			return 0, nil // timeout, per readFromPort's 0,nil convention
		}
		p.pending = p.scripts[0]
		p.scripts = p.scripts[1:]
	}
	n := copy(buf, p.pending)
	p.pending = p.pending[n:]
	return n, nil
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writes = append(p.writes, append([]byte(nil), b...))
	if len(p.replies) > 0 {
		p.scripts = append(p.scripts, p.replies[0])
		p.replies = p.replies[1:]
	}
	return len(b), nil
}

func (p *fakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePort) SetReadTimeout(time.Duration) error { return nil }

func openFakeLink(t *testing.T, port *fakePort) *Link {
	t.Helper()
	port.queueReply(tagCommandAccepted, nil)
	l, err := Open("fake", 38400, time.Second, func(string, uint) (Port, error) {
		return port, nil
	})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return l
}

// TestOpenPingOK covers spec.md 8 scenario 2: a fresh adapter answers the
// liveness ping and Open succeeds.
func TestOpenPingOK(t *testing.T) {
	port := newFakePort()
	l := openFakeLink(t, port)
	defer l.Close()

	if !l.IsOpen() {
		t.Errorf("expected link to be open after successful ping")
	}
}

// TestOpenNoResponse covers the NoAdapterResponse path: the port never
// answers, so Open must give up once timeout has elapsed rather than
// hanging forever.
func TestOpenNoResponse(t *testing.T) {
	port := newFakePort() // no queued replies: every ping times out

	start := time.Now()
	_, err := Open("fake", 38400, 120*time.Millisecond, func(string, uint) (Port, error) {
		return port, nil
	})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected error, got nil")
	}
	if elapsed > 2*time.Second {
		t.Errorf("Open took %s, expected it to give up near the 120ms timeout", elapsed)
	}
}

// TestWriteExactlyOnceAck verifies that a single Write consumes exactly
// one ack, never leaking a stale ack into a subsequent handshake.
func TestWriteExactlyOnceAck(t *testing.T) {
	port := newFakePort()
	l := openFakeLink(t, port)
	defer l.Close()

	port.queueReply(tagTransmitAck, nil)
	if err := l.Write([]byte{0x0F, 0x82}, true); err != nil {
		t.Fatalf("Write: %v", err)
	}

	port.queueReply(tagTransmitFailed, nil)
	err := l.Write([]byte{0x0F, 0x82}, true)
	if cause := errors.Cause(err); cause != ErrNotAcked {
		t.Errorf("second write: got %v, want ErrNotAcked", err)
	}
}

// TestWriteNoWaitForAckSuppressesError covers spec.md 7: ErrNotAcked is
// only surfaced when wait_for_ack is true.
func TestWriteNoWaitForAckSuppressesError(t *testing.T) {
	port := newFakePort()
	l := openFakeLink(t, port)
	defer l.Close()

	port.queueReply(tagTransmitFailed, nil)
	if err := l.Write([]byte{0x0F, 0x82}, false); err != nil {
		t.Errorf("Write with waitForAck=false: got %v, want nil", err)
	}
}

// TestReadDeliversFrameData checks that FRAME_DATA frames land on Read
// with their leading tag byte stripped.
func TestReadDeliversFrameData(t *testing.T) {
	port := newFakePort()
	l := openFakeLink(t, port)
	defer l.Close()

	raw := adaptercodec.Encode(append([]byte{byte(tagFrameData)}, 0x0F, 0x84, 0x10, 0x00))
	port.mu.Lock()
	port.scripts = append(port.scripts, raw)
	port.mu.Unlock()

	frame, err := l.Read(time.Second)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []byte{0x0F, 0x84, 0x10, 0x00}
	if string(frame) != string(want) {
		t.Errorf("Read() = %x, want %x", frame, want)
	}
}

// TestCloseJoinsReader covers spec.md 3's "the façade joins them before
// freeing ports": Close must not return until the reader goroutine has
// observed stopCh and exited.
func TestCloseJoinsReader(t *testing.T) {
	port := newFakePort()
	l := openFakeLink(t, port)

	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if l.IsOpen() {
		t.Errorf("expected link to report closed")
	}
	// A second Close must be a safe no-op (closeOnce-guarded).
	if err := l.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

// TestHostLogOnQueueOverflow exercises the dual-channel log path: an
// inbound frame arriving after the queue is already full should surface a
// WARNING via the installed HostLogFunc, not just glog.
func TestHostLogOnQueueOverflow(t *testing.T) {
	port := newFakePort()
	l := openFakeLink(t, port)
	defer l.Close()

	var mu sync.Mutex
	var warned bool
	l.SetHostLog(func(level eventqueue.LogLevel, format string, args ...interface{}) {
		mu.Lock()
		defer mu.Unlock()
		if level == eventqueue.LevelWarning {
			warned = true
		}
	})

	// The reader's inbound channel has capacity inboundFrameQueueSize;
	// fill it, then push one more frame than it can hold.
	port.mu.Lock()
	for i := 0; i <= inboundFrameQueueSize; i++ {
		raw := adaptercodec.Encode([]byte{byte(tagFrameData), 0x0F, 0x82})
		port.scripts = append(port.scripts, raw)
	}
	port.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		got := warned
		mu.Unlock()
		if got {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Errorf("expected HostLogFunc to observe a WARNING on queue overflow")
}
