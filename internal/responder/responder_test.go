package responder

import (
	"sync"
	"testing"
	"time"

	"github.com/hdmicec/gocec/internal/eventqueue"
)

// fakeLink is an in-memory Link: Read yields from a canned queue of
// inbound frames, Write records everything sent so tests can assert on
// the exact wire bytes the responder produced.
type fakeLink struct {
	mu      sync.Mutex
	inbound [][]byte
	writes  [][]byte
}

func (l *fakeLink) Read(timeout time.Duration) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.inbound) == 0 {
		return nil, errTimeoutStub{}
	}
	f := l.inbound[0]
	l.inbound = l.inbound[1:]
	return f, nil
}

func (l *fakeLink) Write(frame []byte, waitForAck bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writes = append(l.writes, append([]byte(nil), frame...))
	return nil
}

func (l *fakeLink) lastWrite() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.writes) == 0 {
		return nil
	}
	return l.writes[len(l.writes)-1]
}

func (l *fakeLink) waitForWrite(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		l.mu.Lock()
		got := len(l.writes)
		l.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d write(s)", n)
}

type errTimeoutStub struct{}

func (errTimeoutStub) Error() string { return "timeout" }

func newTestResponder(link *fakeLink) (*Responder, *eventqueue.Queue[eventqueue.KeyPress], *eventqueue.Queue[eventqueue.Command]) {
	keys := eventqueue.New[eventqueue.KeyPress](eventqueue.MinKeyCapacity)
	cmds := eventqueue.New[eventqueue.Command](eventqueue.MinCommandCapacity)
	r := New(link, keys, cmds, nil)
	return r, keys, cmds
}

// TestPollReply covers spec.md 8 scenario 3: GIVE_DEVICE_POWER_STATUS from
// the TV addressed to our local address (4, Playback1) gets answered with
// REPORT_POWER_STATUS: ON.
func TestPollReply(t *testing.T) {
	link := &fakeLink{inbound: [][]byte{{0x04, 0x8F}}}
	r, _, _ := newTestResponder(link)
	r.Run()
	defer r.Stop()

	link.waitForWrite(t, 1)
	want := []byte{0x40, 0x90, 0x00}
	got := link.lastWrite()
	if string(got) != string(want) {
		t.Errorf("reply = % x, want % x", got, want)
	}
}

// TestFeatureAbort covers spec.md 8 scenario 4: an unrecognized opcode
// from the TV gets FEATURE_ABORT back.
func TestFeatureAbort(t *testing.T) {
	link := &fakeLink{inbound: [][]byte{{0x04, 0x7E}}}
	r, _, _ := newTestResponder(link)
	r.Run()
	defer r.Stop()

	link.waitForWrite(t, 1)
	want := []byte{0x40, 0x00, 0x7E, 0x04}
	got := link.lastWrite()
	if string(got) != string(want) {
		t.Errorf("reply = % x, want % x", got, want)
	}
}

// TestBroadcastActiveSource covers spec.md 8 scenario 6: SetActiveView
// with physical=0x1000 broadcasts ACTIVE_SOURCE with the matching params.
func TestBroadcastActiveSource(t *testing.T) {
	link := &fakeLink{}
	r, _, _ := newTestResponder(link)

	if err := r.SetActiveView(); err != nil {
		t.Fatalf("SetActiveView: %v", err)
	}
	want := []byte{0x4F, 0x82, 0x10, 0x00}
	got := link.lastWrite()
	if string(got) != string(want) {
		t.Errorf("wire = % x, want % x", got, want)
	}
}

// TestRequestActiveSourceBroadcast covers the broadcast REQUEST_ACTIVE_SOURCE
// row of the dispatch table.
func TestRequestActiveSourceBroadcast(t *testing.T) {
	link := &fakeLink{inbound: [][]byte{{0x0F, byte(OpcodeRequestActiveSource)}}}
	r, _, _ := newTestResponder(link)
	r.Run()
	defer r.Stop()

	link.waitForWrite(t, 1)
	want := []byte{0x4F, byte(OpcodeActiveSource), 0x10, 0x00}
	got := link.lastWrite()
	if string(got) != string(want) {
		t.Errorf("reply = % x, want % x", got, want)
	}
}

// TestKeyDebounceTimeout covers spec.md 8 scenario 5: a press with no
// release must surface a synthesized KeyPress{0x44, 500} once
// ButtonTimeout has elapsed, and a real release arriving afterward must
// not synthesize a second event (resolves the spec's open question).
func TestKeyDebounceTimeout(t *testing.T) {
	link := &fakeLink{}
	r, keys, _ := newTestResponder(link)

	r.handleUserControlPressed(Frame{0x44})

	// Drain the key-down event pushed immediately on press.
	down, ok := keys.Pop()
	if !ok || down.DurationMS != 0 || down.Code != 0x44 {
		t.Fatalf("key-down event = %+v, ok=%v", down, ok)
	}

	// Force the down-time far enough in the past to simulate t=700ms.
	r.addrMu.Lock()
	r.buttonDownTime = time.Now().Add(-700 * time.Millisecond)
	r.addrMu.Unlock()

	r.CheckKeypressTimeout()

	up, ok := keys.Pop()
	if !ok {
		t.Fatalf("expected a synthesized release event")
	}
	if up.Code != 0x44 || up.DurationMS != uint32(ButtonTimeout.Milliseconds()) {
		t.Errorf("release event = %+v, want code=0x44 duration=%dms", up, ButtonTimeout.Milliseconds())
	}

	// A real release arriving after the synthesized one must be a no-op.
	r.handleUserControlReleased()
	if _, ok := keys.Pop(); ok {
		t.Errorf("expected no further key event after a release following a timeout release")
	}
}

// TestGivePhysicalAddress covers the local-or-broadcast destination case
// for GIVE_PHYSICAL_ADDRESS.
func TestGivePhysicalAddress(t *testing.T) {
	link := &fakeLink{inbound: [][]byte{{0x04, byte(OpcodeGivePhysicalAddress)}}}
	r, _, _ := newTestResponder(link)
	r.Run()
	defer r.Stop()

	link.waitForWrite(t, 1)
	want := []byte{0x4F, byte(OpcodeReportPhysicalAddress), 0x10, 0x00, byte(DeviceTypePlaybackDevice)}
	got := link.lastWrite()
	if string(got) != string(want) {
		t.Errorf("reply = % x, want % x", got, want)
	}
}

// TestCommandEventAlwaysPushed checks the "any/any" row: every dispatched
// frame also produces a Command event regardless of whether the responder
// replied.
func TestCommandEventAlwaysPushed(t *testing.T) {
	link := &fakeLink{inbound: [][]byte{{0x04, 0x8F}}}
	r, _, cmds := newTestResponder(link)
	r.Run()
	defer r.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cmds.Len() > 0 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	cmd, ok := cmds.Pop()
	if !ok {
		t.Fatalf("expected a Command event")
	}
	if cmd.Source != 0x0 || cmd.Destination != 0x4 || cmd.Opcode != 0x8F {
		t.Errorf("Command = %+v, want Source=0 Destination=4 Opcode=0x8F", cmd)
	}
}
