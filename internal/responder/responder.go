// Package responder implements the CEC protocol layer (spec.md 4.D): it
// owns the local logical/physical address, parses inbound CEC frames
// pulled off the adapter link, answers polls and status queries, broadcasts
// active-source changes, and turns USER_CONTROL_PRESSED/RELEASED pairs into
// debounced key events. It is grounded on CECProcessor.h/LibCEC.h
// (original_source) for the opcode dispatch table, and on the teacher's
// addrMu-guarded state pattern (common/mgrpc/codec/serial.go's
// handsShakenLock) for how the address registers are protected from
// concurrent access by the façade and the processor goroutine.
package responder

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/juju/errors"

	"github.com/hdmicec/gocec/internal/eventqueue"
)

// Link is the subset of *adapterlink.Link the responder needs to pull
// frames and push transmits; a fake satisfies it in tests the same way a
// fake Port stands in for a real serial device in adapterlink's tests.
type Link interface {
	Read(timeout time.Duration) ([]byte, error)
	Write(frame []byte, waitForAck bool) error
}

// HostLogFunc mirrors adapterlink.HostLogFunc so the façade can wire both
// components to the same LogMessage queue without the responder importing
// the façade's package.
type HostLogFunc func(level eventqueue.LogLevel, format string, args ...interface{})

const (
	// FrameReadTimeout bounds each pull from the adapter link, the same
	// way the reader goroutine's serial read is bounded.
	FrameReadTimeout = 50 * time.Millisecond
	// ButtonTimeout is how long a held button waits before the responder
	// synthesizes a release on its own (spec.md 4.D, 8 scenario 5).
	ButtonTimeout = 500 * time.Millisecond
	// cecVersion1_3a is the value reported by GIVE_CEC_VERSION.
	cecVersion1_3a = 0x04
	// maxDeviceNameLen matches libcec_configuration.strDeviceName[13]'s
	// storage, truncated with the same 13-byte limit the LukasParke-capi
	// binding enforces via strncpy.
	maxDeviceNameLen = 13
)

// Responder owns the local address registers and the key-debounce state
// (spec.md 3, "Responder exclusively owns the local address registers and
// the key-debounce state").
type Responder struct {
	link Link

	keyQueue     *eventqueue.Queue[eventqueue.KeyPress]
	commandQueue *eventqueue.Queue[eventqueue.Command]
	hostLog      HostLogFunc

	addrMu       sync.Mutex
	localAddr    LogicalAddress
	physicalAddr PhysicalAddress
	deviceName   string

	currentButton               UserControlCode
	buttonDownTime              time.Time
	lastButtonWasTimeoutRelease bool

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New constructs a Responder bound to link, pushing key and command events
// to the given queues. The caller starts the processor goroutine with Run.
func New(link Link, keyQueue *eventqueue.Queue[eventqueue.KeyPress], commandQueue *eventqueue.Queue[eventqueue.Command], hostLog HostLogFunc) *Responder {
	name := "gocec"
	if len(name) > maxDeviceNameLen {
		name = name[:maxDeviceNameLen]
	}
	return &Responder{
		link:          link,
		keyQueue:      keyQueue,
		commandQueue:  commandQueue,
		hostLog:       hostLog,
		localAddr:     DefaultLogicalAddress,
		physicalAddr:  DefaultPhysicalAddress,
		deviceName:    name,
		currentButton: UnknownButton,
		stopCh:        make(chan struct{}),
	}
}

func (r *Responder) logWarning(format string, args ...interface{}) {
	glog.Warningf(format, args...)
	if r.hostLog != nil {
		r.hostLog(eventqueue.LevelWarning, format, args...)
	}
}

// Run starts the processor goroutine (spec.md 4.D, "Processor thread
// loop"). Stop joins it.
func (r *Responder) Run() {
	r.wg.Add(1)
	go r.processLoop()
}

// Stop signals the processor goroutine to exit and waits for it to join.
func (r *Responder) Stop() {
	close(r.stopCh)
	r.wg.Wait()
}

func (r *Responder) processLoop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopCh:
			return
		default:
		}

		r.CheckKeypressTimeout()

		frame, err := r.link.Read(FrameReadTimeout)
		if err != nil {
			// Timeout and Closed are both expected loop conditions here;
			// Closed means the link is shutting down, in which case the
			// façade will also be stopping this goroutine via stopCh.
			continue
		}
		if len(frame) < 2 {
			r.logWarning("responder: malformed CEC frame (len=%d), dropping", len(frame))
			continue
		}

		r.dispatch(ParseCecMessage(frame))
	}
}

// dispatch implements spec.md 4.D's (destination, opcode) table verbatim.
func (r *Responder) dispatch(msg CecMessage) {
	r.pushCommand(msg)

	local := r.LocalAddress()
	toUs := msg.Destination == local
	broadcast := msg.Destination == AddressBroadcast

	switch {
	case (toUs || broadcast) && msg.Opcode == OpcodeGivePhysicalAddress:
		r.replyGivePhysicalAddress()

	case toUs && msg.Opcode == OpcodeGiveOSDName:
		r.replyGiveOSDName(msg.Source)

	case toUs && msg.Opcode == OpcodeGiveDeviceVendorID:
		r.replyGiveDeviceVendorID()

	case toUs && msg.Opcode == OpcodeGiveDevicePowerStatus:
		r.replyGiveDevicePowerStatus(msg.Source)

	case toUs && msg.Opcode == OpcodeGiveCECVersion:
		r.replyGiveCECVersion(msg.Source)

	case toUs && msg.Opcode == OpcodeGetMenuLanguage:
		r.replyGetMenuLanguage(msg.Source)

	case toUs && msg.Opcode == OpcodeMenuRequest:
		r.replyMenuRequest(msg.Source)

	case toUs && msg.Opcode == OpcodeUserControlPressed:
		r.handleUserControlPressed(msg.Parameters)

	case toUs && msg.Opcode == OpcodeUserControlReleased:
		r.handleUserControlReleased()

	case broadcast && msg.Opcode == OpcodeRequestActiveSource:
		r.replyRequestActiveSource()

	case toUs:
		r.sendFeatureAbort(msg.Source, msg.Opcode, AbortUnrecognizedOpcode)
	}
}

func (r *Responder) pushCommand(msg CecMessage) {
	ok := r.commandQueue.Push(eventqueue.Command{
		Source:      uint8(msg.Source),
		Destination: uint8(msg.Destination),
		Opcode:      uint8(msg.Opcode),
		Parameters:  append([]byte(nil), msg.Parameters...),
	})
	if !ok {
		r.logWarning("responder: command event queue full, dropping event")
	}
}

func (r *Responder) replyGivePhysicalAddress() {
	phys := r.PhysicalAddress()
	r.sendNoWait(TransmitRequest{
		Source:      AddressUnset,
		Destination: AddressBroadcast,
		Opcode:      OpcodeReportPhysicalAddress,
		Parameters:  Frame{byte(phys >> 8), byte(phys), byte(DeviceTypePlaybackDevice)},
	})
}

func (r *Responder) replyGiveOSDName(source LogicalAddress) {
	r.addrMu.Lock()
	name := r.deviceName
	r.addrMu.Unlock()
	r.sendNoWait(TransmitRequest{
		Source:      AddressUnset,
		Destination: source,
		Opcode:      OpcodeSetOSDName,
		Parameters:  Frame(name),
	})
}

func (r *Responder) replyGiveDeviceVendorID() {
	r.sendNoWait(TransmitRequest{
		Source:      AddressUnset,
		Destination: AddressBroadcast,
		Opcode:      OpcodeDeviceVendorID,
		Parameters:  Frame{0x00, 0x00, 0x00},
	})
}

func (r *Responder) replyGiveDevicePowerStatus(source LogicalAddress) {
	r.sendNoWait(TransmitRequest{
		Source:      AddressUnset,
		Destination: source,
		Opcode:      OpcodeReportPowerStatus,
		Parameters:  Frame{byte(PowerStatusOn)},
	})
}

func (r *Responder) replyGiveCECVersion(source LogicalAddress) {
	r.sendNoWait(TransmitRequest{
		Source:      AddressUnset,
		Destination: source,
		Opcode:      OpcodeCECVersion,
		Parameters:  Frame{cecVersion1_3a},
	})
}

func (r *Responder) replyGetMenuLanguage(source LogicalAddress) {
	r.sendNoWait(TransmitRequest{
		Source:      AddressUnset,
		Destination: source,
		Opcode:      OpcodeSetMenuLanguage,
		Parameters:  Frame("eng"),
	})
}

func (r *Responder) replyMenuRequest(source LogicalAddress) {
	const menuStateActive = 0x00
	r.sendNoWait(TransmitRequest{
		Source:      AddressUnset,
		Destination: source,
		Opcode:      OpcodeMenuStatus,
		Parameters:  Frame{menuStateActive},
	})
}

func (r *Responder) replyRequestActiveSource() {
	phys := r.PhysicalAddress()
	r.sendNoWait(TransmitRequest{
		Source:      AddressUnset,
		Destination: AddressBroadcast,
		Opcode:      OpcodeActiveSource,
		Parameters:  Frame{byte(phys >> 8), byte(phys)},
	})
}

func (r *Responder) sendFeatureAbort(source LogicalAddress, opcode Opcode, reason AbortReason) {
	r.sendNoWait(TransmitRequest{
		Source:      AddressUnset,
		Destination: source,
		Opcode:      OpcodeFeatureAbort,
		Parameters:  Frame{byte(opcode), byte(reason)},
	})
}

// handleUserControlPressed records the press and pushes a key-down event
// (duration 0), per spec.md 4.D.
func (r *Responder) handleUserControlPressed(params Frame) {
	code := UserControlCode(UnknownButton)
	if len(params) > 0 {
		code = UserControlCode(params[0])
	}

	r.addrMu.Lock()
	r.currentButton = code
	r.buttonDownTime = time.Now()
	r.lastButtonWasTimeoutRelease = false
	r.addrMu.Unlock()

	r.pushKey(code, 0)
}

// handleUserControlReleased pushes a key-up event with the held duration
// and clears the debounce state.
//
// Resolves the spec's open question about AddKey being invoked both on
// explicit release and on synthesized timeout release: a real release
// immediately following a timeout-synthesized one is treated as a no-op,
// since the host already observed the key-up.
func (r *Responder) handleUserControlReleased() {
	r.addrMu.Lock()
	if r.currentButton == UnknownButton {
		r.addrMu.Unlock()
		return
	}
	if r.lastButtonWasTimeoutRelease {
		r.currentButton = UnknownButton
		r.lastButtonWasTimeoutRelease = false
		r.addrMu.Unlock()
		return
	}
	code := r.currentButton
	duration := time.Since(r.buttonDownTime)
	r.currentButton = UnknownButton
	r.addrMu.Unlock()

	r.pushKey(code, uint32(duration.Milliseconds()))
}

// CheckKeypressTimeout synthesizes a release for a button held longer than
// ButtonTimeout (spec.md 4.D, "check_keypress_timeout"). The façade may
// also call this periodically in addition to the per-loop-iteration call
// already made by processLoop.
func (r *Responder) CheckKeypressTimeout() {
	r.addrMu.Lock()
	if r.currentButton == UnknownButton {
		r.addrMu.Unlock()
		return
	}
	held := time.Since(r.buttonDownTime)
	if held <= ButtonTimeout || r.lastButtonWasTimeoutRelease {
		r.addrMu.Unlock()
		return
	}
	code := r.currentButton
	r.lastButtonWasTimeoutRelease = true
	r.addrMu.Unlock()

	r.pushKey(code, uint32(ButtonTimeout.Milliseconds()))
}

func (r *Responder) pushKey(code UserControlCode, durationMS uint32) {
	ok := r.keyQueue.Push(eventqueue.KeyPress{Code: uint8(code), DurationMS: durationMS})
	if !ok {
		r.logWarning("responder: key event queue full, dropping event")
	}
}

// LocalAddress returns the current local logical address.
func (r *Responder) LocalAddress() LogicalAddress {
	r.addrMu.Lock()
	defer r.addrMu.Unlock()
	return r.localAddr
}

// PhysicalAddress returns the current local physical address.
func (r *Responder) PhysicalAddress() PhysicalAddress {
	r.addrMu.Lock()
	defer r.addrMu.Unlock()
	return r.physicalAddr
}

// SetLogicalAddress updates the local address register and reprograms the
// adapter's ack-mask to acknowledge only that address (spec.md 4.D, "Set
// logical address"). The mask's bit layout is firmware-defined; see
// DESIGN.md for the resolved open question.
func (r *Responder) SetLogicalAddress(addr LogicalAddress, setAckMask func(mask uint16) error) error {
	r.addrMu.Lock()
	r.localAddr = addr
	r.addrMu.Unlock()

	if setAckMask == nil {
		return nil
	}
	return errors.Trace(setAckMask(uint16(1) << uint(addr&0xF)))
}

// Transmit fills an unset source nibble with the local address and hands
// the wire bytes to the adapter link (spec.md 4.D, "Address fill on
// transmit").
func (r *Responder) Transmit(req TransmitRequest) error {
	wire := req.WireBytes(r.LocalAddress())
	return errors.Trace(r.link.Write(wire, !req.NoWaitForAck))
}

func (r *Responder) sendNoWait(req TransmitRequest) {
	if err := r.Transmit(req); err != nil {
		r.logWarning("responder: reply transmit failed: %v", err)
	}
}

// PowerOnDevices sends IMAGE_VIEW_ON to addr (default TV).
func (r *Responder) PowerOnDevices(addr LogicalAddress) error {
	return r.Transmit(TransmitRequest{Source: AddressUnset, Destination: addr, Opcode: OpcodeImageViewOn})
}

// StandbyDevices sends STANDBY to addr (default broadcast).
func (r *Responder) StandbyDevices(addr LogicalAddress) error {
	return r.Transmit(TransmitRequest{Source: AddressUnset, Destination: addr, Opcode: OpcodeStandby})
}

// SetActiveView broadcasts ACTIVE_SOURCE carrying the local physical
// address.
func (r *Responder) SetActiveView() error {
	phys := r.PhysicalAddress()
	return r.Transmit(TransmitRequest{
		Source:      AddressUnset,
		Destination: AddressBroadcast,
		Opcode:      OpcodeActiveSource,
		Parameters:  Frame{byte(phys >> 8), byte(phys)},
	})
}

// SetInactiveView broadcasts INACTIVE_SOURCE carrying the local physical
// address.
func (r *Responder) SetInactiveView() error {
	phys := r.PhysicalAddress()
	return r.Transmit(TransmitRequest{
		Source:      AddressUnset,
		Destination: AddressBroadcast,
		Opcode:      OpcodeInactiveSource,
		Parameters:  Frame{byte(phys >> 8), byte(phys)},
	})
}
