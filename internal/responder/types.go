package responder

import "fmt"

// LogicalAddress is a 4-bit CEC device identity.
type LogicalAddress uint8

// CEC logical addresses, per the HDMI CEC specification.
const (
	AddressTV             LogicalAddress = 0
	AddressRecording1     LogicalAddress = 1
	AddressRecording2     LogicalAddress = 2
	AddressTuner1         LogicalAddress = 3
	AddressPlayback1      LogicalAddress = 4
	AddressAudioSystem    LogicalAddress = 5
	AddressTuner2         LogicalAddress = 6
	AddressTuner3         LogicalAddress = 7
	AddressPlayback2      LogicalAddress = 8
	AddressRecording3     LogicalAddress = 9
	AddressTuner4         LogicalAddress = 10
	AddressPlayback3      LogicalAddress = 11
	AddressReserved1      LogicalAddress = 12
	AddressReserved2      LogicalAddress = 13
	AddressFree           LogicalAddress = 14
	AddressBroadcast      LogicalAddress = 15
	AddressUnset          LogicalAddress = 0xFF // sentinel: "fill with local address"
	DefaultLogicalAddress                = AddressPlayback1
)

func (a LogicalAddress) String() string {
	switch a {
	case AddressTV:
		return "TV"
	case AddressRecording1:
		return "Recording1"
	case AddressRecording2:
		return "Recording2"
	case AddressTuner1:
		return "Tuner1"
	case AddressPlayback1:
		return "Playback1"
	case AddressAudioSystem:
		return "AudioSystem"
	case AddressTuner2:
		return "Tuner2"
	case AddressTuner3:
		return "Tuner3"
	case AddressPlayback2:
		return "Playback2"
	case AddressRecording3:
		return "Recording3"
	case AddressTuner4:
		return "Tuner4"
	case AddressPlayback3:
		return "Playback3"
	case AddressFree:
		return "Free"
	case AddressBroadcast:
		return "Broadcast"
	case AddressUnset:
		return "Unset"
	default:
		return fmt.Sprintf("Reserved(%d)", uint8(a))
	}
}

// PhysicalAddress is the 16-bit HDMI topology address (0xNNNN, one nibble
// per port on the path from the root).
type PhysicalAddress uint16

// DefaultPhysicalAddress is reported until the host learns its real HDMI
// topology position; it is never negotiated by this library.
const DefaultPhysicalAddress PhysicalAddress = 0x1000

func (p PhysicalAddress) String() string {
	return fmt.Sprintf("%x.%x.%x.%x",
		(p>>12)&0xF, (p>>8)&0xF, (p>>4)&0xF, p&0xF)
}

// DeviceType is the CEC device type reported in REPORT_PHYSICAL_ADDRESS.
type DeviceType uint8

const (
	DeviceTypeTV              DeviceType = 0
	DeviceTypeRecordingDevice DeviceType = 1
	DeviceTypeReserved        DeviceType = 2
	DeviceTypeTuner           DeviceType = 3
	DeviceTypePlaybackDevice  DeviceType = 4
	DeviceTypeAudioSystem     DeviceType = 5
)

// Frame is a variable-length byte sequence. At the adapter layer it is the
// escaped wire representation; once unwrapped it is a raw CEC message
// (byte 0 = initiator/destination nibbles, byte 1 = opcode, bytes 2+ =
// parameters).
type Frame []byte

// Opcode is a CEC message opcode.
type Opcode uint8

// Opcodes referenced by the responder's dispatch table.
const (
	OpcodeFeatureAbort          Opcode = 0x00
	OpcodeActiveSource          Opcode = 0x82
	OpcodeInactiveSource        Opcode = 0x9D
	OpcodeRequestActiveSource   Opcode = 0x85
	OpcodeGivePhysicalAddress   Opcode = 0x83
	OpcodeReportPhysicalAddress Opcode = 0x84
	OpcodeGiveOSDName           Opcode = 0x46
	OpcodeSetOSDName            Opcode = 0x47
	OpcodeGiveDeviceVendorID    Opcode = 0x8C
	OpcodeDeviceVendorID        Opcode = 0x87
	OpcodeGiveDevicePowerStatus Opcode = 0x8F
	OpcodeReportPowerStatus     Opcode = 0x90
	OpcodeGiveCECVersion        Opcode = 0x9F
	OpcodeCECVersion            Opcode = 0x9E
	OpcodeGetMenuLanguage       Opcode = 0x91
	OpcodeSetMenuLanguage       Opcode = 0x32
	OpcodeMenuRequest           Opcode = 0x8D
	OpcodeMenuStatus            Opcode = 0x8E
	OpcodeUserControlPressed    Opcode = 0x44
	OpcodeUserControlReleased   Opcode = 0x45
	OpcodeImageViewOn           Opcode = 0x04
	OpcodeStandby               Opcode = 0x36
)

// AbortReason is a CEC FEATURE_ABORT reason code.
type AbortReason uint8

// Reason codes for this adapter's FEATURE_ABORT fixture. These follow the
// literal byte values this library's test fixture expects rather than the
// published HDMI CEC reason-code table, since the reason byte is, like the
// adapter's other opaque tag values, part of the wire convention this
// library targets (see DESIGN.md).
const (
	AbortNotInCorrectMode    AbortReason = 1
	AbortCannotProvideSource AbortReason = 2
	AbortInvalidOperand      AbortReason = 3
	AbortRefused             AbortReason = 5
	AbortUnrecognizedOpcode  AbortReason = 4
)

// PowerStatus is the CEC power state reported in REPORT_POWER_STATUS.
type PowerStatus uint8

const (
	PowerStatusOn                    PowerStatus = 0x00
	PowerStatusStandby               PowerStatus = 0x01
	PowerStatusInTransitionToOn      PowerStatus = 0x02
	PowerStatusInTransitionToStandby PowerStatus = 0x03
)

// UserControlCode identifies a CEC remote-control key.
type UserControlCode uint8

// UnknownButton marks "no button currently held".
const UnknownButton UserControlCode = 0xFF

// CecMessage is an inbound, already-parsed CEC message: the source and
// destination nibbles are split out instead of being left as an implicit
// convention on a shared byte buffer.
type CecMessage struct {
	Source      LogicalAddress
	Destination LogicalAddress
	Opcode      Opcode
	Parameters  Frame
}

// ParseCecMessage unwraps a raw adapter-delivered CEC frame (byte 0 =
// source<<4|destination, byte 1 = opcode, bytes 2+ = parameters) into a
// CecMessage. The caller must already have rejected frames shorter than 2
// bytes as malformed.
func ParseCecMessage(frame []byte) CecMessage {
	return CecMessage{
		Source:      LogicalAddress(frame[0] >> 4),
		Destination: LogicalAddress(frame[0] & 0xF),
		Opcode:      Opcode(frame[1]),
		Parameters:  append(Frame(nil), frame[2:]...),
	}
}

// TransmitRequest is an outbound CEC message. Source may be AddressUnset,
// in which case the responder fills it with the local logical address
// before handing the bytes to the adapter link.
type TransmitRequest struct {
	Source      LogicalAddress
	Destination LogicalAddress
	Opcode      Opcode
	Parameters  Frame

	// NoWaitForAck opts out of spec.md 7's default wait_for_ack=true
	// behavior: when true, a transmit that the adapter accepted but the
	// CEC peer never acked is reported as success instead of
	// ErrNotAcked. Zero value (false) keeps the default strict
	// behavior, matching the wait_for_ack parameter's documented default.
	NoWaitForAck bool
}

// WireBytes renders the request as the on-the-wire CEC byte sequence:
// byte 0 = source<<4|destination, byte 1 = opcode, bytes 2+ = parameters.
func (r TransmitRequest) WireBytes(localAddr LogicalAddress) Frame {
	src := r.Source
	if src == AddressUnset {
		src = localAddr
	}
	out := make(Frame, 0, 2+len(r.Parameters))
	out = append(out, byte(src)<<4|byte(r.Destination&0xF))
	out = append(out, byte(r.Opcode))
	out = append(out, r.Parameters...)
	return out
}
