// Package cec drives a USB-attached HDMI-CEC adapter so the host can
// participate as a logical device on an HDMI CEC bus.
package cec

import "github.com/hdmicec/gocec/internal/responder"

// These types are owned by internal/responder, which needs them for its
// own dispatch table and cannot import this package back without a cycle;
// the root package re-exports them so callers never need to know the
// internal package exists, the same alias pattern errors.go uses for the
// link's sentinel errors.
type (
	LogicalAddress  = responder.LogicalAddress
	PhysicalAddress = responder.PhysicalAddress
	DeviceType      = responder.DeviceType
	Frame           = responder.Frame
	Opcode          = responder.Opcode
	AbortReason     = responder.AbortReason
	PowerStatus     = responder.PowerStatus
	UserControlCode = responder.UserControlCode
	CecMessage      = responder.CecMessage
	TransmitRequest = responder.TransmitRequest
)

// CEC logical addresses, per the HDMI CEC specification.
const (
	AddressTV             = responder.AddressTV
	AddressRecording1     = responder.AddressRecording1
	AddressRecording2     = responder.AddressRecording2
	AddressTuner1         = responder.AddressTuner1
	AddressPlayback1      = responder.AddressPlayback1
	AddressAudioSystem    = responder.AddressAudioSystem
	AddressTuner2         = responder.AddressTuner2
	AddressTuner3         = responder.AddressTuner3
	AddressPlayback2      = responder.AddressPlayback2
	AddressRecording3     = responder.AddressRecording3
	AddressTuner4         = responder.AddressTuner4
	AddressPlayback3      = responder.AddressPlayback3
	AddressReserved1      = responder.AddressReserved1
	AddressReserved2      = responder.AddressReserved2
	AddressFree           = responder.AddressFree
	AddressBroadcast      = responder.AddressBroadcast
	AddressUnset          = responder.AddressUnset
	DefaultLogicalAddress = responder.DefaultLogicalAddress
)

// DefaultPhysicalAddress is reported until the host learns its real HDMI
// topology position; it is never negotiated by this library.
const DefaultPhysicalAddress = responder.DefaultPhysicalAddress

const (
	DeviceTypeTV              = responder.DeviceTypeTV
	DeviceTypeRecordingDevice = responder.DeviceTypeRecordingDevice
	DeviceTypeReserved        = responder.DeviceTypeReserved
	DeviceTypeTuner           = responder.DeviceTypeTuner
	DeviceTypePlaybackDevice  = responder.DeviceTypePlaybackDevice
	DeviceTypeAudioSystem     = responder.DeviceTypeAudioSystem
)

// Opcodes referenced by the responder's dispatch table.
const (
	OpcodeFeatureAbort          = responder.OpcodeFeatureAbort
	OpcodeActiveSource          = responder.OpcodeActiveSource
	OpcodeInactiveSource        = responder.OpcodeInactiveSource
	OpcodeRequestActiveSource   = responder.OpcodeRequestActiveSource
	OpcodeGivePhysicalAddress   = responder.OpcodeGivePhysicalAddress
	OpcodeReportPhysicalAddress = responder.OpcodeReportPhysicalAddress
	OpcodeGiveOSDName           = responder.OpcodeGiveOSDName
	OpcodeSetOSDName            = responder.OpcodeSetOSDName
	OpcodeGiveDeviceVendorID    = responder.OpcodeGiveDeviceVendorID
	OpcodeDeviceVendorID        = responder.OpcodeDeviceVendorID
	OpcodeGiveDevicePowerStatus = responder.OpcodeGiveDevicePowerStatus
	OpcodeReportPowerStatus     = responder.OpcodeReportPowerStatus
	OpcodeGiveCECVersion        = responder.OpcodeGiveCECVersion
	OpcodeCECVersion            = responder.OpcodeCECVersion
	OpcodeGetMenuLanguage       = responder.OpcodeGetMenuLanguage
	OpcodeSetMenuLanguage       = responder.OpcodeSetMenuLanguage
	OpcodeMenuRequest           = responder.OpcodeMenuRequest
	OpcodeMenuStatus            = responder.OpcodeMenuStatus
	OpcodeUserControlPressed    = responder.OpcodeUserControlPressed
	OpcodeUserControlReleased   = responder.OpcodeUserControlReleased
	OpcodeImageViewOn           = responder.OpcodeImageViewOn
	OpcodeStandby               = responder.OpcodeStandby
)

const (
	AbortUnrecognizedOpcode  = responder.AbortUnrecognizedOpcode
	AbortNotInCorrectMode    = responder.AbortNotInCorrectMode
	AbortCannotProvideSource = responder.AbortCannotProvideSource
	AbortInvalidOperand      = responder.AbortInvalidOperand
	AbortRefused             = responder.AbortRefused
)

const (
	PowerStatusOn                    = responder.PowerStatusOn
	PowerStatusStandby               = responder.PowerStatusStandby
	PowerStatusInTransitionToOn      = responder.PowerStatusInTransitionToOn
	PowerStatusInTransitionToStandby = responder.PowerStatusInTransitionToStandby
)

// UnknownButton marks "no button currently held".
const UnknownButton = responder.UnknownButton
