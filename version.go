package cec

// libVersion and minVersion mirror LibCEC.h's CEC_LIB_VERSION_MAJOR/MINOR
// and CEC_MIN_LIB_VERSION: a client-protocol compatibility pair rather
// than a semantic-versioned release number.
const (
	libVersion = 6
	minVersion = 2
)

// LibVersion reports this library's protocol version.
func LibVersion() int { return libVersion }

// MinVersion reports the minimum protocol version this library can
// interoperate with.
func MinVersion() int { return minVersion }
