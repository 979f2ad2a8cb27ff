package h264

import "encoding/binary"

// RotationMarker is the byte that identifies a rotation-bearing SEI unit.
const RotationMarker = 47

// Offsets of the rotation record, measured from the first byte of the SEI
// unit's start code as it arrives in the buffer.
const (
	rotationMarkerOffset = 5
	rotationAngleOffset  = 6
	rotationRecordLen    = rotationAngleOffset + 2
)

// ParseRotation extracts the raw 16-bit angle from a rotation SEI unit. raw
// must start with the unit's start code. It returns false when the unit is
// too short to hold the record or the marker byte does not match.
func ParseRotation(raw []byte) (uint16, bool) {
	if len(raw) < rotationRecordLen || raw[rotationMarkerOffset] != RotationMarker {
		return 0, false
	}
	return binary.BigEndian.Uint16(raw[rotationAngleOffset:rotationRecordLen]), true
}

// RotationDegrees converts a raw angle into the clockwise display rotation
// in degrees: 360 - 360*raw/65536, truncated to whole degrees. A raw angle of
// zero yields 360.
func RotationDegrees(raw uint16) float64 {
	return float64(360 - 360*int(raw)/(1<<16))
}
