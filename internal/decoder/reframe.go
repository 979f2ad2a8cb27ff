package decoder

import (
	"github.com/zsiec/liveframe/internal/avc"
	"github.com/zsiec/liveframe/internal/h264"
)

// Reframe converts a slice NAL unit from Annex-B to AVC1 framing: a 4-byte
// big-endian length followed by the slice bytes up to the next start code.
// A zero-length slice yields nil.
func Reframe(u h264.NALUnit) []byte {
	return avc.LengthPrefix(u.Payload)
}
