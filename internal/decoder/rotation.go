package decoder

import "github.com/zsiec/liveframe/internal/h264"

// RotationState tracks the one rotation decode attempt a stream gets. Only
// the first SEI unit is inspected; Processed is set even when that unit
// carries no rotation record, and later SEI units are ignored.
type RotationState struct {
	Processed bool
	Degrees   float64
}

// Observe inspects u if it is the stream's first SEI unit. It returns the
// decoded display rotation and true when the unit carried a rotation record.
func (r *RotationState) Observe(u h264.NALUnit) (float64, bool) {
	if r.Processed || u.Type != h264.NALTypeSEI {
		return 0, false
	}
	r.Processed = true

	raw, ok := h264.ParseRotation(u.Raw)
	if !ok {
		return 0, false
	}
	r.Degrees = h264.RotationDegrees(raw)
	return r.Degrees, true
}
