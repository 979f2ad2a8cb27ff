package decoder

import (
	"bytes"
	"testing"

	"github.com/zsiec/liveframe/internal/h264"
)

func TestRotationStateThreeByteStartCode(t *testing.T) {
	t.Parallel()
	// Offsets are measured from the start code, so a 3-byte code shifts
	// the record by one byte into the unit.
	u := h264.NALUnit{
		Type:            h264.NALTypeSEI,
		StartCodeLength: 3,
		Raw:             []byte{0x00, 0x00, 0x01, 0x06, 0x05, h264.RotationMarker, 0x80, 0x00},
	}
	u.Payload = u.Raw[3:]

	var r RotationState
	deg, ok := r.Observe(u)
	if !ok || deg != 180 {
		t.Errorf("Observe = (%v, %v), want (180, true)", deg, ok)
	}
}

func TestRotationStateIgnoresNonSEI(t *testing.T) {
	t.Parallel()
	var r RotationState
	if _, ok := r.Observe(unit(testIDR)); ok {
		t.Error("IDR reported a rotation")
	}
	if r.Processed {
		t.Error("non-SEI unit marked rotation processed")
	}
}

func TestReframe(t *testing.T) {
	t.Parallel()
	got := Reframe(unit(testSlice))
	if !bytes.Equal(got, lengthPrefixed(testSlice)) {
		t.Errorf("Reframe = %x, want %x", got, lengthPrefixed(testSlice))
	}
	if got := Reframe(h264.NALUnit{Type: h264.NALTypeIDR}); got != nil {
		t.Errorf("Reframe(empty) = %x, want nil", got)
	}
}
