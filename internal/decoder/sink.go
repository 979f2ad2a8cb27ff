package decoder

import (
	"github.com/zsiec/ccx"
	"github.com/zsiec/liveframe/internal/media"
)

// FrameSink receives frames ready for a platform decoder. Frames are handed
// over; the decoder keeps no reference to them.
type FrameSink interface {
	OutputFrame(frame *media.Frame)
}

// RotationSink receives the display rotation decoded from a stream's first
// SEI unit. It is called at most once per stream.
type RotationSink interface {
	Rotate(degrees float64)
}

// CaptionSink receives CEA-608/708 caption text extracted from SEI units.
type CaptionSink interface {
	OutputCaption(frame *ccx.CaptionFrame)
}

// FrameSinkFunc adapts a function to FrameSink.
type FrameSinkFunc func(frame *media.Frame)

// OutputFrame calls f(frame).
func (f FrameSinkFunc) OutputFrame(frame *media.Frame) { f(frame) }

// RotationSinkFunc adapts a function to RotationSink.
type RotationSinkFunc func(degrees float64)

// Rotate calls f(degrees).
func (f RotationSinkFunc) Rotate(degrees float64) { f(degrees) }

// CaptionSinkFunc adapts a function to CaptionSink.
type CaptionSinkFunc func(frame *ccx.CaptionFrame)

// OutputCaption calls f(frame).
func (f CaptionSinkFunc) OutputCaption(frame *ccx.CaptionFrame) { f(frame) }
