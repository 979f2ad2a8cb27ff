package decoder

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/zsiec/liveframe/internal/media"
)

// BitstreamDecoder consumes the raw buffers of a single stream. Feed is not
// safe for concurrent use; Stats may be called from any goroutine.
type BitstreamDecoder interface {
	Kind() media.Kind
	Feed(buf []byte, pts int64) error
	Stats() Stats
}

// Options configures a decoder. Sinks are fixed for the decoder's lifetime;
// a nil sink discards what it would have received.
type Options struct {
	Logger   *slog.Logger
	Frames   FrameSink
	Rotation RotationSink
	Captions CaptionSink

	// FormatBuilder is used by video decoders. Nil selects
	// DefaultFormatBuilder.
	FormatBuilder FormatBuilder

	// AudioFormat is used by audio decoders. The zero value selects
	// DefaultAudioFormat.
	AudioFormat AudioFormat
}

func (o Options) logger(component string) *slog.Logger {
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}
	return log.With("component", component)
}

// New returns the decoder variant for kind.
func New(kind media.Kind, opts Options) (BitstreamDecoder, error) {
	switch kind {
	case media.KindVideo:
		return NewVideoDecoder(opts), nil
	case media.KindAudio:
		return NewAudioDecoder(opts), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
}

// Stats is a point-in-time snapshot of a decoder's counters.
type Stats struct {
	Buffers       int64 `json:"buffers"`
	Units         int64 `json:"units"`
	FramesEmitted int64 `json:"framesEmitted"`
	FramesDropped int64 `json:"framesDropped"`
	Captions      int64 `json:"captions"`
	FormatErrors  int64 `json:"formatErrors"`
}

type counters struct {
	buffers       atomic.Int64
	units         atomic.Int64
	framesEmitted atomic.Int64
	framesDropped atomic.Int64
	captions      atomic.Int64
	formatErrors  atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Buffers:       c.buffers.Load(),
		Units:         c.units.Load(),
		FramesEmitted: c.framesEmitted.Load(),
		FramesDropped: c.framesDropped.Load(),
		Captions:      c.captions.Load(),
		FormatErrors:  c.formatErrors.Load(),
	}
}
