package decoder

import (
	"log/slog"

	"github.com/zsiec/liveframe/internal/h264"
	"github.com/zsiec/liveframe/internal/media"
)

// VideoDecoder turns Annex-B H.264 buffers into AVC1-framed slices.
type VideoDecoder struct {
	log      *slog.Logger
	frames   FrameSink
	rotation RotationSink

	params   *ParameterSetCache
	rotState RotationState
	captions *captionExtractor

	stats counters
}

// NewVideoDecoder creates a video decoder with an empty parameter-set cache.
func NewVideoDecoder(opts Options) *VideoDecoder {
	d := &VideoDecoder{
		log:      opts.logger("video-decoder"),
		frames:   opts.Frames,
		rotation: opts.Rotation,
		params:   NewParameterSetCache(opts.FormatBuilder),
	}
	if opts.Captions != nil {
		d.captions = newCaptionExtractor(opts.Captions)
	}
	return d
}

// Kind returns media.KindVideo.
func (d *VideoDecoder) Kind() media.Kind { return media.KindVideo }

// Stats returns a snapshot of the decoder's counters.
func (d *VideoDecoder) Stats() Stats { return d.stats.snapshot() }

// Ready reports whether slices would currently be emitted: a format
// description exists and the first SEI unit has been seen.
func (d *VideoDecoder) Ready() bool {
	return d.params.Ready() && d.rotState.Processed
}

// Params exposes the stream's parameter-set cache.
func (d *VideoDecoder) Params() *ParameterSetCache { return d.params }

// Rotation returns the stream's rotation state.
func (d *VideoDecoder) Rotation() RotationState { return d.rotState }

// Feed processes one buffer of Annex-B data. Every NAL unit in the buffer is
// handled even when an earlier one fails; the first error is returned. A
// buffer with no start code is ignored.
func (d *VideoDecoder) Feed(buf []byte, pts int64) error {
	if len(buf) == 0 {
		return nil
	}
	d.stats.buffers.Add(1)

	units := h264.Units(buf)
	if units == nil {
		d.log.Debug("no start code in buffer, skipping", "len", len(buf))
		return nil
	}

	var firstErr error
	for _, u := range units {
		d.stats.units.Add(1)

		switch {
		case u.Type == h264.NALTypeSEI:
			d.handleSEI(u, pts)

		case u.Type == h264.NALTypeSPS || u.Type == h264.NALTypePPS:
			changed, err := d.params.Observe(u)
			if err != nil {
				d.stats.formatErrors.Add(1)
				d.log.Warn("format description rejected", "error", err)
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			if changed {
				d.log.Info("format description ready", "codec", d.params.Format().Codec())
			}

		case u.Type.IsSlice():
			d.emitSlice(u, pts)

		default:
			d.log.Debug("ignoring NAL unit", "type", u.Type)
		}
	}
	return firstErr
}

func (d *VideoDecoder) handleSEI(u h264.NALUnit, pts int64) {
	if n := d.captions.extract(u.Payload, pts); n > 0 {
		d.stats.captions.Add(int64(n))
	}

	degrees, ok := d.rotState.Observe(u)
	if !ok {
		return
	}
	d.log.Debug("rotation decoded", "degrees", degrees)
	if d.rotation != nil {
		d.rotation.Rotate(degrees)
	}
}

func (d *VideoDecoder) emitSlice(u h264.NALUnit, pts int64) {
	if !d.Ready() {
		d.stats.framesDropped.Add(1)
		d.log.Debug("dropping slice before stream is ready",
			"type", u.Type,
			"format", d.params.Ready(),
			"sei", d.rotState.Processed)
		return
	}

	data := Reframe(u)
	if data == nil {
		return
	}

	d.stats.framesEmitted.Add(1)
	if d.frames == nil {
		return
	}
	d.frames.OutputFrame(&media.Frame{
		Kind:       media.KindVideo,
		PTS:        pts,
		IsKeyframe: u.Type == h264.NALTypeIDR,
		Data:       data,
		Format:     d.params.Format(),
		SampleRate: media.VideoClockRate,
	})
}
