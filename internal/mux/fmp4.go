// Package mux writes reframed video into container files.
package mux

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/fmp4/seekablebuffer"
	"github.com/bluenviron/mediacommon/v2/pkg/formats/mp4"

	"github.com/zsiec/liveframe/internal/avc"
	"github.com/zsiec/liveframe/internal/media"
)

const (
	videoTrackID = 1
	// defaultDuration is used for the last sample, whose successor is
	// unknown.
	defaultDuration = media.VideoClockRate / 30
)

var (
	ErrUnsupportedFormat = errors.New("mux: unsupported video format")
	ErrClosed            = errors.New("mux: writer closed")
)

type pendingSample struct {
	payload []byte
	pts     int64
	key     bool
}

// FMP4Writer is a decoder FrameSink that writes a single-track fragmented
// MP4: one init segment built from the first frame's format description,
// then one fragment per picture. Slices sharing a presentation time form one
// sample. Frames before the first keyframe are skipped.
//
// Write errors are kept; once one occurs later frames are discarded and Close
// returns it.
type FMP4Writer struct {
	w   io.Writer
	log *slog.Logger

	format  *avc.FormatDescription
	pending *pendingSample
	basePTS int64
	seq     uint32

	samples int
	skipped int
	closed  bool
	err     error
}

// NewFMP4Writer returns a writer that emits to w. If log is nil,
// slog.Default() is used.
func NewFMP4Writer(w io.Writer, log *slog.Logger) *FMP4Writer {
	if log == nil {
		log = slog.Default()
	}
	return &FMP4Writer{
		w:   w,
		log: log.With("component", "fmp4"),
		seq: 1,
	}
}

// OutputFrame implements decoder.FrameSink.
func (m *FMP4Writer) OutputFrame(f *media.Frame) {
	if m.err != nil {
		return
	}
	if m.closed {
		m.err = ErrClosed
		return
	}
	if f.Kind != media.KindVideo {
		m.log.Debug("ignoring non-video frame", "kind", f.Kind)
		return
	}

	if m.format == nil {
		if !f.IsKeyframe {
			m.skipped++
			return
		}
		format, ok := f.Format.(*avc.FormatDescription)
		if !ok {
			m.err = fmt.Errorf("%w: %T", ErrUnsupportedFormat, f.Format)
			return
		}
		if m.err = m.writeInit(format); m.err != nil {
			return
		}
		m.format = format
		m.basePTS = f.PTS
	} else if format, ok := f.Format.(*avc.FormatDescription); ok && format != m.format {
		m.log.Warn("format changed mid-stream, keeping initial track description",
			"codec", format.Codec(), "width", format.Width, "height", format.Height)
	}

	if m.pending != nil && m.pending.pts == f.PTS {
		m.pending.payload = append(m.pending.payload, f.Data...)
		m.pending.key = m.pending.key || f.IsKeyframe
		return
	}

	if m.pending != nil {
		if m.err = m.writeSample(f.PTS - m.pending.pts); m.err != nil {
			return
		}
	}
	m.pending = &pendingSample{
		payload: append([]byte(nil), f.Data...),
		pts:     f.PTS,
		key:     f.IsKeyframe,
	}
}

// Close writes the last pending sample. It does not close the underlying
// writer.
func (m *FMP4Writer) Close() error {
	if m.closed {
		return m.err
	}
	m.closed = true
	if m.err == nil && m.pending != nil {
		m.err = m.writeSample(defaultDuration)
	}
	m.log.Debug("fmp4 writer closed", "samples", m.samples, "skipped", m.skipped)
	return m.err
}

// Samples returns the number of samples written so far.
func (m *FMP4Writer) Samples() int { return m.samples }

func (m *FMP4Writer) writeInit(format *avc.FormatDescription) error {
	init := &fmp4.Init{
		Tracks: []*fmp4.InitTrack{{
			ID:        videoTrackID,
			TimeScale: media.VideoClockRate,
			Codec: &mp4.CodecH264{
				SPS: format.SPS,
				PPS: format.PPS,
			},
		}},
	}

	var buf seekablebuffer.Buffer
	if err := init.Marshal(&buf); err != nil {
		return fmt.Errorf("mux: marshal init segment: %w", err)
	}
	if _, err := m.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("mux: write init segment: %w", err)
	}
	m.log.Info("fmp4 init segment written", "codec", format.Codec(), "width", format.Width, "height", format.Height)
	return nil
}

func (m *FMP4Writer) writeSample(duration int64) error {
	if duration <= 0 {
		duration = defaultDuration
	}
	s := m.pending
	m.pending = nil

	baseTime := s.pts - m.basePTS
	if baseTime < 0 {
		baseTime = 0
	}
	part := &fmp4.Part{
		SequenceNumber: m.seq,
		Tracks: []*fmp4.PartTrack{{
			ID:       videoTrackID,
			BaseTime: uint64(baseTime),
			Samples: []*fmp4.Sample{{
				Duration:        uint32(duration),
				IsNonSyncSample: !s.key,
				Payload:         s.payload,
			}},
		}},
	}

	var buf seekablebuffer.Buffer
	if err := part.Marshal(&buf); err != nil {
		return fmt.Errorf("mux: marshal fragment %d: %w", m.seq, err)
	}
	if _, err := m.w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("mux: write fragment %d: %w", m.seq, err)
	}
	m.seq++
	m.samples++
	return nil
}
