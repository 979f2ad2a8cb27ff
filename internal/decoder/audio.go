package decoder

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/zsiec/liveframe/internal/media"
	"github.com/zsiec/liveframe/internal/sdp"
)

// AudioFormat describes a pre-framed audio stream.
type AudioFormat struct {
	Encoding   string
	SampleRate int
	Channels   int
}

// DefaultAudioFormat is A-law at 16 kHz, mono.
var DefaultAudioFormat = AudioFormat{Encoding: "PCMA", SampleRate: 16000, Channels: 1}

// Codec returns the lower-case encoding name.
func (f AudioFormat) Codec() string {
	return strings.ToLower(f.Encoding)
}

func (f AudioFormat) isZero() bool {
	return f == AudioFormat{}
}

// supportedAudio lists the encodings an AudioDecoder can pass through,
// keyed by upper-case rtpmap encoding name.
var supportedAudio = map[string]bool{
	"PCMA":   true,
	"PCMU":   true,
	"AMR-WB": true,
	"L16":    true,
}

// AudioFormatFromRtpMap derives an audio format from a negotiated rtpmap.
// Encodings are matched case-insensitively; a missing channel count means
// mono.
func AudioFormatFromRtpMap(m sdp.RtpMapAttribute) (AudioFormat, error) {
	enc := strings.ToUpper(m.Encoding())
	if !supportedAudio[enc] {
		return AudioFormat{}, fmt.Errorf("%w: %q", ErrUnsupportedEncoding, m.Encoding())
	}
	if m.ClockRate() <= 0 {
		return AudioFormat{}, fmt.Errorf("%w: %q clock rate %d", ErrUnsupportedEncoding, m.Encoding(), m.ClockRate())
	}
	channels := m.EncodingParameters()
	if channels <= 0 {
		channels = 1
	}
	return AudioFormat{Encoding: enc, SampleRate: m.ClockRate(), Channels: channels}, nil
}

// AudioDecoder forwards pre-framed audio buffers as frames. Every non-empty
// buffer is one frame.
type AudioDecoder struct {
	log    *slog.Logger
	frames FrameSink
	format AudioFormat

	stats counters
}

// NewAudioDecoder creates an audio decoder for opts.AudioFormat, or
// DefaultAudioFormat if unset.
func NewAudioDecoder(opts Options) *AudioDecoder {
	format := opts.AudioFormat
	if format.isZero() {
		format = DefaultAudioFormat
	}
	return &AudioDecoder{
		log:    opts.logger("audio-decoder"),
		frames: opts.Frames,
		format: format,
	}
}

// Kind returns media.KindAudio.
func (d *AudioDecoder) Kind() media.Kind { return media.KindAudio }

// Format returns the decoder's audio format.
func (d *AudioDecoder) Format() AudioFormat { return d.format }

// Stats returns a snapshot of the decoder's counters.
func (d *AudioDecoder) Stats() Stats { return d.stats.snapshot() }

// Feed emits buf as one audio frame. The buffer is copied.
func (d *AudioDecoder) Feed(buf []byte, pts int64) error {
	if len(buf) == 0 {
		return nil
	}
	d.stats.buffers.Add(1)
	d.stats.framesEmitted.Add(1)

	if d.frames == nil {
		return nil
	}
	data := make([]byte, len(buf))
	copy(data, buf)
	d.frames.OutputFrame(&media.Frame{
		Kind:       media.KindAudio,
		PTS:        pts,
		IsKeyframe: true,
		Data:       data,
		Format:     d.format,
		SampleRate: d.format.SampleRate,
	})
	return nil
}
