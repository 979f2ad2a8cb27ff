// Package media defines the frame types that flow from the bitstream
// decoders to their output sinks.
package media

// VideoClockRate is the RTP clock rate used for H.264 presentation times.
const VideoClockRate = 90000

// Kind selects the bitstream decoder variant for a stream.
type Kind int

// Supported stream kinds.
const (
	KindVideo Kind = iota
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// Format is the opaque description a renderer needs to interpret frame
// data. Video formats are built from SPS/PPS; audio formats come from stream
// configuration or an SDP rtpmap.
type Format interface {
	Codec() string
}

// Frame is a single unit of media ready for a decoder. Video frames carry one
// slice in AVC1 framing (4-byte big-endian length prefix); audio frames carry
// the raw buffer as received.
type Frame struct {
	Kind       Kind
	PTS        int64
	IsKeyframe bool
	Data       []byte
	Format     Format
	SampleRate int
}
