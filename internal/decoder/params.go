package decoder

import (
	"bytes"
	"fmt"

	"github.com/zsiec/liveframe/internal/avc"
	"github.com/zsiec/liveframe/internal/h264"
	"github.com/zsiec/liveframe/internal/media"
)

// FormatBuilder constructs a decoder format description from raw SPS and PPS
// NAL units (header byte first, no start code). Implementations must not
// retain the slices.
type FormatBuilder interface {
	BuildFormat(sps, pps []byte) (media.Format, error)
}

// FormatBuilderFunc adapts a function to FormatBuilder.
type FormatBuilderFunc func(sps, pps []byte) (media.Format, error)

// BuildFormat calls f(sps, pps).
func (f FormatBuilderFunc) BuildFormat(sps, pps []byte) (media.Format, error) {
	return f(sps, pps)
}

// DefaultFormatBuilder builds an *avc.FormatDescription.
var DefaultFormatBuilder FormatBuilder = FormatBuilderFunc(func(sps, pps []byte) (media.Format, error) {
	f, err := avc.BuildFormat(sps, pps)
	if err != nil {
		return nil, err
	}
	return f, nil
})

// ParameterSetCache holds the most recent SPS and PPS of one stream and the
// format description built from them. It becomes ready once both parameter
// sets were seen and the FormatBuilder accepted them.
type ParameterSetCache struct {
	builder FormatBuilder

	sps []byte
	pps []byte

	format   media.Format
	builtSPS []byte
	builtPPS []byte
}

// NewParameterSetCache returns an empty cache. If builder is nil,
// DefaultFormatBuilder is used.
func NewParameterSetCache(builder FormatBuilder) *ParameterSetCache {
	if builder == nil {
		builder = DefaultFormatBuilder
	}
	return &ParameterSetCache{builder: builder}
}

// Observe records u if it is an SPS or PPS unit. When both parameter sets are
// present and differ from the pair behind the current format (or no format
// exists yet), the format is rebuilt. It reports whether the cache's format
// changed: it became ready, was replaced, or was dropped by a failed build.
// A failed build leaves the cache not ready and returns an error wrapping
// ErrFormatDescription; the next SPS or PPS retries the build.
func (c *ParameterSetCache) Observe(u h264.NALUnit) (bool, error) {
	switch u.Type {
	case h264.NALTypeSPS:
		if !bytes.Equal(c.sps, u.Payload) {
			c.sps = append(c.sps[:0:0], u.Payload...)
		}
	case h264.NALTypePPS:
		if !bytes.Equal(c.pps, u.Payload) {
			c.pps = append(c.pps[:0:0], u.Payload...)
		}
	default:
		return false, nil
	}

	if c.sps == nil || c.pps == nil {
		return false, nil
	}
	if c.format != nil && bytes.Equal(c.builtSPS, c.sps) && bytes.Equal(c.builtPPS, c.pps) {
		return false, nil
	}

	wasReady := c.format != nil
	format, err := c.builder.BuildFormat(c.sps, c.pps)
	if err != nil {
		c.format, c.builtSPS, c.builtPPS = nil, nil, nil
		return wasReady, fmt.Errorf("%w: %w", ErrFormatDescription, err)
	}

	c.format, c.builtSPS, c.builtPPS = format, c.sps, c.pps
	return true, nil
}

// Ready reports whether a format description is available.
func (c *ParameterSetCache) Ready() bool {
	return c.format != nil
}

// Format returns the current format description, or nil if not ready.
func (c *ParameterSetCache) Format() media.Format {
	return c.format
}

// SPS returns the most recently observed SPS, or nil.
func (c *ParameterSetCache) SPS() []byte {
	return c.sps
}

// PPS returns the most recently observed PPS, or nil.
func (c *ParameterSetCache) PPS() []byte {
	return c.pps
}
