// Package avc builds decoder format descriptions from H.264 parameter sets
// and converts Annex-B NAL units to AVC1 length-prefixed framing.
package avc

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bluenviron/mediacommon/v2/pkg/codecs/h264"
)

// NALLengthSize is the size of the big-endian length header written in
// front of every NAL unit. DecoderConfig advertises it via lengthSizeMinusOne.
const NALLengthSize = 4

var (
	errSPSTooShort = errors.New("avc: SPS too short")
	errPPSEmpty    = errors.New("avc: PPS empty")
)

// FormatDescription describes an H.264 stream for a decoder. It is built once
// per SPS/PPS pair and shared by every frame emitted with that pair.
type FormatDescription struct {
	SPS           []byte
	PPS           []byte
	Width         int
	Height        int
	DecoderConfig []byte // AVCDecoderConfigurationRecord
	codec         string
}

// Codec returns the RFC 6381 codec parameter string (e.g. "avc1.42E01E").
func (f *FormatDescription) Codec() string {
	return f.codec
}

// BuildFormat validates sps and pps (raw NAL units including the header
// byte, without start codes) and returns a FormatDescription. The inputs are
// copied.
func BuildFormat(sps, pps []byte) (*FormatDescription, error) {
	if len(sps) < 4 {
		return nil, errSPSTooShort
	}
	if len(pps) == 0 {
		return nil, errPPSEmpty
	}

	var info h264.SPS
	if err := info.Unmarshal(sps); err != nil {
		return nil, fmt.Errorf("avc: parse SPS: %w", err)
	}

	f := &FormatDescription{
		SPS:    append([]byte(nil), sps...),
		PPS:    append([]byte(nil), pps...),
		Width:  info.Width(),
		Height: info.Height(),
		codec:  fmt.Sprintf("avc1.%02X%02X%02X", sps[1], sps[2], sps[3]),
	}
	f.DecoderConfig = BuildDecoderConfig(f.SPS, f.PPS)
	return f, nil
}

// BuildDecoderConfig builds an AVCDecoderConfigurationRecord
// (ISO 14496-15 5.2.4.1.1) from raw SPS and PPS NAL data (without start
// codes). The SPS must include the NAL header byte (0x67).
func BuildDecoderConfig(sps, pps []byte) []byte {
	if len(sps) < 4 || len(pps) == 0 {
		return nil
	}

	buf := make([]byte, 0, 11+len(sps)+len(pps))
	buf = append(buf, 1)      // configurationVersion
	buf = append(buf, sps[1]) // AVCProfileIndication
	buf = append(buf, sps[2]) // profile_compatibility
	buf = append(buf, sps[3]) // AVCLevelIndication
	buf = append(buf, 0xFC|(NALLengthSize-1))
	buf = append(buf, 0xE1) // numOfSequenceParameterSets = 1 | reserved 0xE0

	buf = append(buf, byte(len(sps)>>8), byte(len(sps)))
	buf = append(buf, sps...)

	buf = append(buf, 1) // numOfPictureParameterSets
	buf = append(buf, byte(len(pps)>>8), byte(len(pps)))
	buf = append(buf, pps...)

	return buf
}

// LengthPrefix returns nalu preceded by its 4-byte big-endian length. nalu
// must not include a start code. An empty nalu yields nil.
func LengthPrefix(nalu []byte) []byte {
	if len(nalu) == 0 {
		return nil
	}
	out := make([]byte, NALLengthSize+len(nalu))
	binary.BigEndian.PutUint32(out, uint32(len(nalu)))
	copy(out[NALLengthSize:], nalu)
	return out
}

// SplitLengthPrefixed walks AVC1-framed data and returns the NAL units it
// contains. It fails if a length header runs past the end of data.
func SplitLengthPrefixed(data []byte) ([][]byte, error) {
	var nalus [][]byte
	for len(data) > 0 {
		if len(data) < NALLengthSize {
			return nil, fmt.Errorf("avc: truncated length header (%d bytes)", len(data))
		}
		n := int(binary.BigEndian.Uint32(data))
		data = data[NALLengthSize:]
		if n > len(data) {
			return nil, fmt.Errorf("avc: NAL length %d exceeds remaining %d bytes", n, len(data))
		}
		nalus = append(nalus, data[:n])
		data = data[n:]
	}
	return nalus, nil
}
