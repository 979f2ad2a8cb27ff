package ingest

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/pion/rtp"
	"github.com/pion/rtp/codecs"
)

// MaxPacketSize bounds one recorded RTP packet.
const MaxPacketSize = 1 << 16

var ErrPacketTooLarge = errors.New("ingest: rtp packet exceeds maximum size")

// RTPDumpReader reads a recorded RTP session: optional "# key=value" header
// lines (codec, clockRate, fmtp) followed by packets, each prefixed with a
// 4-byte big-endian length.
type RTPDumpReader struct {
	r      *bufio.Reader
	header map[string]string
	buf    []byte
}

// NewRTPDumpReader consumes the header lines of r and returns a reader
// positioned at the first packet.
func NewRTPDumpReader(r io.Reader) (*RTPDumpReader, error) {
	d := &RTPDumpReader{
		r:      bufio.NewReader(r),
		header: make(map[string]string),
	}
	for {
		b, err := d.r.Peek(1)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if b[0] != '#' {
			break
		}
		line, err := d.r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		k, v, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(line, "#")), "=")
		if ok {
			d.header[strings.TrimSpace(k)] = strings.TrimSpace(v)
		}
		if err == io.EOF {
			break
		}
	}
	return d, nil
}

// Header returns a header value such as "codec" or "clockRate".
func (d *RTPDumpReader) Header(key string) string {
	return d.header[key]
}

// Next reads and parses the next packet. It returns io.EOF after the last
// complete packet.
func (d *RTPDumpReader) Next() (*rtp.Packet, error) {
	var size [4]byte
	if _, err := io.ReadFull(d.r, size[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("ingest: truncated packet length: %w", err)
		}
		return nil, err
	}
	n := binary.BigEndian.Uint32(size[:])
	if n > MaxPacketSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrPacketTooLarge, n)
	}

	if cap(d.buf) < int(n) {
		d.buf = make([]byte, n)
	}
	d.buf = d.buf[:n]
	if _, err := io.ReadFull(d.r, d.buf); err != nil {
		return nil, fmt.Errorf("ingest: truncated packet: %w", err)
	}

	pkt := &rtp.Packet{}
	if err := pkt.Unmarshal(d.buf); err != nil {
		return nil, fmt.Errorf("ingest: parse rtp packet: %w", err)
	}
	return pkt, nil
}

// RTPSource turns recorded RTP packets into decoder buffers. H.264 payloads
// are depacketized to Annex-B (single NAL, STAP-A and FU-A); other payloads
// pass through unchanged. Presentation times are RTP timestamps relative to
// the first packet, with 32-bit wraparound unrolled.
type RTPSource struct {
	log  *slog.Logger
	dump *RTPDumpReader
	h264 *codecs.H264Packet

	skipped int64

	first   uint32
	last    uint32
	wraps   int64
	started bool
}

// NewRTPSource reads from a recorded RTP session. encoding selects the
// payload handling; an empty encoding is taken from the dump's codec header.
func NewRTPSource(r io.Reader, encoding string) (*RTPSource, error) {
	dump, err := NewRTPDumpReader(r)
	if err != nil {
		return nil, err
	}
	if encoding == "" {
		encoding = dump.Header("codec")
	}

	s := &RTPSource{
		log:  slog.Default().With("component", "rtp-source"),
		dump: dump,
	}
	if isH264(encoding) {
		s.h264 = &codecs.H264Packet{}
	}
	return s, nil
}

// Dump exposes the underlying reader, for its header values.
func (s *RTPSource) Dump() *RTPDumpReader {
	return s.dump
}

// Skipped returns the number of packets dropped because they could not be
// depacketized.
func (s *RTPSource) Skipped() int64 {
	return s.skipped
}

// Next returns the next non-empty decoder buffer. Fragmented NAL units are
// returned once their last fragment arrives. Packets that cannot be
// depacketized, such as empty keepalives, are skipped.
func (s *RTPSource) Next() ([]byte, int64, error) {
	for {
		pkt, err := s.dump.Next()
		if err != nil {
			return nil, 0, err
		}

		payload := pkt.Payload
		if s.h264 != nil {
			payload, err = s.h264.Unmarshal(pkt.Payload)
			if err != nil {
				s.skipped++
				s.log.Debug("skipping undecodable h264 packet",
					"seq", pkt.SequenceNumber, "size", len(pkt.Payload), "error", err)
				continue
			}
		}
		if len(payload) == 0 {
			continue
		}
		return payload, s.timestamp(pkt.Timestamp), nil
	}
}

func (s *RTPSource) timestamp(ts uint32) int64 {
	if !s.started {
		s.first, s.last, s.started = ts, ts, true
		return 0
	}
	if ts < s.last && s.last-ts > 1<<31 {
		s.wraps++
	}
	s.last = ts
	return s.wraps<<32 + int64(ts) - int64(s.first)
}

func isH264(encoding string) bool {
	e := strings.ToLower(encoding)
	return e == "h264" || strings.HasSuffix(e, "/h264")
}
