package ingest

import (
	"bufio"
	"io"

	"github.com/zsiec/liveframe/internal/h264"
	"github.com/zsiec/liveframe/internal/media"
)

// MaxUnitSize bounds a single NAL unit read from an Annex-B stream.
const MaxUnitSize = 8 << 20

// SplitAnnexB is a bufio.SplitFunc that yields one NAL unit per token,
// start code included. Bytes before the first start code are discarded.
func SplitAnnexB(data []byte, atEOF bool) (int, []byte, error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	first := h264.FindStartCode(data, 0)
	if !first.Found() {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a possible partial start code at the tail.
		if len(data) > 3 {
			return len(data) - 3, nil, nil
		}
		return 0, nil, nil
	}
	if first.First > 0 {
		return first.First, nil, nil
	}

	next := h264.FindStartCode(data, first.Last)
	if next.Found() {
		return next.First, data[:next.First], nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// AnnexBSource reads NAL units from an Annex-B byte stream and stamps them
// with presentation times from a fixed frame rate. The clock advances on
// every slice that starts a new picture (first_mb_in_slice == 0).
type AnnexBSource struct {
	sc      *bufio.Scanner
	step    int64
	pts     int64
	started bool
}

// NewAnnexBSource returns a source over r. frameRate must be positive.
func NewAnnexBSource(r io.Reader, frameRate float64) *AnnexBSource {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxUnitSize)
	sc.Split(SplitAnnexB)
	if frameRate <= 0 {
		frameRate = 30
	}
	return &AnnexBSource{
		sc:   sc,
		step: int64(float64(media.VideoClockRate) / frameRate),
	}
}

// Next returns the next NAL unit, start code included, and its presentation
// time in 90 kHz units. The buffer is valid until the following call. It
// returns io.EOF at the end of the stream.
func (s *AnnexBSource) Next() ([]byte, int64, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return nil, 0, err
		}
		return nil, 0, io.EOF
	}
	unit := s.sc.Bytes()

	sc := h264.FindStartCode(unit, 0)
	if sc.Found() && len(unit) > sc.Last+1 {
		t := h264.Classify(unit[sc.Last])
		if t.IsSlice() && unit[sc.Last+1]&0x80 != 0 {
			if s.started {
				s.pts += s.step
			}
			s.started = true
		}
	}
	return unit, s.pts, nil
}
