// Package pipeline drives one stream: it reads buffers from an ingest source,
// feeds them to the stream's decoder and keeps forwarding counters.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/zsiec/liveframe/internal/decoder"
)

// Source yields decoder input buffers with their presentation times. Next
// returns io.EOF when the input is exhausted. The returned buffer may be
// reused by the following call.
type Source interface {
	Next() ([]byte, int64, error)
}

// Feeder is the decoding side of a stream. *stream.Stream satisfies it.
type Feeder interface {
	Feed(buf []byte, pts int64) error
	Stats() decoder.Stats
}

// Snapshot is a point-in-time view of a pipeline's health.
type Snapshot struct {
	Timestamp  int64         `json:"timestamp"`
	UptimeMs   int64         `json:"uptimeMs"`
	Protocol   string        `json:"protocol,omitempty"`
	BuffersFed int64         `json:"buffersFed"`
	BytesFed   int64         `json:"bytesFed"`
	FeedErrors int64         `json:"feedErrors"`
	LastPTS    int64         `json:"lastPts"`
	Decoder    decoder.Stats `json:"decoder"`
}

// readAhead is the number of buffers the reader may queue ahead of the
// decoder.
const readAhead = 16

type item struct {
	buf []byte
	pts int64
}

// Pipeline bridges a single stream's Source and Feeder.
type Pipeline struct {
	log       *slog.Logger
	src       Source
	dst       Feeder
	streamKey string
	startTime time.Time
	protocol  string

	buffersFed atomic.Int64
	bytesFed   atomic.Int64
	feedErrors atomic.Int64
	lastPTS    atomic.Int64
}

// New creates a Pipeline that reads from src and feeds dst. If log is nil,
// slog.Default() is used.
func New(streamKey string, src Source, dst Feeder, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		log:       log.With("component", "pipeline", "stream", streamKey),
		src:       src,
		dst:       dst,
		streamKey: streamKey,
		startTime: time.Now(),
	}
}

// SetProtocol records the input format name for the snapshot.
func (p *Pipeline) SetProtocol(proto string) {
	p.protocol = proto
}

// Snapshot returns the pipeline's forwarding counters together with the
// decoder's own counters.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		Timestamp:  time.Now().UnixMilli(),
		UptimeMs:   time.Since(p.startTime).Milliseconds(),
		Protocol:   p.protocol,
		BuffersFed: p.buffersFed.Load(),
		BytesFed:   p.bytesFed.Load(),
		FeedErrors: p.feedErrors.Load(),
		LastPTS:    p.lastPTS.Load(),
		Decoder:    p.dst.Stats(),
	}
}

// Run reads the source until it is exhausted or ctx is cancelled. Decoder
// errors are logged and counted but do not stop the stream; a read error
// other than io.EOF is returned.
func (p *Pipeline) Run(ctx context.Context) error {
	items := make(chan item, readAhead)
	readErr := make(chan error, 1)

	go func() {
		defer close(items)
		for {
			buf, pts, err := p.src.Next()
			if err != nil {
				readErr <- err
				return
			}
			it := item{buf: append([]byte(nil), buf...), pts: pts}
			select {
			case items <- it:
			case <-ctx.Done():
				readErr <- ctx.Err()
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case it, ok := <-items:
			if !ok {
				err := <-readErr
				if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
					p.log.Info("source finished", "buffers", p.buffersFed.Load())
					return nil
				}
				return fmt.Errorf("pipeline %s: read: %w", p.streamKey, err)
			}
			p.feed(it)
		}
	}
}

func (p *Pipeline) feed(it item) {
	if err := p.dst.Feed(it.buf, it.pts); err != nil {
		p.feedErrors.Add(1)
		p.log.Warn("decoder rejected buffer", "pts", it.pts, "error", err)
	}
	p.buffersFed.Add(1)
	p.bytesFed.Add(int64(len(it.buf)))
	p.lastPTS.Store(it.pts)
}
