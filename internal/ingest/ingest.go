// Package ingest turns raw input bytes into decoder buffers. A Registry
// hands each stream a pipe: a feeder writes the source bytes into it and the
// stream's pipeline reads them back through an AnnexBSource or RTPSource.
package ingest

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// InputFormat identifies how an ingested byte stream is framed.
type InputFormat int

// Supported input formats.
const (
	// FormatAnnexB is a raw H.264 elementary stream with start codes.
	FormatAnnexB InputFormat = iota
	// FormatRTPDump is a recorded RTP session: optional "# key=value"
	// header lines followed by packets, each prefixed with a 4-byte
	// big-endian length.
	FormatRTPDump
)

func (f InputFormat) String() string {
	switch f {
	case FormatAnnexB:
		return "annexb"
	case FormatRTPDump:
		return "rtp"
	default:
		return fmt.Sprintf("InputFormat(%d)", int(f))
	}
}

// ParseInputFormat maps a format name ("annexb", "h264", "rtp") to an
// InputFormat.
func ParseInputFormat(name string) (InputFormat, error) {
	switch strings.ToLower(name) {
	case "annexb", "h264", "264":
		return FormatAnnexB, nil
	case "rtp", "rtpdump":
		return FormatRTPDump, nil
	default:
		return 0, fmt.Errorf("ingest: unknown input format %q", name)
	}
}

// IngestStats captures byte-level counters for one ingest stream.
type IngestStats struct {
	BytesReceived int64  `json:"bytesReceived"`
	WriteCount    int64  `json:"writeCount"`
	ConnectedAt   int64  `json:"connectedAt"`
	UptimeMs      int64  `json:"uptimeMs"`
	Source        string `json:"source"`
}

// Stream is one registered ingest stream. Bytes written to the writer
// returned by Register are read back from Reader.
type Stream struct {
	Key       string
	StartedAt time.Time
	Format    InputFormat
	input     *io.PipeReader
	pw        *io.PipeWriter
	done      chan struct{}

	bytesReceived atomic.Int64
	writeCount    atomic.Int64
	source        atomic.Value
}

// Reader returns the read side of the stream's pipe.
func (s *Stream) Reader() io.Reader {
	return s.input
}

// Done is closed when the stream is unregistered.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// RecordWrite increments the byte and write counters.
func (s *Stream) RecordWrite(n int) {
	s.bytesReceived.Add(int64(n))
	s.writeCount.Add(1)
}

// SetSource records where the stream's bytes come from, for diagnostics.
func (s *Stream) SetSource(src string) {
	s.source.Store(src)
}

// IngestStats returns a snapshot of the stream's counters.
func (s *Stream) IngestStats() IngestStats {
	src, _ := s.source.Load().(string)
	return IngestStats{
		BytesReceived: s.bytesReceived.Load(),
		WriteCount:    s.writeCount.Load(),
		ConnectedAt:   s.StartedAt.UnixMilli(),
		UptimeMs:      time.Since(s.StartedAt).Milliseconds(),
		Source:        src,
	}
}

// streamWriter counts bytes on their way into the pipe. Close ends the
// reader with io.EOF.
type streamWriter struct {
	s *Stream
}

func (w streamWriter) Write(p []byte) (int, error) {
	n, err := w.s.pw.Write(p)
	if n > 0 {
		w.s.RecordWrite(n)
	}
	return n, err
}

func (w streamWriter) Close() error {
	return w.s.pw.Close()
}

// Registry tracks ingest streams by key and dispatches new streams to the
// onStream callback.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*Stream

	onStream func(s *Stream)
}

// NewRegistry creates a Registry. onStream, if set, is invoked
// asynchronously for every registered stream.
func NewRegistry(onStream func(s *Stream)) *Registry {
	return &Registry{
		streams:  make(map[string]*Stream),
		onStream: onStream,
	}
}

// Register creates an ingest stream and returns it with the writer its
// feeder should write into. Closing the writer signals end of input.
func (r *Registry) Register(key string, format InputFormat) (*Stream, io.WriteCloser) {
	pr, pw := io.Pipe()

	stream := &Stream{
		Key:       key,
		StartedAt: time.Now(),
		Format:    format,
		input:     pr,
		pw:        pw,
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	r.streams[key] = stream
	r.mu.Unlock()

	if r.onStream != nil {
		go r.onStream(stream)
	}

	return stream, streamWriter{s: stream}
}

// Unregister removes a stream by key, closing its pipe and signaling Done.
// A reader still blocked on the pipe receives io.EOF.
func (r *Registry) Unregister(key string) {
	r.mu.Lock()
	stream, ok := r.streams[key]
	if ok {
		delete(r.streams, key)
	}
	r.mu.Unlock()

	if ok {
		stream.pw.Close()
		close(stream.done)
	}
}

// Get returns the Stream for the given key, or false if not found.
func (r *Registry) Get(key string) (*Stream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[key]
	return s, ok
}
