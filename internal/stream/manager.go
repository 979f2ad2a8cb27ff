// Package stream tracks the live streams being decoded. Each stream owns
// exactly one decoder, and with it that stream's parameter-set cache and
// rotation state; nothing is shared between streams.
package stream

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zsiec/liveframe/internal/decoder"
	"github.com/zsiec/liveframe/internal/media"
)

var (
	ErrStreamExists  = errors.New("stream: already exists")
	ErrUnknownStream = errors.New("stream: unknown stream")
	ErrStreamClosed  = errors.New("stream: closed")
)

// Stream is one live stream and its decoder. Feed calls are serialized per
// stream.
type Stream struct {
	Key       string
	Kind      media.Kind
	StartedAt time.Time

	mu   sync.Mutex
	dec  decoder.BitstreamDecoder
	done chan struct{}
}

// Feed passes one buffer to the stream's decoder.
func (s *Stream) Feed(buf []byte, pts int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.done:
		return fmt.Errorf("%w: %s", ErrStreamClosed, s.Key)
	default:
	}
	return s.dec.Feed(buf, pts)
}

// Done is closed when the stream is removed from its manager.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Stats returns the decoder's counters.
func (s *Stream) Stats() decoder.Stats {
	return s.dec.Stats()
}

// Manager manages the lifecycle of active streams.
type Manager struct {
	log     *slog.Logger
	mu      sync.RWMutex
	streams map[string]*Stream
}

// NewManager creates a new stream manager. If log is nil, slog.Default() is used.
func NewManager(log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		log:     log.With("component", "stream-manager"),
		streams: make(map[string]*Stream),
	}
}

// Create registers a stream of the given kind and builds its decoder from
// opts. An empty key is replaced by a random UUID. Creating a key that is
// already registered returns ErrStreamExists.
func (m *Manager) Create(key string, kind media.Kind, opts decoder.Options) (*Stream, error) {
	if key == "" {
		key = uuid.NewString()
	}
	if opts.Logger == nil {
		opts.Logger = m.log.With("stream", key)
	}

	dec, err := decoder.New(kind, opts)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.streams[key]; ok {
		m.log.Warn("stream already exists, rejecting duplicate", "key", key)
		return nil, fmt.Errorf("%w: %s", ErrStreamExists, key)
	}

	s := &Stream{
		Key:       key,
		Kind:      kind,
		StartedAt: time.Now(),
		dec:       dec,
		done:      make(chan struct{}),
	}
	m.streams[key] = s
	m.log.Info("stream created", "key", key, "kind", kind)
	return s, nil
}

// Get returns the stream registered under key.
func (m *Manager) Get(key string) (*Stream, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.streams[key]
	return s, ok
}

// Feed passes buf to the decoder of the stream registered under key.
func (m *Manager) Feed(key string, buf []byte, pts int64) error {
	s, ok := m.Get(key)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownStream, key)
	}
	return s.Feed(buf, pts)
}

// Remove removes a stream from the manager. Its decoder state is discarded.
func (m *Manager) Remove(key string) {
	m.mu.Lock()
	s, ok := m.streams[key]
	if ok {
		delete(m.streams, key)
	}
	m.mu.Unlock()

	if ok {
		s.mu.Lock()
		close(s.done)
		s.mu.Unlock()
		m.log.Info("stream removed", "key", key)
	}
}

// List returns all active streams.
func (m *Manager) List() []*Stream {
	m.mu.RLock()
	defer m.mu.RUnlock()

	streams := make([]*Stream, 0, len(m.streams))
	for _, s := range m.streams {
		streams = append(streams, s)
	}
	return streams
}
