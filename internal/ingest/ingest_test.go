package ingest

import (
	"io"
	"sync"
	"testing"
	"time"
)

func TestRegistryRegisterAndGet(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	stream, w := r.Register("test-stream", FormatAnnexB)

	if stream.Key != "test-stream" {
		t.Fatalf("got key %q, want %q", stream.Key, "test-stream")
	}
	if stream.Format != FormatAnnexB {
		t.Fatalf("got format %d, want %d", stream.Format, FormatAnnexB)
	}
	if w == nil {
		t.Fatal("writer is nil")
	}

	got, ok := r.Get("test-stream")
	if !ok {
		t.Fatal("Get returned false for registered stream")
	}
	if got != stream {
		t.Fatal("Get returned different stream pointer")
	}
}

func TestRegistryGetMissing(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	_, ok := r.Get("nonexistent")
	if ok {
		t.Fatal("Get returned true for missing stream")
	}
}

func TestRegistryUnregister(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	r.Register("stream1", FormatAnnexB)

	r.Unregister("stream1")

	_, ok := r.Get("stream1")
	if ok {
		t.Fatal("stream still found after Unregister")
	}
}

func TestRegistryUnregisterMissing(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	// Should not panic.
	r.Unregister("nonexistent")
}

func TestRegistryUnregisterClosesPipe(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	stream, _ := r.Register("stream1", FormatAnnexB)
	r.Unregister("stream1")

	// Reading from the input side should return EOF after pipe is closed.
	buf := make([]byte, 1)
	_, err := stream.Reader().Read(buf)
	if err != io.EOF {
		t.Fatalf("expected EOF after Unregister, got %v", err)
	}
	select {
	case <-stream.Done():
	default:
		t.Fatal("Done not closed after Unregister")
	}
}

func TestRegistryOnStreamCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var calledKey string
	var calledFormat InputFormat

	done := make(chan struct{})
	r := NewRegistry(func(s *Stream) {
		mu.Lock()
		calledKey = s.Key
		calledFormat = s.Format
		mu.Unlock()
		close(done)
	})

	r.Register("cb-stream", FormatRTPDump)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("onStream callback not called within timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	if calledKey != "cb-stream" {
		t.Fatalf("callback got key %q, want %q", calledKey, "cb-stream")
	}
	if calledFormat != FormatRTPDump {
		t.Fatalf("callback got format %v, want %v", calledFormat, FormatRTPDump)
	}
}

func TestStreamWriterCountsBytes(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	stream, w := r.Register("s1", FormatAnnexB)

	go func() {
		w.Write(make([]byte, 100))
		w.Write(make([]byte, 200))
		w.Close()
	}()

	got, err := io.ReadAll(stream.Reader())
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 300 {
		t.Fatalf("read %d bytes, want 300", len(got))
	}

	stats := stream.IngestStats()
	if stats.BytesReceived != 300 {
		t.Fatalf("BytesReceived = %d, want 300", stats.BytesReceived)
	}
	if stats.WriteCount != 2 {
		t.Fatalf("WriteCount = %d, want 2", stats.WriteCount)
	}
}

func TestStreamSetSource(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	stream, _ := r.Register("s1", FormatAnnexB)

	stream.SetSource("camera.h264")

	stats := stream.IngestStats()
	if stats.Source != "camera.h264" {
		t.Fatalf("Source = %q, want %q", stats.Source, "camera.h264")
	}
}

func TestParseInputFormat(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		want    InputFormat
		wantErr bool
	}{
		{"annexb", FormatAnnexB, false},
		{"H264", FormatAnnexB, false},
		{"rtp", FormatRTPDump, false},
		{"mpegts", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseInputFormat(tt.name)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseInputFormat(%q) = (%v, %v), want (%v, err=%v)", tt.name, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestStreamIngestStatsUptime(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	stream, _ := r.Register("s1", FormatAnnexB)

	// Sleep briefly to ensure uptime is measurable.
	time.Sleep(10 * time.Millisecond)

	stats := stream.IngestStats()
	if stats.UptimeMs < 10 {
		t.Fatalf("UptimeMs = %d, expected at least 10", stats.UptimeMs)
	}
	if stats.ConnectedAt == 0 {
		t.Fatal("ConnectedAt is zero")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			key := "stream-" + string(rune('A'+n%26))
			r.Register(key, FormatAnnexB)
			r.Get(key)
			r.Unregister(key)
		}(i)
	}

	wg.Wait()
}
