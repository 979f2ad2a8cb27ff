package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zsiec/ccx"
	"golang.org/x/sync/errgroup"

	"github.com/zsiec/liveframe/internal/decoder"
	"github.com/zsiec/liveframe/internal/ingest"
	"github.com/zsiec/liveframe/internal/media"
	"github.com/zsiec/liveframe/internal/mux"
	"github.com/zsiec/liveframe/internal/pipeline"
	"github.com/zsiec/liveframe/internal/sdp"
	"github.com/zsiec/liveframe/internal/stream"
)

// reframeResult summarizes one input file after its pipeline finished.
type reframeResult struct {
	input    string
	output   string
	rotation float64
	snap     pipeline.Snapshot
	ingest   ingest.IngestStats
}

func (a *app) reframeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reframe FILE...",
		Short: "Convert Annex-B H.264 (or recorded RTP) into length-prefixed slices",
		Long: `Reframe reads each input concurrently and writes the reframed slices of
every input to <out-dir>/<name>.avcc, or <name>.fmp4 with --container fmp4. Slices are only written once the stream's
SPS, PPS and first SEI unit were seen.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.reframe(cmd.Context(), args)
			for _, r := range results {
				if r.output == "" {
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s: %d frames, %d dropped, rotation %v\n",
					r.input, r.output, r.snap.Decoder.FramesEmitted, r.snap.Decoder.FramesDropped, r.rotation)
			}
			return err
		},
	}
	cmd.Flags().String("out-dir", ".", "directory for reframed output")
	cmd.Flags().Float64("frame-rate", 30, "frame rate used to stamp Annex-B input")
	cmd.Flags().String("format", "annexb", "input format: annexb or rtp")
	cmd.Flags().String("container", "avcc", "output container: avcc (length-prefixed slices) or fmp4")
	return cmd
}

// reframe runs one pipeline per input file and returns their results in
// argument order.
func (a *app) reframe(ctx context.Context, files []string) ([]reframeResult, error) {
	format, err := ingest.ParseInputFormat(a.cfg.Format)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(a.cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	mgr := stream.NewManager(a.log)
	registry := ingest.NewRegistry(func(s *ingest.Stream) {
		a.log.Debug("ingest stream registered", "key", s.Key, "format", s.Format)
	})

	results := make([]reframeResult, len(files))
	g, ctx := errgroup.WithContext(ctx)
	for i, path := range files {
		g.Go(func() error {
			r, err := a.reframeFile(ctx, mgr, registry, path, format)
			results[i] = r
			return err
		})
	}
	return results, g.Wait()
}

func (a *app) reframeFile(ctx context.Context, mgr *stream.Manager, registry *ingest.Registry, path string, format ingest.InputFormat) (reframeResult, error) {
	res := reframeResult{input: path}

	in, err := os.Open(path)
	if err != nil {
		return res, err
	}
	defer in.Close()

	key := path
	is, w := registry.Register(key, format)
	defer registry.Unregister(key)
	is.SetSource(path)

	go func() {
		if _, err := io.Copy(w, in); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			a.log.Warn("input copy failed", "stream", key, "error", err)
		}
		w.Close()
	}()

	src, kind, audio, err := a.openSource(is, format)
	if err != nil {
		return res, fmt.Errorf("%s: %w", path, err)
	}

	ext := "." + a.cfg.Container
	if kind == media.KindAudio {
		if a.cfg.Container == "fmp4" {
			return res, fmt.Errorf("%s: fmp4 output requires video input", path)
		}
		ext = ".raw"
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	res.output = filepath.Join(a.cfg.OutDir, name+ext)

	out, err := os.Create(res.output)
	if err != nil {
		res.output = ""
		return res, err
	}
	defer out.Close()
	sink := a.newSink(out)

	log := a.log.With("stream", key)
	st, err := mgr.Create(key, kind, decoder.Options{
		Logger: log,
		Frames: sink,
		Rotation: decoder.RotationSinkFunc(func(degrees float64) {
			res.rotation = degrees
			log.Info("display rotation", "degrees", degrees)
		}),
		Captions: decoder.CaptionSinkFunc(func(f *ccx.CaptionFrame) {
			log.Info("caption", "channel", f.Channel, "pts", f.PTS, "text", f.Text)
		}),
		AudioFormat: audio,
	})
	if err != nil {
		return res, err
	}
	defer mgr.Remove(key)

	p := pipeline.New(key, src, st, a.log)
	p.SetProtocol(format.String())
	runErr := p.Run(ctx)

	res.snap = p.Snapshot()
	res.ingest = is.IngestStats()
	log.Info("stream finished",
		"frames", res.snap.Decoder.FramesEmitted,
		"dropped", res.snap.Decoder.FramesDropped,
		"captions", res.snap.Decoder.Captions,
		"feed_errors", res.snap.FeedErrors,
		"bytes_in", res.ingest.BytesReceived,
	)

	sinkErr := sink.Close()
	if runErr != nil {
		return res, runErr
	}
	if sinkErr != nil {
		return res, fmt.Errorf("write %s: %w", res.output, sinkErr)
	}
	return res, nil
}

// openSource wraps the stream's reader for its input format. Recorded RTP
// whose codec header names an audio encoding is decoded as audio.
func (a *app) openSource(is *ingest.Stream, format ingest.InputFormat) (pipeline.Source, media.Kind, decoder.AudioFormat, error) {
	switch format {
	case ingest.FormatRTPDump:
		rs, err := ingest.NewRTPSource(is.Reader(), "")
		if err != nil {
			return nil, 0, decoder.AudioFormat{}, err
		}
		codec := rs.Dump().Header("codec")
		mediaType, encoding, ok := strings.Cut(codec, "/")
		if !ok || !strings.EqualFold(mediaType, "audio") {
			return rs, media.KindVideo, decoder.AudioFormat{}, nil
		}
		clock, err := strconv.Atoi(rs.Dump().Header("clockRate"))
		if err != nil {
			return nil, 0, decoder.AudioFormat{}, fmt.Errorf("rtp dump: clockRate: %w", err)
		}
		channels, err := strconv.Atoi(rs.Dump().Header("channels"))
		if err != nil {
			channels = sdp.Unset
		}
		af, err := decoder.AudioFormatFromRtpMap(sdp.NewRtpMap(0, encoding, clock, channels))
		if err != nil {
			return nil, 0, decoder.AudioFormat{}, err
		}
		return rs, media.KindAudio, af, nil

	default:
		return ingest.NewAnnexBSource(is.Reader(), a.cfg.FrameRate), media.KindVideo, decoder.AudioFormat{}, nil
	}
}

// outputSink is a FrameSink backed by a file that must be closed once the
// stream ends.
type outputSink interface {
	decoder.FrameSink
	Close() error
}

func (a *app) newSink(w io.Writer) outputSink {
	bw := bufio.NewWriter(w)
	if a.cfg.Container == "fmp4" {
		return &fmp4Sink{FMP4Writer: mux.NewFMP4Writer(bw, a.log), bw: bw}
	}
	return &rawSink{w: bw}
}

// rawSink writes frame payloads back to back. The first write error is kept
// and later frames are discarded.
type rawSink struct {
	w   *bufio.Writer
	err error
}

func (s *rawSink) OutputFrame(f *media.Frame) {
	if s.err != nil {
		return
	}
	_, s.err = s.w.Write(f.Data)
}

func (s *rawSink) Close() error {
	if s.err != nil {
		return s.err
	}
	return s.w.Flush()
}

type fmp4Sink struct {
	*mux.FMP4Writer
	bw *bufio.Writer
}

func (s *fmp4Sink) Close() error {
	if err := s.FMP4Writer.Close(); err != nil {
		return err
	}
	return s.bw.Flush()
}
