package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zsiec/teletextdec/internal/config"
	"github.com/zsiec/teletextdec/internal/ingest"
	srtingest "github.com/zsiec/teletextdec/internal/ingest/srt"
	"github.com/zsiec/teletextdec/internal/output"
	"github.com/zsiec/teletextdec/internal/session"
)

var version = "dev"

func main() {
	cfg, err := config.Load("teletextdec", os.Args[1:], os.Getenv, os.Stderr)
	if errors.Is(err, config.ErrHelp) {
		help()
		os.Exit(0)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "teletextdec:", err)
		os.Exit(2)
	}

	level := slog.LevelInfo
	if cfg.Debug || os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	slog.Info("teletextdec starting",
		"version", version,
		"input", cfg.Input,
		"page", cfg.Page.String(),
		"subpage", cfg.Subpage.String(),
	)

	if err := run(ctx, cfg); err != nil {
		slog.Error("decoder error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	g, ctx := errgroup.WithContext(ctx)
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	format := ingest.FormatMPEGTS
	if cfg.PacketSize == 204 {
		format = ingest.FormatMPEGTS204
	}

	a := &app{cfg: cfg, sessions: make(map[string]*session.Session)}

	// A listener serves any number of publishers; every other input is a
	// single stream whose end ends the program.
	single := !isListener(cfg.Input)
	streams := make(chan *ingest.Stream, 16)
	a.registry = ingest.NewRegistry(func(s *ingest.Stream) {
		select {
		case streams <- s:
		case <-ctx.Done():
		}
	})

	// Sessions are started from inside the group so Wait cannot return
	// while a new stream is being handed over.
	g.Go(func() error {
		for {
			select {
			case s := <-streams:
				g.Go(func() error { return a.handleStream(ctx, s, single, stop) })
			case <-ctx.Done():
				return nil
			}
		}
	})

	var source interface{ Run(context.Context) error }
	if srtingest.IsURL(cfg.Input) {
		ep, err := srtingest.ParseURL(cfg.Input)
		if err != nil {
			return err
		}
		if ep.Mode == srtingest.ModeListener {
			source = srtingest.NewListener(ep.Address, format, a.registry, nil)
		} else {
			source = srtingest.NewCaller(ep, cfg.StreamKey, format, a.registry, nil)
		}
	} else {
		source = ingest.NewFileSource(cfg.Input, cfg.StreamKey, format, a.registry, nil)
	}

	g.Go(func() error {
		return source.Run(ctx)
	})

	if cfg.StatsInterval > 0 {
		g.Go(func() error {
			a.reportStats(ctx, cfg.StatsInterval)
			return nil
		})
	}

	err := g.Wait()
	a.reportOnce()
	return err
}

func isListener(input string) bool {
	if !srtingest.IsURL(input) {
		return false
	}
	ep, err := srtingest.ParseURL(input)
	return err == nil && ep.Mode == srtingest.ModeListener
}

type app struct {
	cfg      *config.Config
	registry *ingest.Registry

	mu       sync.Mutex
	sessions map[string]*session.Session
}

func (a *app) handleStream(ctx context.Context, s *ingest.Stream, single bool, stop context.CancelFunc) error {
	slog.Info("new stream from ingest", "key", s.Key, "format", s.Format.String())
	if single {
		defer stop()
	}

	var writers []output.FrameWriter
	if a.cfg.OutputDir != "" {
		dir := a.cfg.OutputDir
		if !single {
			dir = filepath.Join(dir, filepath.FromSlash(s.Key))
		}
		w, err := output.NewPNGWriter(dir, fmt.Sprintf("p%s", a.cfg.Page.String()))
		if err != nil {
			return err
		}
		writers = append(writers, w)
	}
	if a.cfg.ANSI {
		writers = append(writers, output.NewANSIPrinter(os.Stdout, false))
	}
	sink := output.NewSink(nil, a.cfg.MaxFrames, writers...)

	sess, err := session.New(s.Key, s.Input(), sink.AppSink(), session.Config{
		Page:       int(a.cfg.Page),
		Subpage:    int(a.cfg.Subpage),
		PID:        uint16(a.cfg.PID),
		PacketSize: s.Format.PacketSize(),
		CacheSize:  a.cfg.CacheSize,
		PoolSize:   a.cfg.PoolSize,
	}, nil)
	if err != nil {
		return err
	}

	a.mu.Lock()
	a.sessions[s.Key] = sess
	a.mu.Unlock()

	sessCtx, sessCancel := context.WithCancel(ctx)
	defer sessCancel()
	go func() {
		select {
		case <-sink.LimitReached():
			sessCancel()
		case <-s.Done():
		case <-sessCtx.Done():
		}
	}()

	err = sess.Run(sessCtx)
	slog.Info("stream ended", "key", s.Key, "frames", sink.Frames(), "failures", sink.Failures())
	if err != nil && !single {
		// One broken publisher must not take the listener down.
		slog.Error("stream failed", "key", s.Key, "error", err)
		return nil
	}
	return err
}

func (a *app) reportStats(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.reportOnce()
		}
	}
}

func (a *app) reportOnce() {
	a.mu.Lock()
	keys := make([]string, 0, len(a.sessions))
	for k := range a.sessions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	snaps := make([]session.Snapshot, 0, len(keys))
	for _, k := range keys {
		snaps = append(snaps, a.sessions[k].Snapshot())
	}
	a.mu.Unlock()

	for _, snap := range snaps {
		attrs := []any{
			"stream", snap.Key,
			"uptime_ms", snap.UptimeMs,
			"pes", snap.Demux.PESPackets,
			"ts_packets", snap.Demux.TS.Packets,
			"cc_errors", snap.Demux.TS.ContinuityErrors,
			"pages_queued", snap.Element.PagesQueued,
			"pages_rendered", snap.Element.PagesRendered,
			"feed_failures", snap.Element.FeedFailures,
		}
		if snap.Stream != nil {
			attrs = append(attrs, "pid", snap.Stream.PID)
		}
		if in, ok := a.registry.Get(snap.Key); ok {
			attrs = append(attrs, "bytes_in", in.Stats().BytesReceived)
		}
		slog.Info("stats", attrs...)
	}
}
