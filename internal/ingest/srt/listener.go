package srt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/teletextdec/internal/ingest"
)

// readBufferSize holds ten SRT payloads of seven transport packets each.
const readBufferSize = 1316 * 10

// latencyNs is the SRT receive latency (120ms).
const latencyNs = 120_000_000

// Listener accepts SRT publish connections and registers each one with
// the ingest registry under a key derived from its stream id.
type Listener struct {
	log      *slog.Logger
	addr     string
	registry *ingest.Registry
	format   ingest.InputFormat
}

// NewListener creates a listener on addr. If log is nil, slog.Default()
// is used.
func NewListener(addr string, format ingest.InputFormat, registry *ingest.Registry, log *slog.Logger) *Listener {
	if log == nil {
		log = slog.Default()
	}
	return &Listener{
		log:      log.With("component", "srt-listener"),
		addr:     addr,
		registry: registry,
		format:   format,
	}
}

// Run accepts connections until the context is cancelled.
func (l *Listener) Run(ctx context.Context) error {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = latencyNs

	ln, err := srtgo.Listen(l.addr, cfg)
	if err != nil {
		return fmt.Errorf("SRT listen on %s: %w", l.addr, err)
	}
	l.log.Info("listening", "addr", l.addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.log.Warn("accept error", "error", err)
			continue
		}

		key := streamKey(conn.StreamID())
		l.log.Info("publish", "stream_key", key, "remote", conn.RemoteAddr())
		go func() {
			// A read blocked on an idle connection only returns once the
			// connection is closed.
			stop := context.AfterFunc(ctx, func() { conn.Close() })
			defer func() {
				if stop() {
					conn.Close()
				}
			}()
			receive(ctx, l.log, l.registry, l.format, key, conn.RemoteAddr().String(), conn)
		}()
	}
}

// receive registers a stream for one connection and copies the connection
// into it until either side ends.
func receive(ctx context.Context, log *slog.Logger, registry *ingest.Registry, format ingest.InputFormat,
	key, remote string, conn io.Reader) {
	stream, w := registry.Register(key, format)
	stream.SetRemoteAddr(remote)

	err := ingest.Pump(stream, w, conn, make([]byte, readBufferSize), ctx.Done())
	if err != nil && !errors.Is(err, io.ErrClosedPipe) {
		log.Debug("read error", "stream_key", key, "error", err)
	}

	stats := stream.Stats()
	registry.Release(stream)
	log.Info("connection closed", "stream_key", key,
		"bytes", stats.BytesReceived, "reads", stats.ReadCount,
		"uptime_ms", stats.UptimeMs)
}
