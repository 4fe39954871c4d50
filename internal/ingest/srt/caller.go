package srt

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	srtgo "github.com/zsiec/srtgo"

	"github.com/zsiec/teletextdec/internal/ingest"
)

const dialTimeout = 10 * time.Second

// Caller pulls a stream from a remote SRT listener into the registry.
type Caller struct {
	log      *slog.Logger
	registry *ingest.Registry
	format   ingest.InputFormat
	ep       Endpoint
	key      string
}

// NewCaller creates a caller for ep that registers under key. If log is
// nil, slog.Default() is used.
func NewCaller(ep Endpoint, key string, format ingest.InputFormat, registry *ingest.Registry, log *slog.Logger) *Caller {
	if log == nil {
		log = slog.Default()
	}
	return &Caller{
		log:      log.With("component", "srt-caller"),
		registry: registry,
		format:   format,
		ep:       ep,
		key:      key,
	}
}

// Run dials the remote listener and streams until the connection ends or
// the context is cancelled. Dialing gives up after ten seconds.
func (c *Caller) Run(ctx context.Context) error {
	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer func() {
		if stop() {
			conn.Close()
		}
	}()

	c.log.Info("connected", "address", c.ep.Address, "stream_key", c.key)
	receive(ctx, c.log, c.registry, c.format, c.key, c.ep.Address, conn)
	return nil
}

func (c *Caller) dial(ctx context.Context) (*srtgo.Conn, error) {
	cfg := srtgo.DefaultConfig()
	cfg.Latency = latencyNs
	cfg.StreamID = c.ep.StreamID
	if cfg.StreamID == "" {
		cfg.StreamID = "live/" + c.key
	}

	c.log.Info("dialing", "address", c.ep.Address, "stream_id", cfg.StreamID)

	type dialResult struct {
		conn *srtgo.Conn
		err  error
	}
	ch := make(chan dialResult, 1)
	go func() {
		conn, err := srtgo.Dial(c.ep.Address, cfg)
		ch <- dialResult{conn, err}
	}()

	// Abandoned dials still complete; close whatever they return.
	abandon := func() {
		go func() {
			if res := <-ch; res.conn != nil {
				res.conn.Close()
			}
		}()
	}

	timer := time.NewTimer(dialTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("SRT dial failed: %w", res.err)
		}
		return res.conn, nil
	case <-timer.C:
		abandon()
		return nil, fmt.Errorf("SRT dial timed out after %s", dialTimeout)
	case <-ctx.Done():
		abandon()
		return nil, ctx.Err()
	}
}
