// Package session runs the decode chain for one ingest stream: the demux
// stage feeds teletext PES buffers to the teletext element, whose frames
// go to a sink.
package session

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/zsiec/teletextdec/internal/demux"
	"github.com/zsiec/teletextdec/internal/pipeline"
	"github.com/zsiec/teletextdec/internal/teletext"
)

// Config selects what a session decodes.
type Config struct {
	Page       int
	Subpage    int
	PID        uint16
	PacketSize int
	CacheSize  int
	// PoolSize is the number of frame buffers kept for reuse; 0 allocates
	// every frame.
	PoolSize int
}

// Snapshot is a point-in-time view of a session's counters.
type Snapshot struct {
	Key      string               `json:"key"`
	UptimeMs int64                `json:"uptimeMs"`
	Stream   *demux.Stream        `json:"stream,omitempty"`
	Demux    demux.Stats          `json:"demux"`
	Element  teletext.Stats       `json:"element"`
	Runner   pipeline.RunnerStats `json:"runner"`
}

// Session bridges a stream's demuxer and the teletext element.
type Session struct {
	log       *slog.Logger
	key       string
	input     io.Reader
	demuxer   *demux.Demuxer
	element   *teletext.Decoder
	runner    *pipeline.Runner
	startTime time.Time
}

// New creates a session reading a transport stream from input and
// delivering rendered frames to sink. Run closes input on return if it is
// an io.Closer. If log is nil, slog.Default() is
// used.
func New(key string, input io.Reader, sink pipeline.Sink, cfg Config, log *slog.Logger) (*Session, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("stream", key)

	var dopts []demux.Option
	if cfg.PID != 0 {
		dopts = append(dopts, demux.WithPID(cfg.PID))
	}
	if cfg.PacketSize != 0 {
		dopts = append(dopts, demux.WithPacketSize(cfg.PacketSize))
	}

	var eopts []teletext.Option
	if cfg.CacheSize > 0 {
		eopts = append(eopts, teletext.WithCacheSize(cfg.CacheSize))
	}
	if cfg.PoolSize > 0 {
		eopts = append(eopts, teletext.WithAllocator(pipeline.NewPoolAllocator(cfg.PoolSize, teletext.DefaultFrameSize)))
	}
	el := teletext.New(key, log, eopts...)
	if err := el.SetProperty(teletext.PropPage, cfg.Page); err != nil {
		return nil, errors.Wrap(err, "session")
	}
	if err := el.SetProperty(teletext.PropSubpage, cfg.Subpage); err != nil {
		return nil, errors.Wrap(err, "session")
	}

	return &Session{
		log:       log,
		key:       key,
		input:     input,
		demuxer:   demux.NewDemuxer(input, log, dopts...),
		element:   el,
		runner:    pipeline.NewRunner(el, sink, log),
		startTime: time.Now(),
	}, nil
}

// Key returns the stream key.
func (s *Session) Key() string {
	return s.key
}

// Element returns the teletext element, for changing the page while the
// session runs.
func (s *Session) Element() *teletext.Decoder {
	return s.element
}

// Snapshot returns the session counters. It is safe to call while Run is
// active.
func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Key:      s.key,
		UptimeMs: time.Since(s.startTime).Milliseconds(),
		Demux:    s.demuxer.Stats(),
		Element:  s.element.Stats(),
		Runner:   s.runner.Stats(),
	}
	select {
	case <-s.demuxer.StreamFound():
		st := s.demuxer.Stream()
		snap.Stream = &st
	default:
	}
	return snap
}

// Run demuxes the input and drives the element until the input ends, the
// element fails or the context is cancelled. An element error is returned;
// the end of the input is not an error.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	demuxErr := make(chan error, 1)
	go func() {
		err := s.demuxer.Run(ctx)
		s.log.Debug("demuxer goroutine exited", "error", err)
		demuxErr <- err
	}()

	runErr := s.runner.Run(ctx, s.demuxer.Buffers())

	// Unblock the demuxer if the runner stopped first, then release
	// anything it had queued. A reader blocked in Read only returns once
	// its input is closed.
	cancel()
	if c, ok := s.input.(io.Closer); ok {
		c.Close()
	}
	for buf := range s.demuxer.Buffers() {
		buf.Unref()
	}
	err := <-demuxErr

	if runErr != nil {
		return runErr
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return errors.Wrap(err, "demux")
	}
	return nil
}
