package output

import (
	"log/slog"
	"sync"

	"go.uber.org/atomic"

	"github.com/zsiec/teletextdec/internal/pipeline"
)

// FrameWriter consumes frames.
type FrameWriter interface {
	WriteFrame(f *Frame) error
}

// Sink is the end of a decode pipeline. It converts rendered buffers to
// frames and hands them to every writer.
type Sink struct {
	log       *slog.Logger
	writers   []FrameWriter
	maxFrames int

	frames   atomic.Int64
	failures atomic.Int64

	limitOnce sync.Once
	limit     chan struct{}
	eosOnce   sync.Once
	eos       chan struct{}
}

// NewSink creates a sink that stops writing after maxFrames frames (0 for
// no limit). If log is nil, slog.Default() is used.
func NewSink(log *slog.Logger, maxFrames int, writers ...FrameWriter) *Sink {
	if log == nil {
		log = slog.Default()
	}
	return &Sink{
		log:       log.With("component", "output"),
		writers:   writers,
		maxFrames: maxFrames,
		limit:     make(chan struct{}),
		eos:       make(chan struct{}),
	}
}

// AppSink returns the pipeline sink to link the decoder to. It accepts
// RGB rasters only.
func (s *Sink) AppSink() *pipeline.AppSink {
	return &pipeline.AppSink{
		OnBuffer: s.handle,
		OnEvent:  s.event,
		Accept:   pipeline.NewCaps(pipeline.NewStructure("video/x-raw-rgb")),
	}
}

// Frames returns the number of frames written.
func (s *Sink) Frames() int64 {
	return s.frames.Load()
}

// Failures returns the number of frames that could not be converted or
// that at least one writer failed on.
func (s *Sink) Failures() int64 {
	return s.failures.Load()
}

// LimitReached is closed once maxFrames frames have been written. Later
// frames are discarded.
func (s *Sink) LimitReached() <-chan struct{} {
	return s.limit
}

// EOS is closed when an end-of-stream event arrives.
func (s *Sink) EOS() <-chan struct{} {
	return s.eos
}

func (s *Sink) handle(buf *pipeline.Buffer) pipeline.FlowReturn {
	defer buf.Unref()

	if s.maxFrames > 0 && s.frames.Load() >= int64(s.maxFrames) {
		return pipeline.FlowOK
	}

	seq := int(s.frames.Load()) + 1
	f, err := NewFrame(seq, buf)
	if err != nil {
		s.log.Warn("dropping frame", "error", err)
		s.failures.Inc()
		return pipeline.FlowOK
	}
	failed := false
	for _, w := range s.writers {
		if err := w.WriteFrame(f); err != nil {
			s.log.Warn("writing frame failed", "seq", seq, "error", err)
			failed = true
		}
	}
	if failed {
		s.failures.Inc()
	}
	n := s.frames.Inc()
	s.log.Debug("frame written", "seq", seq, "pts", f.PTS.String())

	if s.maxFrames > 0 && n >= int64(s.maxFrames) {
		s.limitOnce.Do(func() {
			s.log.Info("frame limit reached", "frames", n)
			close(s.limit)
		})
	}
	return pipeline.FlowOK
}

func (s *Sink) event(ev *pipeline.Event) bool {
	if ev.Type == pipeline.EventEOS {
		s.eosOnce.Do(func() { close(s.eos) })
	}
	return true
}
