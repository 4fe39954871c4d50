package demux

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/zsiec/teletextdec/internal/mpegts"
	"github.com/zsiec/teletextdec/internal/pipeline"
)

const (
	// DefaultBufferSize is the capacity of the output channel.
	DefaultBufferSize = 64

	ptsWrap = int64(1) << 33
)

// Stream describes the teletext elementary stream being demuxed.
type Stream struct {
	PID     uint16                `json:"pid"`
	Program uint16                `json:"program"`
	Pages   []mpegts.TeletextPage `json:"pages,omitempty"`
	// Forced is set when the PID was given rather than found in a PMT.
	Forced bool `json:"forced"`
}

// Stats is a snapshot of the demuxer counters.
type Stats struct {
	PESPackets int64        `json:"pesPackets"`
	Bytes      int64        `json:"bytes"`
	Untimed    int64        `json:"untimed"`
	TS         mpegts.Stats `json:"ts"`
}

// Option configures a Demuxer.
type Option func(*Demuxer)

// WithPID forces the teletext PID instead of discovering it from the PMT.
func WithPID(pid uint16) Option {
	return func(d *Demuxer) { d.forcedPID = pid }
}

// WithBufferSize sets the capacity of the output channel.
func WithBufferSize(n int) Option {
	return func(d *Demuxer) { d.bufSize = n }
}

// WithPacketSize sets the transport packet size (188 or 204).
func WithPacketSize(n int) Option {
	return func(d *Demuxer) { d.pktSize = n }
}

// Demuxer extracts the PES packets of one teletext stream. Output is
// delivered through the channel obtained via Buffers.
type Demuxer struct {
	log       *slog.Logger
	reader    io.Reader
	forcedPID uint16
	bufSize   int
	pktSize   int

	out        chan *pipeline.Buffer
	streamCh   chan struct{}
	stream     Stream
	streamDone bool

	// PTS unwrapping across the 33-bit rollover.
	lastPTS   int64
	ptsOffset int64

	pesPackets atomic.Int64
	bytes      atomic.Int64
	untimed    atomic.Int64
	tsStats    atomic.Value
}

// NewDemuxer creates a Demuxer that reads transport stream packets from r.
// Call Run to begin demuxing. If log is nil, slog.Default() is used.
func NewDemuxer(r io.Reader, log *slog.Logger, opts ...Option) *Demuxer {
	if log == nil {
		log = slog.Default()
	}
	d := &Demuxer{
		log:      log.With("component", "demux"),
		reader:   r,
		bufSize:  DefaultBufferSize,
		pktSize:  188,
		streamCh: make(chan struct{}),
		lastPTS:  mpegts.NoTimestamp,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.out = make(chan *pipeline.Buffer, d.bufSize)
	d.tsStats.Store(mpegts.Stats{})
	return d
}

// Buffers returns the channel on which teletext PES packets are delivered.
// It is closed when Run returns.
func (d *Demuxer) Buffers() <-chan *pipeline.Buffer {
	return d.out
}

// StreamFound returns a channel that is closed once the teletext stream
// has been selected. Stream must not be called before that.
func (d *Demuxer) StreamFound() <-chan struct{} {
	return d.streamCh
}

// Stream returns the selected teletext stream.
func (d *Demuxer) Stream() Stream {
	return d.stream
}

// Stats returns a snapshot of the demuxer counters. It is safe to call
// while Run is active.
func (d *Demuxer) Stats() Stats {
	return Stats{
		PESPackets: d.pesPackets.Load(),
		Bytes:      d.bytes.Load(),
		Untimed:    d.untimed.Load(),
		TS:         d.tsStats.Load().(mpegts.Stats),
	}
}

// Run reads the transport stream until EOF or context cancellation. It
// closes the Buffers channel on return. Reaching the end of the input is
// not an error.
func (d *Demuxer) Run(ctx context.Context) error {
	defer close(d.out)

	if d.forcedPID != 0 {
		d.selectStream(Stream{PID: d.forcedPID, Forced: true})
	}

	dmx := mpegts.NewDemuxer(ctx, d.reader,
		mpegts.WithPacketSize(d.pktSize),
		mpegts.WithLogger(d.log),
		mpegts.WithPIDFilter(d.wanted),
	)
	defer func() { d.tsStats.Store(dmx.Stats()) }()

	for {
		unit, err := dmx.Next()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				if !d.streamDone {
					d.log.Warn("no teletext stream found")
				}
				return nil
			}
			return err
		}
		d.tsStats.Store(dmx.Stats())

		switch {
		case unit.PMT != nil:
			d.handlePMT(unit.PMT)
		case unit.PES != nil && d.streamDone && unit.PID == d.stream.PID:
			if !d.emit(ctx, unit.PES) {
				return ctx.Err()
			}
		}
	}
}

func (d *Demuxer) wanted(pid uint16) bool {
	return d.streamDone && pid == d.stream.PID
}

func (d *Demuxer) handlePMT(pmt *mpegts.PMT) {
	if d.streamDone {
		return
	}
	for _, es := range pmt.Streams {
		if !es.IsTeletext() {
			continue
		}
		s := Stream{PID: es.PID, Program: pmt.ProgramNumber}
		for _, tag := range []uint8{mpegts.DescriptorTeletext, mpegts.DescriptorVBITeletext} {
			desc, ok := es.Descriptor(tag)
			if !ok {
				continue
			}
			pages, err := mpegts.TeletextPages(desc)
			if err != nil {
				d.log.Debug("bad teletext descriptor", "pid", es.PID, "error", err)
				continue
			}
			s.Pages = append(s.Pages, pages...)
		}
		d.selectStream(s)
		return
	}
}

func (d *Demuxer) selectStream(s Stream) {
	d.stream = s
	d.streamDone = true
	close(d.streamCh)
	attrs := []any{"pid", s.PID, "forced", s.Forced}
	for _, p := range s.Pages {
		attrs = append(attrs, "page", p.String())
	}
	d.log.Info("found teletext PID", attrs...)
}

func (d *Demuxer) emit(ctx context.Context, pes *mpegts.PES) bool {
	data := make([]byte, len(pes.Raw))
	copy(data, pes.Raw)

	buf := pipeline.NewBuffer(data)
	if pes.PTS != mpegts.NoTimestamp {
		buf.PTS = pipeline.ClockTime(d.unwrap(pes.PTS) * 100000 / 9)
	} else {
		d.untimed.Inc()
	}

	d.pesPackets.Inc()
	d.bytes.Add(int64(len(data)))

	select {
	case d.out <- buf:
		return true
	case <-ctx.Done():
		return false
	}
}

// unwrap extends a 33-bit PTS so timestamps keep increasing across the
// rollover. A jump backwards of more than half the range counts as a wrap.
func (d *Demuxer) unwrap(pts int64) int64 {
	if d.lastPTS != mpegts.NoTimestamp && d.lastPTS-pts > ptsWrap/2 {
		d.ptsOffset += ptsWrap
	}
	d.lastPTS = pts
	return pts + d.ptsOffset
}
