package mpegts

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
)

// Stats counts what the demuxer has seen.
type Stats struct {
	Packets          int64 `json:"packets"`
	Corrupt          int64 `json:"corrupt"`
	Scrambled        int64 `json:"scrambled"`
	Resyncs          int64 `json:"resyncs"`
	ContinuityErrors int64 `json:"continuityErrors"`
	Units            int64 `json:"units"`
}

// Option configures a Demuxer.
type Option func(*Demuxer)

// WithPacketSize sets the size of each packet on the wire: 188, or 204
// for packets followed by Reed-Solomon parity.
func WithPacketSize(size int) Option {
	return func(d *Demuxer) { d.pktSize = size }
}

// WithLogger sets the logger for stream diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(d *Demuxer) { d.log = log }
}

// WithPIDFilter restricts PES reassembly to PIDs for which keep returns
// true. PAT and PMT sections are always parsed.
func WithPIDFilter(keep func(pid uint16) bool) Option {
	return func(d *Demuxer) { d.keep = keep }
}

// Demuxer reads transport stream packets from a reader and returns parsed
// PAT, PMT and PES units in stream order.
type Demuxer struct {
	ctx     context.Context
	r       io.Reader
	log     *slog.Logger
	pktSize int
	buf     []byte

	pmtPIDs map[uint16]bool
	buffers *pidBuffers
	keep    func(pid uint16) bool

	pending []*Unit
	eof     bool
	stats   Stats
}

// NewDemuxer creates a demuxer reading from r.
func NewDemuxer(ctx context.Context, r io.Reader, opts ...Option) *Demuxer {
	d := &Demuxer{
		ctx:     ctx,
		r:       r,
		pktSize: packetSize,
		pmtPIDs: make(map[uint16]bool),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	if d.pktSize < packetSize {
		d.pktSize = packetSize
	}
	d.log = d.log.With("component", "mpegts")
	d.buf = make([]byte, d.pktSize)
	d.buffers = newPIDBuffers(d.isPSI)
	return d
}

func (d *Demuxer) isPSI(pid uint16) bool {
	return pid == pidPAT || d.pmtPIDs[pid]
}

// Stats returns the demuxer counters. It must be called from the goroutine
// calling Next.
func (d *Demuxer) Stats() Stats {
	s := d.stats
	s.ContinuityErrors = d.buffers.ccErrors()
	return s
}

// Next returns the next parsed unit. It returns io.EOF after the reader is
// exhausted and every buffered unit has been returned.
func (d *Demuxer) Next() (*Unit, error) {
	for {
		if len(d.pending) > 0 {
			u := d.pending[0]
			d.pending = d.pending[1:]
			d.stats.Units++
			return u, nil
		}
		if d.eof {
			return nil, io.EOF
		}
		if err := d.ctx.Err(); err != nil {
			return nil, err
		}

		if err := d.readPacket(); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				d.eof = true
				for _, ps := range d.buffers.drain() {
					d.process(ps)
				}
				continue
			}
			return nil, err
		}

		pkt, err := parsePacket(d.buf)
		if err != nil {
			d.stats.Corrupt++
			continue
		}
		d.stats.Packets++

		if pkt.Header.Scrambling != 0 {
			d.stats.Scrambled++
			continue
		}
		if d.keep != nil && !d.isPSI(pkt.Header.PID) && !d.keep(pkt.Header.PID) {
			continue
		}
		if done := d.buffers.add(pkt); done != nil {
			d.process(done)
		}
	}
}

// readPacket fills d.buf with the next packet, skipping forward to the
// next sync byte if the stream lost alignment.
func (d *Demuxer) readPacket() error {
	if _, err := io.ReadFull(d.r, d.buf); err != nil {
		return err
	}
	for d.buf[0] != syncByte {
		i := bytes.IndexByte(d.buf[1:], syncByte)
		if i < 0 {
			if _, err := io.ReadFull(d.r, d.buf); err != nil {
				return err
			}
			continue
		}
		d.stats.Resyncs++
		n := copy(d.buf, d.buf[1+i:])
		if _, err := io.ReadFull(d.r, d.buf[n:]); err != nil {
			return err
		}
	}
	return nil
}

func (d *Demuxer) process(packets []*Packet) {
	pid := packets[0].Header.PID
	var payload []byte
	for _, p := range packets {
		payload = append(payload, p.Payload...)
	}
	if len(payload) == 0 {
		return
	}

	if d.isPSI(pid) {
		units, err := parsePSI(payload, pid)
		if err != nil {
			d.stats.Corrupt++
			d.log.Debug("dropping PSI", "pid", pid, "error", err)
		}
		for _, u := range units {
			if u.PAT != nil {
				for _, p := range u.PAT.Programs {
					d.pmtPIDs[p.PMTPID] = true
				}
			}
		}
		d.pending = append(d.pending, units...)
		return
	}

	if !isPESPayload(payload) {
		return
	}
	pes, err := parsePES(payload)
	if err != nil {
		d.stats.Corrupt++
		d.log.Debug("dropping PES", "pid", pid, "error", err)
		return
	}
	d.pending = append(d.pending, &Unit{PID: pid, PES: pes})
}
