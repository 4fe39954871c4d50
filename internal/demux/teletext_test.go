package demux

import (
	"bytes"
	"context"
	"testing"

	"github.com/zsiec/teletextdec/internal/mpegts"
	"github.com/zsiec/teletextdec/internal/pipeline"
	"github.com/zsiec/teletextdec/test/tools/tsutil"
)

const (
	pmtPID      = 0x1000
	videoPID    = 0x0100
	teletextPID = 0x0102
)

func teletextPES(pts int64) []byte {
	pg := tsutil.Page{
		Header: tsutil.Header{Page: 0x100, Title: "DEMUX"},
		Rows:   map[int]string{2: "ROW TWO"},
	}
	return tsutil.TeletextPES(pts, pg.Packets()...)
}

type streamBuilder struct {
	ts                  []byte
	patCC, pmtCC, ttxCC byte
}

func (b *streamBuilder) psi(withTeletext bool) *streamBuilder {
	streams := []tsutil.ElementaryStream{{StreamType: 0x1B, PID: videoPID}}
	if withTeletext {
		streams = append(streams, tsutil.ElementaryStream{
			StreamType:  tsutil.StreamTypePrivatePES,
			PID:         teletextPID,
			Descriptors: tsutil.TeletextDescriptor("eng", tsutil.TeletextTypeSubtitle, 0x888),
		})
	}
	b.ts = append(b.ts, tsutil.PSIPackets(0, tsutil.BuildPAT(1, 1, pmtPID), &b.patCC)...)
	b.ts = append(b.ts, tsutil.PSIPackets(pmtPID, tsutil.BuildPMT(1, streams), &b.pmtCC)...)
	return b
}

func (b *streamBuilder) pes(pid uint16, pts ...int64) *streamBuilder {
	for _, p := range pts {
		b.ts = append(b.ts, tsutil.Packetize(teletextPES(p), pid, &b.ttxCC)...)
	}
	return b
}

func run(t *testing.T, ts []byte, opts ...Option) (*Demuxer, []*pipeline.Buffer) {
	t.Helper()
	d := NewDemuxer(bytes.NewReader(ts), nil, opts...)
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background()) }()

	var bufs []*pipeline.Buffer
	for buf := range d.Buffers() {
		bufs = append(bufs, buf)
	}
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	return d, bufs
}

func TestDemuxerFindsTeletextStream(t *testing.T) {
	t.Parallel()

	b := new(streamBuilder).psi(true).pes(teletextPID, 90000, 93600)
	d, bufs := run(t, b.ts)

	select {
	case <-d.StreamFound():
	default:
		t.Fatal("stream not found")
	}
	s := d.Stream()
	if s.PID != teletextPID || s.Program != 1 || s.Forced {
		t.Errorf("stream = %+v", s)
	}
	want := mpegts.TeletextPage{Language: "eng", Type: mpegts.TeletextSubtitle, Page: 0x888}
	if len(s.Pages) != 1 || s.Pages[0] != want {
		t.Errorf("pages = %v, want [%v]", s.Pages, want)
	}

	if len(bufs) != 2 {
		t.Fatalf("got %d buffers, want 2", len(bufs))
	}
	if !bytes.Equal(bufs[0].Data, teletextPES(90000)) {
		t.Error("buffer does not carry the raw PES packet")
	}
	if bufs[0].PTS != pipeline.ClockTime(1e9) {
		t.Errorf("PTS = %v, want 1s", bufs[0].PTS)
	}
	if bufs[1].PTS != pipeline.ClockTime(1040e6) {
		t.Errorf("PTS = %v, want 1.04s", bufs[1].PTS)
	}
	if bufs[0].Duration.Valid() {
		t.Error("duration should be unset")
	}

	st := d.Stats()
	if st.PESPackets != 2 || st.Bytes != int64(2*len(bufs[0].Data)) {
		t.Errorf("stats = %+v", st)
	}
	if st.TS.Packets == 0 {
		t.Error("transport stats not recorded")
	}
}

func TestDemuxerIgnoresPESBeforePMT(t *testing.T) {
	t.Parallel()

	b := new(streamBuilder).pes(teletextPID, 0).psi(true).pes(teletextPID, 3600)
	_, bufs := run(t, b.ts)

	if len(bufs) != 1 || bufs[0].PTS != pipeline.ClockTime(40e6) {
		t.Errorf("got %d buffers", len(bufs))
	}
}

func TestDemuxerNoTeletextStream(t *testing.T) {
	t.Parallel()

	b := new(streamBuilder).psi(false).pes(teletextPID, 0)
	d, bufs := run(t, b.ts)

	if len(bufs) != 0 {
		t.Errorf("got %d buffers from a stream without teletext", len(bufs))
	}
	select {
	case <-d.StreamFound():
		t.Error("StreamFound closed without a teletext stream")
	default:
	}
}

func TestDemuxerForcedPID(t *testing.T) {
	t.Parallel()

	b := new(streamBuilder).pes(0x0200, 0, 3600)
	d, bufs := run(t, b.ts, WithPID(0x0200))

	if len(bufs) != 2 {
		t.Fatalf("got %d buffers, want 2", len(bufs))
	}
	if s := d.Stream(); s.PID != 0x0200 || !s.Forced {
		t.Errorf("stream = %+v", s)
	}
}

func TestDemuxerUntimedPES(t *testing.T) {
	t.Parallel()

	b := new(streamBuilder).psi(true).pes(teletextPID, -1)
	d, bufs := run(t, b.ts)

	if len(bufs) != 1 || bufs[0].PTS.Valid() {
		t.Fatalf("expected one untimed buffer, got %d", len(bufs))
	}
	if d.Stats().Untimed != 1 {
		t.Errorf("untimed = %d, want 1", d.Stats().Untimed)
	}
}

func TestDemuxerContextCancel(t *testing.T) {
	t.Parallel()

	b := new(streamBuilder).psi(true).pes(teletextPID, 0, 3600, 7200)
	d := NewDemuxer(bytes.NewReader(b.ts), nil, WithBufferSize(0))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	<-d.Buffers()
	cancel()
	for range d.Buffers() {
	}
	if err := <-done; err != context.Canceled {
		t.Errorf("Run = %v, want context.Canceled", err)
	}
}

func TestUnwrapPTS(t *testing.T) {
	t.Parallel()

	d := NewDemuxer(bytes.NewReader(nil), nil)
	steps := []struct {
		in, want int64
	}{
		{ptsWrap - 3600, ptsWrap - 3600},
		{0, ptsWrap},
		{3600, ptsWrap + 3600},
		{0, ptsWrap},
	}
	for i, s := range steps {
		if got := d.unwrap(s.in); got != s.want {
			t.Errorf("step %d: unwrap(%d) = %d, want %d", i, s.in, got, s.want)
		}
	}
}
