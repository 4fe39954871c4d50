package vbi

import (
	"testing"

	"github.com/zsiec/teletextdec/test/tools/tsutil"
)

// harness wires a demultiplexer to a decoder and records page events.
type harness struct {
	demux   *DVBDemux
	decoder *Decoder
	events  []TTXPageEvent
	pts     []int64
}

func newHarness(t *testing.T, opts ...DecoderOption) *harness {
	t.Helper()
	h := &harness{decoder: NewDecoder(opts...)}
	h.demux = NewDVBPESDemux(func(_ *DVBDemux, sliced []Sliced, pts int64) bool {
		h.pts = append(h.pts, pts)
		h.decoder.Decode(sliced, float64(pts)/90000)
		return true
	}, nil)
	h.decoder.EventHandlerRegister(EventTTXPage, func(ev *Event) {
		h.events = append(h.events, ev.TTXPage)
	})
	t.Cleanup(func() {
		h.demux.Delete()
		h.decoder.Delete()
	})
	return h
}

// send feeds the packets of each page as one PES packet.
func (h *harness) send(t *testing.T, pages ...tsutil.Page) {
	t.Helper()
	for _, pg := range pages {
		if !h.demux.Feed(tsutil.TeletextPES(0, pg.Packets()...)) {
			t.Fatalf("feed of page %03x failed", pg.Header.Page)
		}
	}
}

// terminate sends a time filling header on the magazine of page.
func (h *harness) terminate(t *testing.T, page int) {
	t.Helper()
	if !h.demux.Feed(tsutil.TeletextPES(0, tsutil.HeaderPacket(tsutil.TimeFilling(page, false)))) {
		t.Fatal("feed of time filling header failed")
	}
}
