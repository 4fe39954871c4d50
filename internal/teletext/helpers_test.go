package teletext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zsiec/teletextdec/internal/pipeline"
	"github.com/zsiec/teletextdec/test/tools/tsutil"
)

// frame is a copy of a buffer that reached the end of the pipeline.
type frame struct {
	data     []byte
	pts      pipeline.ClockTime
	duration pipeline.ClockTime
	caps     *pipeline.Caps
}

// collector is the downstream peer of the element under test.
type collector struct {
	frames []frame
	events []pipeline.EventType
	ret    pipeline.FlowReturn
}

func (c *collector) Chain(buf *pipeline.Buffer) pipeline.FlowReturn {
	c.frames = append(c.frames, frame{
		data:     append([]byte(nil), buf.Data...),
		pts:      buf.PTS,
		duration: buf.Duration,
		caps:     buf.Caps,
	})
	buf.Unref()
	return c.ret
}

func (c *collector) SinkEvent(ev *pipeline.Event) bool {
	c.events = append(c.events, ev.Type)
	return true
}

func (c *collector) sawEvent(t pipeline.EventType) bool {
	for _, e := range c.events {
		if e == t {
			return true
		}
	}
	return false
}

type fixture struct {
	el   *Decoder
	sink *collector
	bus  *pipeline.Bus
}

// newFixture creates a started element linked to a collector.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		el:   New("teletext0", nil, opts...),
		sink: &collector{},
		bus:  pipeline.NewBus(),
	}
	f.el.SetBus(f.bus)
	f.el.SrcPad().Link(f.sink)
	for _, c := range pipeline.StateChanges(pipeline.StateNull, pipeline.StatePaused) {
		require.Equal(t, pipeline.StateChangeSuccess, f.el.ChangeState(c))
	}
	t.Cleanup(func() {
		for _, c := range pipeline.StateChanges(f.el.State(), pipeline.StateNull) {
			f.el.ChangeState(c)
		}
	})
	return f
}

// pes returns a buffer holding one PES packet per page, stamped with pts.
func pes(pts pipeline.ClockTime, pages ...tsutil.Page) *pipeline.Buffer {
	var data []byte
	for _, pg := range pages {
		data = append(data, tsutil.TeletextPES(-1, pg.Packets()...)...)
	}
	buf := pipeline.NewBuffer(data)
	buf.PTS = pts
	if pts.Valid() {
		buf.Duration = pipeline.ClockTime(40 * time.Millisecond)
	}
	return buf
}

// terminator completes the page in transmission on the magazine of page.
func terminator(page int) tsutil.Page {
	return tsutil.Page{Header: tsutil.TimeFilling(page, false)}
}

func page(pgno, subcode int, rows map[int]string) tsutil.Page {
	return tsutil.Page{
		Header: tsutil.Header{Page: pgno, Subcode: subcode, Erase: true, Title: "TELETEXT"},
		Rows:   rows,
	}
}

func at(sec int) pipeline.ClockTime {
	return pipeline.ClockTime(time.Duration(sec) * time.Second)
}

func (f *fixture) chain(t *testing.T, buf *pipeline.Buffer) pipeline.FlowReturn {
	t.Helper()
	return f.el.Chain(buf)
}
