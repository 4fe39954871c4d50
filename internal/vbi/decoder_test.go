package vbi

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/teletextdec/test/tools/tsutil"
)

func TestDecoderCompletesPageOnNextHeader(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, tsutil.Page{
		Header: tsutil.Header{Page: 0x190, Subcode: 0x02, Title: "NEWS"},
		Rows:   map[int]string{1: "HEADLINE"},
	})
	assert.Empty(t, h.events, "page must not complete before the next header")

	h.terminate(t, 0x190)
	require.Len(t, h.events, 1)
	assert.Equal(t, 0x190, h.events[0].Pgno)
	assert.Equal(t, 0x02, h.events[0].Subno)

	pg, ok := h.decoder.FetchVTPage(0x190, 0x02, Level3p5, PageRows, false)
	require.True(t, ok)
	defer pg.Unref()
	assert.Equal(t, PageRows, pg.Rows)
	assert.Equal(t, PageColumns, pg.Columns)
	assert.Equal(t, "HEADLINE", pg.RowString(1)[:8])
	assert.Equal(t, " P190   NEWS", pg.RowString(0)[:12])
}

func TestDecoderParallelMagazines(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t,
		tsutil.Page{Header: tsutil.Header{Page: 0x100}},
		tsutil.Page{Header: tsutil.Header{Page: 0x200}},
	)
	assert.Empty(t, h.events, "a header only terminates pages of its own magazine")

	h.send(t, tsutil.Page{Header: tsutil.Header{Page: 0x101}})
	require.Len(t, h.events, 1)
	assert.Equal(t, 0x100, h.events[0].Pgno)
}

func TestDecoderSerialMode(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t,
		tsutil.Page{Header: tsutil.Header{Page: 0x100, Serial: true}},
		tsutil.Page{Header: tsutil.Header{Page: 0x200, Serial: true}},
	)
	require.Len(t, h.events, 1)
	assert.Equal(t, 0x100, h.events[0].Pgno)
}

func TestDecoderMagazineEight(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, tsutil.Page{Header: tsutil.Header{Page: 0x888}})
	h.terminate(t, 0x888)
	require.Len(t, h.events, 1)
	assert.Equal(t, 0x888, h.events[0].Pgno)
}

func TestDecoderKeepsRowsWithoutEraseFlag(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, tsutil.Page{Header: tsutil.Header{Page: 0x100}, Rows: map[int]string{1: "FIRST", 2: "SECOND"}})
	h.send(t, tsutil.Page{Header: tsutil.Header{Page: 0x100}, Rows: map[int]string{2: "UPDATED"}})
	h.terminate(t, 0x100)

	pg, ok := h.decoder.FetchVTPage(0x100, 0, Level1p5, PageRows, false)
	require.True(t, ok)
	defer pg.Unref()
	assert.Equal(t, "FIRST", pg.RowString(1)[:5])
	assert.Equal(t, "UPDATED", pg.RowString(2)[:7])

	h.send(t, tsutil.Page{Header: tsutil.Header{Page: 0x100, Erase: true}, Rows: map[int]string{2: "ERASED"}})
	h.terminate(t, 0x100)
	erased, ok := h.decoder.FetchVTPage(0x100, 0, Level1p5, PageRows, false)
	require.True(t, ok)
	defer erased.Unref()
	assert.Equal(t, "     ", erased.RowString(1)[:5])
	assert.Equal(t, "ERASED", erased.RowString(2)[:6])
}

func TestDecoderNationalSubset(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, tsutil.Page{
		Header: tsutil.Header{Page: 0x100, National: 1},
		Rows:   map[int]string{1: "[\\]"},
	})
	h.terminate(t, 0x100)

	pg, ok := h.decoder.FetchVTPage(0x100, AnySubno, Level1p5, PageRows, false)
	require.True(t, ok)
	defer pg.Unref()
	assert.Equal(t, 1, pg.National)
	assert.Equal(t, "ÄÖÜ", string([]rune(pg.RowString(1))[:3]))
}

func TestDecoderFetchErrors(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	_, err := h.decoder.FetchPage(0x100, 0, Level1, PageRows, false)
	assert.True(t, errors.Is(err, ErrPageNotCached))

	h.send(t, tsutil.Page{Header: tsutil.Header{Page: 0x100}})
	h.terminate(t, 0x100)

	_, err = h.decoder.FetchPage(0x100, 0, Level1, 26, false)
	assert.True(t, errors.Is(err, ErrInvalidRows))
	_, err = h.decoder.FetchPage(0x100, 0x05, Level1, PageRows, false)
	assert.True(t, errors.Is(err, ErrPageNotCached))

	pg, err := h.decoder.FetchPage(0x100, 0, Level1, 1, false)
	require.NoError(t, err)
	assert.Equal(t, 1, pg.Rows)
	assert.Len(t, pg.Text, PageColumns)
	pg.Unref()
}

func TestDecoderTimestamp(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	require.True(t, h.demux.Feed(tsutil.TeletextPES(180000, tsutil.RowPacket(1, 1, nil))))
	assert.Equal(t, 2.0, h.decoder.Timestamp())
}

func TestDecoderReset(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, tsutil.Page{Header: tsutil.Header{Page: 0x100}})
	h.terminate(t, 0x100)
	require.Equal(t, 1, h.decoder.CachedPages())

	h.send(t, tsutil.Page{Header: tsutil.Header{Page: 0x101}})
	h.decoder.Reset()
	assert.Zero(t, h.decoder.CachedPages())
	_, ok := h.decoder.FetchVTPage(0x100, 0, Level1, PageRows, false)
	assert.False(t, ok)

	h.terminate(t, 0x101)
	assert.Len(t, h.events, 1, "page in transmission survived the reset")
}

func TestDecoderTracksBorrowedPages(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, tsutil.Page{Header: tsutil.Header{Page: 0x100}})
	h.terminate(t, 0x100)

	a, ok := h.decoder.FetchVTPage(0x100, 0, Level1, PageRows, false)
	require.True(t, ok)
	b, ok := h.decoder.FetchVTPage(0x100, 0, Level1, PageRows, false)
	require.True(t, ok)
	assert.Equal(t, 2, h.decoder.Outstanding())

	a.Unref()
	a.Unref()
	assert.Equal(t, 1, h.decoder.Outstanding())
	b.Unref()
	assert.Zero(t, h.decoder.Outstanding())
}

func TestDecoderCacheEviction(t *testing.T) {
	t.Parallel()
	h := newHarness(t, WithCacheSize(2))

	for _, page := range []int{0x100, 0x101, 0x102} {
		h.send(t, tsutil.Page{Header: tsutil.Header{Page: page}})
	}
	h.terminate(t, 0x100)
	assert.Equal(t, 2, h.decoder.CachedPages())

	_, ok := h.decoder.FetchVTPage(0x100, AnySubno, Level1, PageRows, false)
	assert.False(t, ok, "oldest page should be evicted")
	pg, ok := h.decoder.FetchVTPage(0x102, AnySubno, Level1, PageRows, false)
	require.True(t, ok)
	pg.Unref()
}

func TestDecoderAnySubnoReturnsLatest(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t,
		tsutil.Page{Header: tsutil.Header{Page: 0x300, Subcode: 0x01}, Rows: map[int]string{1: "ONE"}},
		tsutil.Page{Header: tsutil.Header{Page: 0x300, Subcode: 0x02}, Rows: map[int]string{1: "TWO"}},
	)
	h.terminate(t, 0x300)
	require.Len(t, h.events, 2)

	pg, ok := h.decoder.FetchVTPage(0x300, AnySubno, Level1, PageRows, false)
	require.True(t, ok)
	defer pg.Unref()
	assert.Equal(t, 0x02, pg.Subno)
	assert.Equal(t, "TWO", pg.RowString(1)[:3])
}

func TestDecoderNavigationRow(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.send(t, tsutil.Page{
		Header: tsutil.Header{Page: 0x100},
		Links:  []int{0x200, 0x300, 0x400, 0x500},
	})
	h.terminate(t, 0x100)

	pg, ok := h.decoder.FetchVTPage(0x100, 0, Level1p5, PageRows, true)
	require.True(t, ok)
	defer pg.Unref()
	assert.Equal(t, 0x200, pg.Nav[0].Pgno)
	assert.Equal(t, 0x500, pg.Nav[3].Pgno)
	assert.Equal(t, AnySubno, pg.Nav[0].Subno)

	row := pg.RowString(24)
	assert.Equal(t, "P200", row[2:6])
	assert.Equal(t, "P300", row[12:16])
	assert.Equal(t, Green, pg.At(24, 12).Foreground)
	assert.Equal(t, Cyan, pg.At(24, 32).Foreground)

	plain, ok := h.decoder.FetchVTPage(0x100, 0, Level1p5, PageRows, false)
	require.True(t, ok)
	defer plain.Unref()
	assert.Equal(t, "    ", plain.RowString(24)[2:6])
}

func TestDecoderRejectsCorruptAddress(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	bad := tsutil.HeaderPacket(tsutil.Header{Page: 0x100})
	bad[0] ^= 0x03
	require.True(t, h.demux.Feed(tsutil.TeletextPES(0, bad)))
	h.terminate(t, 0x100)

	assert.Empty(t, h.events)
	packets, rejected := h.decoder.Stats()
	assert.Equal(t, int64(1), packets)
	assert.Equal(t, int64(1), rejected)
}

func TestDecoderDeleteSendsClose(t *testing.T) {
	t.Parallel()
	d := NewDecoder()
	var closed bool
	d.EventHandlerRegister(EventClose, func(ev *Event) {
		closed = ev.Type == EventClose
	})
	d.Delete()
	assert.True(t, closed)
}
