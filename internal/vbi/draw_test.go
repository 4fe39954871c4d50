package vbi

import (
	"image/color"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPage(rows int, fill func(row, col int) Char) *Page {
	pg := &Page{Rows: rows, Columns: PageColumns, Text: make([]Char, rows*PageColumns)}
	for r := 0; r < rows; r++ {
		for c := 0; c < PageColumns; c++ {
			pg.Text[r*PageColumns+c] = fill(r, c)
		}
	}
	return pg
}

func pixelAt(buf []byte, width, x, y int) color.RGBA {
	off := (y*width + x) * 4
	return color.RGBA{buf[off], buf[off+1], buf[off+2], buf[off+3]}
}

func TestDrawVTPageGeometry(t *testing.T) {
	t.Parallel()
	pg := testPage(PageRows, func(int, int) Char {
		return Char{Unicode: ' ', Background: Blue}
	})
	w, h := ImageSize(pg)
	require.Equal(t, 480, w)
	require.Equal(t, 250, h)

	buf := make([]byte, w*h*4)
	require.NoError(t, DrawVTPage(pg, PixFmtRGBA32LE, buf, false, true))
	assert.Equal(t, Palette[Blue], pixelAt(buf, w, 0, 0))
	assert.Equal(t, Palette[Blue], pixelAt(buf, w, w-1, h-1))
}

func TestDrawVTPageErrors(t *testing.T) {
	t.Parallel()
	pg := testPage(1, func(int, int) Char { return Char{Unicode: ' '} })

	err := DrawVTPage(pg, PixFmtRGBA32LE, make([]byte, 10), false, true)
	assert.True(t, errors.Is(err, ErrShortBuffer))

	err = DrawVTPage(pg, PixFmt(99), make([]byte, 480*10*4), false, true)
	assert.True(t, errors.Is(err, ErrUnsupportedFormat))
}

func TestDrawMosaicCoverage(t *testing.T) {
	t.Parallel()
	full := rune(mosaicBase + 0x7F)
	pg := testPage(1, func(_, col int) Char {
		if col == 0 {
			return Char{Unicode: full, Foreground: Yellow}
		}
		if col == 1 {
			return Char{Unicode: full, Foreground: Yellow, Separated: true}
		}
		return Char{Unicode: ' '}
	})
	img := Image(pg, false, true)
	for y := 0; y < CellHeight; y++ {
		for x := 0; x < CellWidth; x++ {
			require.Equal(t, Palette[Yellow], img.RGBAAt(x, y), "contiguous block at %d,%d", x, y)
		}
	}
	assert.Equal(t, Palette[Black], img.RGBAAt(CellWidth, 0), "separated mosaics leave a gutter")
	assert.Equal(t, Palette[Yellow], img.RGBAAt(CellWidth+1, 0))
}

func TestDrawConcealAndFlash(t *testing.T) {
	t.Parallel()
	block := rune(mosaicBase + 0x7F)
	pg := testPage(1, func(_, col int) Char {
		switch col {
		case 0:
			return Char{Unicode: block, Foreground: Red, Conceal: true}
		case 1:
			return Char{Unicode: block, Foreground: Red, Flash: true}
		}
		return Char{Unicode: ' '}
	})

	hidden := Image(pg, false, false)
	assert.Equal(t, Palette[Black], hidden.RGBAAt(5, 5))
	assert.Equal(t, Palette[Black], hidden.RGBAAt(CellWidth+5, 5))

	shown := Image(pg, true, true)
	assert.Equal(t, Palette[Red], shown.RGBAAt(5, 5))
	assert.Equal(t, Palette[Red], shown.RGBAAt(CellWidth+5, 5))
}

func TestDrawTextUsesForeground(t *testing.T) {
	t.Parallel()
	pg := testPage(1, func(_, col int) Char {
		if col == 0 {
			return Char{Unicode: 'H', Foreground: Cyan, Background: Blue}
		}
		return Char{Unicode: ' '}
	})
	img := Image(pg, false, true)

	var fg, bg int
	for y := 0; y < CellHeight; y++ {
		for x := 0; x < CellWidth; x++ {
			switch img.RGBAAt(x, y) {
			case Palette[Cyan]:
				fg++
			case Palette[Blue]:
				bg++
			}
		}
	}
	assert.Positive(t, fg)
	assert.Equal(t, CellWidth*CellHeight, fg+bg)
}

func TestDrawBGRA(t *testing.T) {
	t.Parallel()
	pg := testPage(1, func(int, int) Char { return Char{Unicode: ' ', Background: Red} })
	buf := make([]byte, PageColumns*CellWidth*CellHeight*4)
	require.NoError(t, DrawVTPage(pg, PixFmtBGRA32LE, buf, false, true))
	assert.Equal(t, []byte{0x00, 0x00, 0xFF, 0xFF}, buf[:4])
}

func TestGlyphRune(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 'A', glyphRune('A'))
	assert.Equal(t, 'a', glyphRune('ä'))
	assert.Equal(t, 'L', glyphRune('£'))
	assert.Equal(t, '?', glyphRune('■'+1))
}
