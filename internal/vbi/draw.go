package vbi

import (
	"image"
	"image/color"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/unicode/norm"
)

// Character cell size in pixels.
const (
	CellWidth  = 12
	CellHeight = 10
)

// Glyph placement of the 7x13 face inside a cell. The face's top two rows
// and last descender row fall outside the cell.
const (
	glyphX        = (CellWidth - 7) / 2
	glyphBaseline = 9
)

// PixFmt is the memory layout of a drawn image.
type PixFmt int

// Supported pixel formats.
const (
	// PixFmtRGBA32LE stores R, G, B, A bytes in increasing addresses.
	PixFmtRGBA32LE PixFmt = iota
	// PixFmtBGRA32LE stores B, G, R, A bytes in increasing addresses.
	PixFmtBGRA32LE
)

// ErrUnsupportedFormat is returned for an unknown PixFmt.
var ErrUnsupportedFormat = errors.New("vbi: unsupported pixel format")

// ErrShortBuffer is returned when the destination cannot hold the page.
var ErrShortBuffer = errors.New("vbi: destination buffer too small")

// Palette maps teletext colors to RGBA.
var Palette = [8]color.RGBA{
	Black:   {0x00, 0x00, 0x00, 0xFF},
	Red:     {0xFF, 0x00, 0x00, 0xFF},
	Green:   {0x00, 0xFF, 0x00, 0xFF},
	Yellow:  {0xFF, 0xFF, 0x00, 0xFF},
	Blue:    {0x00, 0x00, 0xFF, 0xFF},
	Magenta: {0xFF, 0x00, 0xFF, 0xFF},
	Cyan:    {0x00, 0xFF, 0xFF, 0xFF},
	White:   {0xFF, 0xFF, 0xFF, 0xFF},
}

// ImageSize returns the pixel dimensions of a drawn page.
func ImageSize(pg *Page) (width, height int) {
	return pg.Columns * CellWidth, pg.Rows * CellHeight
}

// DrawVTPage draws pg into dst, which must hold width*height 32-bit pixels
// without row padding. Concealed characters are drawn only if reveal is
// set; flashing characters only if flashOn is set.
func DrawVTPage(pg *Page, pf PixFmt, dst []byte, reveal, flashOn bool) error {
	if pf != PixFmtRGBA32LE && pf != PixFmtBGRA32LE {
		return errors.Wrapf(ErrUnsupportedFormat, "format %d", pf)
	}
	w, h := ImageSize(pg)
	if len(dst) < w*h*4 {
		return errors.Wrapf(ErrShortBuffer, "need %d bytes, have %d", w*h*4, len(dst))
	}
	img := &image.RGBA{
		Pix:    dst[:w*h*4],
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
	drawPage(img, pg, reveal, flashOn)
	if pf == PixFmtBGRA32LE {
		for i := 0; i < len(img.Pix); i += 4 {
			img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		}
	}
	return nil
}

// Image draws pg into a new RGBA image.
func Image(pg *Page, reveal, flashOn bool) *image.RGBA {
	w, h := ImageSize(pg)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	drawPage(img, pg, reveal, flashOn)
	return img
}

func drawPage(img *image.RGBA, pg *Page, reveal, flashOn bool) {
	for row := 0; row < pg.Rows; row++ {
		for col := 0; col < pg.Columns; col++ {
			ch := pg.At(row, col)
			visible := (reveal || !ch.Conceal) && (flashOn || !ch.Flash)
			drawCell(img, col*CellWidth, row*CellHeight, ch, visible)
		}
	}
}

func drawCell(img *image.RGBA, x0, y0 int, ch Char, visible bool) {
	fg := Palette[ch.Foreground&7]
	bg := Palette[ch.Background&7]

	var mask *image.Alpha
	if visible && ch.Unicode != ' ' {
		mask = cellMask(ch.Unicode, ch.Separated)
	}

	for py := 0; py < CellHeight; py++ {
		my := py
		switch ch.Size {
		case DoubleHeight:
			my = py / 2
		case DoubleHeightLower:
			my = CellHeight/2 + py/2
		}
		off := img.PixOffset(x0, y0+py)
		for px := 0; px < CellWidth; px++ {
			c := bg
			if mask != nil && mask.Pix[my*mask.Stride+px] >= 0x80 {
				c = fg
			}
			p := img.Pix[off+px*4 : off+px*4+4 : off+px*4+4]
			p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
		}
	}
}

type maskKey struct {
	r         rune
	separated bool
}

// masks caches one coverage mask per drawn character.
var masks sync.Map

func cellMask(r rune, separated bool) *image.Alpha {
	key := maskKey{r, separated}
	if m, ok := masks.Load(key); ok {
		return m.(*image.Alpha)
	}
	m := image.NewAlpha(image.Rect(0, 0, CellWidth, CellHeight))
	if bits, ok := IsMosaic(r); ok {
		drawMosaic(m, bits, separated)
	} else if r == '■' {
		fillAlpha(m, image.Rect(1, 1, CellWidth-1, CellHeight-1))
	} else {
		d := &font.Drawer{
			Dst:  m,
			Src:  image.Opaque,
			Face: basicfont.Face7x13,
			Dot:  fixed.P(glyphX, glyphBaseline),
		}
		d.DrawString(string(glyphRune(r)))
	}
	actual, _ := masks.LoadOrStore(key, m)
	return actual.(*image.Alpha)
}

// Sextant layout: two columns of six pixels, rows of three, four and three
// pixels.
var (
	sextantCols = [3]int{0, CellWidth / 2, CellWidth}
	sextantRows = [4]int{0, 3, 7, CellHeight}
	sextantBits = [6]uint8{0x01, 0x02, 0x04, 0x08, 0x10, 0x40}
)

func drawMosaic(m *image.Alpha, bits uint8, separated bool) {
	for i, bit := range sextantBits {
		if bits&bit == 0 {
			continue
		}
		col, row := i%2, i/2
		r := image.Rect(sextantCols[col], sextantRows[row], sextantCols[col+1], sextantRows[row+1])
		if separated {
			r.Min.X++
			r.Max.Y--
			r.Max.X--
		}
		fillAlpha(m, r)
	}
}

func fillAlpha(m *image.Alpha, r image.Rectangle) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Pix[m.PixOffset(x, y)] = 0xFF
		}
	}
}

// glyphFold maps characters outside the face's ASCII range to a drawable
// stand-in.
var glyphFold = map[rune]rune{
	'←': '<', '→': '>', '↑': '^', '—': '-', '‖': '|', '÷': '/',
	'½': '%', '¼': '%', '¾': '%', '£': 'L', '§': 'S', '°': 'o',
	'¤': '*', '¡': '!', '¿': '?', 'ß': 's',
}

func glyphRune(r rune) rune {
	if r >= 0x20 && r < 0x7F {
		return r
	}
	if g, ok := glyphFold[r]; ok {
		return g
	}
	// Latin letters with diacritics draw as their base letter.
	if d := norm.NFD.String(string(r)); len(d) > 0 && d[0] >= 0x20 && d[0] < 0x7F {
		return rune(d[0])
	}
	return '?'
}
