package vbi

import "fmt"

// Page geometry of a level 1 teletext page.
const (
	PageRows    = 25
	PageColumns = 40
)

// AnySubno asks FetchVTPage for the most recently received sub-page.
const AnySubno = 0x3F7F

// Level is the teletext presentation level requested when fetching a page.
type Level int

// Presentation levels. The decoder formats level 1.5 features; higher
// levels are accepted and render like 1.5.
const (
	Level1 Level = iota
	Level1p5
	Level2p5
	Level3p5
)

// Color is a teletext palette index.
type Color uint8

// Level 1 palette.
const (
	Black Color = iota
	Red
	Green
	Yellow
	Blue
	Magenta
	Cyan
	White
)

// Size is the display size of a character cell.
type Size uint8

// Character sizes. DoubleHeightLower marks the cell below a double height
// character, which is drawn from the cell above.
const (
	Normal Size = iota
	DoubleHeight
	DoubleHeightLower
)

// PageFlags are the control bits C4-C14 of a page header.
type PageFlags uint16

// Page header control bits.
const (
	FlagErasePage      PageFlags = 1 << 4
	FlagNewsflash      PageFlags = 1 << 5
	FlagSubtitle       PageFlags = 1 << 6
	FlagSuppressHead   PageFlags = 1 << 7
	FlagUpdate         PageFlags = 1 << 8
	FlagInterruptSeq   PageFlags = 1 << 9
	FlagInhibitDisp    PageFlags = 1 << 10
	FlagMagazineSerial PageFlags = 1 << 11
)

// Mosaic characters are stored in a private use block. The low seven bits
// are the transmitted character code; sextant bits are 0x01, 0x02, 0x04,
// 0x08, 0x10 and 0x40.
const mosaicBase = 0xEE00

// IsMosaic reports whether r is a block mosaic character and returns its
// sextant pattern.
func IsMosaic(r rune) (uint8, bool) {
	if r < mosaicBase || r > mosaicBase+0x7F {
		return 0, false
	}
	return uint8(r-mosaicBase) & 0x5F, true
}

// Char is one formatted character cell.
type Char struct {
	Unicode    rune
	Foreground Color
	Background Color
	Flash      bool
	Conceal    bool
	Separated  bool
	Size       Size
}

// Link is a page reference from a FLOF navigation packet.
type Link struct {
	Pgno  int
	Subno int
}

// Page is a formatted teletext page borrowed from a Decoder's cache.
// Call Unref when done with it.
type Page struct {
	Pgno     int
	Subno    int
	Rows     int
	Columns  int
	Flags    PageFlags
	National int
	Text     []Char
	Nav      [6]Link

	release func()
}

// At returns the character at row, column.
func (p *Page) At(row, col int) Char {
	return p.Text[row*p.Columns+col]
}

// RowString returns the text of one row with control positions and mosaics
// shown as spaces.
func (p *Page) RowString(row int) string {
	rs := make([]rune, p.Columns)
	for col := range rs {
		r := p.At(row, col).Unicode
		if _, ok := IsMosaic(r); ok || r < 0x20 {
			r = ' '
		}
		rs[col] = r
	}
	return string(rs)
}

// Unref returns the page to the cache it was fetched from. Calling Unref
// more than once has no effect.
func (p *Page) Unref() {
	if p.release != nil {
		p.release()
		p.release = nil
	}
}

// rawPage is a page as transmitted: parity checked 7-bit codes per row.
type rawPage struct {
	pgno     int
	subno    int
	flags    PageFlags
	national int
	rows     [PageRows][PageColumns]byte
	received uint32
	links    [6]Link
	hasLinks bool
}

func newRawPage(pgno, subno int, flags PageFlags, national int) *rawPage {
	rp := &rawPage{
		pgno:     pgno,
		subno:    subno,
		flags:    flags,
		national: national,
	}
	for r := range rp.rows {
		for c := range rp.rows[r] {
			rp.rows[r][c] = ' '
		}
	}
	return rp
}

func (rp *rawPage) clone() *rawPage {
	c := *rp
	return &c
}

func (rp *rawPage) hasRow(row int) bool {
	return rp.received&(1<<uint(row)) != 0
}

// nationalPositions are the G0 codes replaced by a national option subset.
var nationalPositions = [13]byte{0x23, 0x24, 0x40, 0x5B, 0x5C, 0x5D, 0x5E, 0x5F, 0x60, 0x7B, 0x7C, 0x7D, 0x7E}

// nationalSubsets is indexed by the C12-C14 code of the page header.
var nationalSubsets = [8][13]rune{
	{'£', '$', '@', '←', '½', '→', '↑', '#', '—', '¼', '‖', '¾', '÷'}, // English
	{'#', '$', '§', 'Ä', 'Ö', 'Ü', '^', '_', '°', 'ä', 'ö', 'ü', 'ß'}, // German
	{'#', '¤', 'É', 'Ä', 'Ö', 'Å', 'Ü', '_', 'é', 'ä', 'ö', 'å', 'ü'}, // Swedish/Finnish
	{'£', '$', 'é', '°', 'ç', '→', '↑', '#', 'ù', 'à', 'ò', 'è', 'ì'}, // Italian
	{'é', 'ï', 'à', 'ë', 'ê', 'ù', 'î', '#', 'è', 'â', 'ô', 'û', 'ç'}, // French
	{'ç', '$', '¡', 'á', 'é', 'í', 'ó', 'ú', '¿', 'ü', 'ñ', 'è', 'à'}, // Portuguese/Spanish
	{'#', 'ů', 'č', 'ť', 'ž', 'ý', 'í', 'ř', 'é', 'á', 'ě', 'ú', 'š'}, // Czech/Slovak
	{'£', '$', '@', '←', '½', '→', '↑', '#', '—', '¼', '‖', '¾', '÷'}, // reserved, English
}

// textRune maps a G0 code to Unicode under the given national subset.
func textRune(code byte, national int) rune {
	if code == 0x7F {
		return '■'
	}
	for i, pos := range nationalPositions {
		if pos == code {
			return nationalSubsets[national&7][i]
		}
	}
	return rune(code)
}

// format converts a raw page into displayable characters by applying the
// level 1 spacing attributes row by row.
func format(rp *rawPage, rows int, navigation bool) *Page {
	pg := &Page{
		Pgno:     rp.pgno,
		Subno:    rp.subno,
		Rows:     rows,
		Columns:  PageColumns,
		Flags:    rp.flags,
		National: rp.national,
		Text:     make([]Char, rows*PageColumns),
		Nav:      rp.links,
	}

	src := rp.rows
	header := fmt.Sprintf(" P%03x   ", rp.pgno)
	for c := 0; c < 8; c++ {
		src[0][c] = header[c]
	}
	if rp.flags&FlagSuppressHead != 0 {
		for c := range src[0] {
			src[0][c] = ' '
		}
	}
	if navigation && rows == PageRows && !rp.hasRow(24) && rp.hasLinks {
		src[24] = navigationRow(rp.links)
	}

	doubleAbove := false
	for r := 0; r < rows; r++ {
		line := pg.Text[r*PageColumns : (r+1)*PageColumns]
		if doubleAbove {
			above := pg.Text[(r-1)*PageColumns : r*PageColumns]
			for c := range line {
				line[c] = above[c]
				if above[c].Size == DoubleHeight {
					line[c].Size = DoubleHeightLower
				} else {
					line[c].Unicode = ' '
				}
			}
			doubleAbove = false
			continue
		}
		doubleAbove = formatRow(line, src[r][:], rp.national) && r > 0 && r < 23
	}
	return pg
}

// formatRow formats one row and reports whether it used double height.
func formatRow(line []Char, codes []byte, national int) bool {
	var (
		fg, bg            = White, Black
		mosaic, separated bool
		flash, conceal    bool
		hold              bool
		held              byte = ' '
		heldSeparated     bool
		size              = Normal
		double            bool
	)

	for c, code := range codes {
		// Set-at attributes take effect on this cell.
		switch code {
		case 0x09:
			flash = false
		case 0x0C:
			size = Normal
		case 0x18:
			conceal = true
		case 0x19:
			separated = false
		case 0x1A:
			separated = true
		case 0x1C:
			bg = Black
		case 0x1D:
			bg = fg
		case 0x1E:
			hold = true
		}

		ch := Char{
			Foreground: fg,
			Background: bg,
			Flash:      flash,
			Conceal:    conceal,
			Size:       size,
		}
		switch {
		case code < 0x20:
			ch.Unicode = ' '
			if hold && mosaic {
				ch.Unicode = mosaicBase + rune(held)
				ch.Separated = heldSeparated
			}
		case mosaic && code&0x20 != 0:
			ch.Unicode = mosaicBase + rune(code)
			ch.Separated = separated
			held, heldSeparated = code, separated
		default:
			ch.Unicode = textRune(code, national)
		}
		line[c] = ch

		// Set-after attributes take effect from the next cell.
		wasMosaic := mosaic
		switch {
		case code <= 0x07:
			fg, mosaic, conceal = Color(code), false, false
		case code == 0x08:
			flash = true
		case code == 0x0D:
			size, double = DoubleHeight, true
		case code >= 0x10 && code <= 0x17:
			fg, mosaic, conceal = Color(code-0x10), true, false
		case code == 0x1F:
			hold = false
		}
		if mosaic != wasMosaic {
			held, heldSeparated = ' ', false
		}
	}
	return double
}

// navigationRow builds a FLOF style row 24 from the page links: red,
// green, yellow and cyan keys, ten columns each.
var navigationColors = [4]Color{Red, Green, Yellow, Cyan}

func navigationRow(links [6]Link) [PageColumns]byte {
	var row [PageColumns]byte
	for i := range row {
		row[i] = ' '
	}
	for i := 0; i < 4; i++ {
		pgno := links[i].Pgno
		if pgno < 0x100 || pgno > 0x8FF {
			continue
		}
		cell := row[i*10 : i*10+10]
		cell[0] = byte(navigationColors[i])
		copy(cell[2:], fmt.Sprintf("P%03x", pgno))
	}
	return row
}
