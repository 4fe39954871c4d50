package output

import (
	"bufio"
	"fmt"
	"image"
	"io"

	"github.com/fatih/color"

	"github.com/zsiec/teletextdec/internal/vbi"
)

// Each terminal character covers half a teletext cell: a 6x10 pixel block
// drawn as an upper half block with separate top and bottom colors.
const (
	blockWidth  = vbi.CellWidth / 2
	blockHeight = vbi.CellHeight
	upperHalf   = "▀"
)

var (
	fgAttrs = [8]color.Attribute{color.FgBlack, color.FgRed, color.FgGreen, color.FgYellow,
		color.FgBlue, color.FgMagenta, color.FgCyan, color.FgWhite}
	bgAttrs = [8]color.Attribute{color.BgBlack, color.BgRed, color.BgGreen, color.BgYellow,
		color.BgBlue, color.BgMagenta, color.BgCyan, color.BgWhite}
)

// ANSIPrinter prints a reduced preview of each frame with terminal colors.
type ANSIPrinter struct {
	w      io.Writer
	styles [8][8]*color.Color
}

// NewANSIPrinter prints to w. Colors are forced on when force is set,
// otherwise they follow the terminal detection of the color package.
func NewANSIPrinter(w io.Writer, force bool) *ANSIPrinter {
	p := &ANSIPrinter{w: w}
	for fg := range p.styles {
		for bg := range p.styles[fg] {
			c := color.New(fgAttrs[fg], bgAttrs[bg])
			if force {
				c.EnableColor()
			}
			p.styles[fg][bg] = c
		}
	}
	return p
}

// WriteFrame implements FrameWriter.
func (p *ANSIPrinter) WriteFrame(f *Frame) error {
	bw := bufio.NewWriter(p.w)
	fmt.Fprintf(bw, "frame %d pts %s\n", f.Seq, f.PTS)

	b := f.Image.Bounds()
	for y := b.Min.Y; y+blockHeight <= b.Max.Y; y += blockHeight {
		for x := b.Min.X; x+blockWidth <= b.Max.X; x += blockWidth {
			top := dominant(f.Image, image.Rect(x, y, x+blockWidth, y+blockHeight/2))
			bottom := dominant(f.Image, image.Rect(x, y+blockHeight/2, x+blockWidth, y+blockHeight))
			p.styles[top][bottom].Fprint(bw, upperHalf)
		}
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// dominant returns the palette index covering most of r.
func dominant(img *image.RGBA, r image.Rectangle) int {
	var count [8]int
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			c := img.RGBAAt(x, y)
			count[nearest(c.R, c.G, c.B)]++
		}
	}
	best := 0
	for i, n := range count {
		if n > count[best] {
			best = i
		}
	}
	return best
}

// nearest maps a pixel to the closest palette color.
func nearest(r, g, b uint8) int {
	best, bestDist := 0, -1
	for i, c := range vbi.Palette {
		dr, dg, db := int(r)-int(c.R), int(g)-int(c.G), int(b)-int(c.B)
		if d := dr*dr + dg*dg + db*db; bestDist < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}
