package output

import (
	"image"

	"github.com/pkg/errors"

	"github.com/zsiec/teletextdec/internal/pipeline"
)

// ErrNoFormat is returned for a buffer whose caps do not describe a raster.
var ErrNoFormat = errors.New("output: buffer has no raster format")

// Frame is one rendered page, copied out of its pipeline buffer.
type Frame struct {
	Seq   int
	PTS   pipeline.ClockTime
	Image *image.RGBA
}

// NewFrame copies an RGBA buffer into a Frame. The buffer's caps give the
// raster size.
func NewFrame(seq int, buf *pipeline.Buffer) (*Frame, error) {
	if buf.Caps.IsEmpty() {
		return nil, ErrNoFormat
	}
	s := buf.Caps.Structure(0)
	w, okW := s.Int("width")
	h, okH := s.Int("height")
	if !okW || !okH || w <= 0 || h <= 0 {
		return nil, errors.Wrapf(ErrNoFormat, "caps %s", buf.Caps)
	}
	if len(buf.Data) < w*h*4 {
		return nil, errors.Errorf("output: %dx%d frame needs %d bytes, buffer has %d", w, h, w*h*4, len(buf.Data))
	}

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	copy(img.Pix, buf.Data)
	return &Frame{Seq: seq, PTS: buf.PTS, Image: img}, nil
}
