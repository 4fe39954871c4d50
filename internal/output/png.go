package output

import (
	"fmt"
	"image/png"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// PNGWriter stores every frame as a numbered PNG file.
type PNGWriter struct {
	dir    string
	prefix string
}

// NewPNGWriter creates dir if needed. Files are named
// <prefix>-<seq>.png.
func NewPNGWriter(dir, prefix string) (*PNGWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "output: create directory")
	}
	return &PNGWriter{dir: dir, prefix: prefix}, nil
}

// Path returns the file a frame with the given sequence number goes to.
func (w *PNGWriter) Path(seq int) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s-%05d.png", w.prefix, seq))
}

// WriteFrame implements FrameWriter.
func (w *PNGWriter) WriteFrame(f *Frame) error {
	path := w.Path(f.Seq)
	tmp := path + ".tmp"
	fh, err := os.Create(tmp)
	if err != nil {
		return errors.Wrap(err, "output")
	}
	if err := png.Encode(fh, f.Image); err != nil {
		fh.Close()
		os.Remove(tmp)
		return errors.Wrapf(err, "output: encode %s", path)
	}
	if err := fh.Close(); err != nil {
		os.Remove(tmp)
		return errors.Wrap(err, "output")
	}
	return errors.Wrap(os.Rename(tmp, path), "output")
}
