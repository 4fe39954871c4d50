package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

const fileReadBufferSize = 188 * 348

// FileSource feeds a transport stream file, or standard input when Path
// is "-", into a registry stream.
type FileSource struct {
	Path   string
	Key    string
	Format InputFormat

	log      *slog.Logger
	registry *Registry
	stdin    io.Reader
}

// NewFileSource creates a source for path that registers under key. If
// log is nil, slog.Default() is used.
func NewFileSource(path, key string, format InputFormat, registry *Registry, log *slog.Logger) *FileSource {
	if log == nil {
		log = slog.Default()
	}
	return &FileSource{
		Path:     path,
		Key:      key,
		Format:   format,
		log:      log.With("component", "file-ingest"),
		registry: registry,
		stdin:    os.Stdin,
	}
}

// Run copies the file into the registry until EOF or context cancellation
// and then unregisters the stream.
func (f *FileSource) Run(ctx context.Context) error {
	var src io.Reader = f.stdin
	name := "stdin"
	if f.Path != "-" {
		fh, err := os.Open(f.Path)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer fh.Close()
		src, name = fh, f.Path
	}

	stream, w := f.registry.Register(f.Key, f.Format)
	stream.SetRemoteAddr(name)
	defer f.registry.Release(stream)

	f.log.Info("reading", "input", name, "stream_key", f.Key)
	err := Pump(stream, w, src, make([]byte, fileReadBufferSize), ctx.Done())
	if errors.Is(err, io.ErrClosedPipe) {
		// The consumer stopped early; nothing more to deliver.
		err = nil
	}
	stats := stream.Stats()
	f.log.Info("input finished", "input", name,
		"bytes", stats.BytesReceived, "reads", stats.ReadCount)
	return err
}
