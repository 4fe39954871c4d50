// Package ingest manages the byte sources feeding the decoder: files,
// standard input and SRT connections. Each source registers a Stream whose
// reader side is handed to the demux stage.
package ingest

import (
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// InputFormat identifies the container format of an ingested stream.
type InputFormat int

// Supported ingest container formats.
const (
	FormatMPEGTS InputFormat = iota
	// FormatMPEGTS204 is a transport stream with 16 bytes of Reed-Solomon
	// parity after each packet.
	FormatMPEGTS204
)

// PacketSize returns the on-wire transport packet size of the format.
func (f InputFormat) PacketSize() int {
	if f == FormatMPEGTS204 {
		return 204
	}
	return 188
}

func (f InputFormat) String() string {
	if f == FormatMPEGTS204 {
		return "mpegts-204"
	}
	return "mpegts"
}

// Stats captures connection-level metrics for an ingest stream.
type Stats struct {
	BytesReceived int64  `json:"bytesReceived"`
	ReadCount     int64  `json:"readCount"`
	ConnectedAt   int64  `json:"connectedAt"`
	UptimeMs      int64  `json:"uptimeMs"`
	RemoteAddr    string `json:"remoteAddr"`
}

// Stream is an active ingest source. Bytes the source writes into the
// stream's pipe are read by the demux stage from Input.
type Stream struct {
	Key       string
	StartedAt time.Time
	Format    InputFormat

	input io.ReadCloser
	pw    io.WriteCloser
	done  chan struct{}
	once  sync.Once

	bytesReceived atomic.Int64
	readCount     atomic.Int64
	remoteAddr    atomic.String
}

// Input returns the reader side of the stream.
func (s *Stream) Input() io.Reader {
	return s.input
}

// CloseInput closes the reader side. A source blocked writing into the
// stream gets io.ErrClosedPipe.
func (s *Stream) CloseInput() {
	s.input.Close()
}

// Done is closed when the stream is unregistered.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// RecordRead adds one read of n bytes to the counters.
func (s *Stream) RecordRead(n int) {
	s.bytesReceived.Add(int64(n))
	s.readCount.Inc()
}

// SetRemoteAddr stores the peer address (or file name) for diagnostics.
func (s *Stream) SetRemoteAddr(addr string) {
	s.remoteAddr.Store(addr)
}

// Stats returns a snapshot of the stream counters.
func (s *Stream) Stats() Stats {
	return Stats{
		BytesReceived: s.bytesReceived.Load(),
		ReadCount:     s.readCount.Load(),
		ConnectedAt:   s.StartedAt.UnixMilli(),
		UptimeMs:      time.Since(s.StartedAt).Milliseconds(),
		RemoteAddr:    s.remoteAddr.Load(),
	}
}

// Registry tracks active streams by key and hands every new stream to the
// onStream callback, which sets up the decode pipeline for it.
type Registry struct {
	mu      sync.RWMutex
	streams map[string]*Stream

	onStream func(s *Stream)
}

// NewRegistry creates a Registry. The onStream callback is invoked
// asynchronously whenever a new stream is registered.
func NewRegistry(onStream func(s *Stream)) *Registry {
	return &Registry{
		streams:  make(map[string]*Stream),
		onStream: onStream,
	}
}

// Register creates a stream with the given key and format and returns it
// together with the writer the source should fill. A stream already
// registered under key is replaced and closed.
func (r *Registry) Register(key string, format InputFormat) (*Stream, io.Writer) {
	pr, pw := io.Pipe()

	stream := &Stream{
		Key:       key,
		StartedAt: time.Now(),
		Format:    format,
		input:     pr,
		pw:        pw,
		done:      make(chan struct{}),
	}

	r.mu.Lock()
	old := r.streams[key]
	r.streams[key] = stream
	r.mu.Unlock()

	if old != nil {
		old.close()
	}
	if r.onStream != nil {
		go r.onStream(stream)
	}
	return stream, pw
}

// Unregister removes the stream registered under key, closing its pipe so
// the reader sees EOF.
func (r *Registry) Unregister(key string) {
	r.mu.Lock()
	stream, ok := r.streams[key]
	if ok {
		delete(r.streams, key)
	}
	r.mu.Unlock()

	if ok {
		stream.close()
	}
}

// Release removes s if it is still the stream registered under its key and
// closes it. A stream that has already been replaced is only closed.
func (r *Registry) Release(s *Stream) {
	r.mu.Lock()
	if r.streams[s.Key] == s {
		delete(r.streams, s.Key)
	}
	r.mu.Unlock()
	s.close()
}

func (s *Stream) close() {
	s.once.Do(func() {
		s.pw.Close()
		close(s.done)
	})
}

// Get returns the stream registered under key.
func (r *Registry) Get(key string) (*Stream, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.streams[key]
	return s, ok
}

// Keys returns the keys of all active streams in sorted order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.streams))
	for k := range r.streams {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	sort.Strings(keys)
	return keys
}

// Pump copies src into the stream's writer w using buf, recording every
// read. It returns nil when src is exhausted or done fires, and the write
// error when the reader side of the pipe has gone away.
func Pump(stream *Stream, w io.Writer, src io.Reader, buf []byte, done <-chan struct{}) error {
	for {
		select {
		case <-done:
			return nil
		default:
		}
		n, err := src.Read(buf)
		if n > 0 {
			stream.RecordRead(n)
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
