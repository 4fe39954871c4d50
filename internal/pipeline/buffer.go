package pipeline

import (
	"github.com/oxtoacart/bpool"
	"github.com/pkg/errors"
)

// ErrBufferTooLarge is returned when a pool cannot serve a request.
var ErrBufferTooLarge = errors.New("pipeline: buffer larger than pool width")

// Buffer is a chunk of media data with timing and an optional format.
type Buffer struct {
	Data     []byte
	PTS      ClockTime
	Duration ClockTime
	Caps     *Caps

	release func()
}

// NewBuffer wraps data in an untimed buffer.
func NewBuffer(data []byte) *Buffer {
	return &Buffer{Data: data, PTS: ClockTimeNone, Duration: ClockTimeNone}
}

// Size returns the payload length.
func (b *Buffer) Size() int {
	return len(b.Data)
}

// Unref releases the buffer's memory to its allocator. The buffer must not
// be used afterwards. Calling Unref more than once is harmless.
func (b *Buffer) Unref() {
	if b.release != nil {
		b.release()
		b.release = nil
	}
}

// Allocator hands out buffers for pads to fill.
type Allocator interface {
	Alloc(size int) (*Buffer, error)
}

// HeapAllocator allocates every buffer fresh.
type HeapAllocator struct{}

// Alloc implements Allocator.
func (HeapAllocator) Alloc(size int) (*Buffer, error) {
	if size < 0 {
		return nil, errors.Errorf("pipeline: negative buffer size %d", size)
	}
	return NewBuffer(make([]byte, size)), nil
}

// PoolAllocator recycles fixed width byte slices. Requests wider than the
// pool fail, which bounds the memory a misbehaving producer can hold.
type PoolAllocator struct {
	pool  *bpool.BytePool
	width int
}

// NewPoolAllocator keeps up to count idle slices of width bytes.
func NewPoolAllocator(count, width int) *PoolAllocator {
	return &PoolAllocator{
		pool:  bpool.NewBytePool(count, width),
		width: width,
	}
}

// Width returns the largest buffer the pool can serve.
func (p *PoolAllocator) Width() int {
	return p.width
}

// Alloc implements Allocator.
func (p *PoolAllocator) Alloc(size int) (*Buffer, error) {
	if size < 0 || size > p.width {
		return nil, errors.Wrapf(ErrBufferTooLarge, "requested %d, width %d", size, p.width)
	}
	b := p.pool.Get()
	buf := NewBuffer(b[:size])
	buf.release = func() { p.pool.Put(b) }
	return buf, nil
}
