package pipeline

import (
	"sync"

	"github.com/pkg/errors"
)

// Sink receives buffers and events from an upstream pad.
type Sink interface {
	Chain(buf *Buffer) FlowReturn
	SinkEvent(ev *Event) bool
}

// CapsAcceptor is implemented by sinks that restrict the formats they
// receive.
type CapsAcceptor interface {
	AcceptCaps(caps *Caps) bool
}

// SrcPad is the output side of an element.
type SrcPad interface {
	Name() string
	// Template returns the formats the pad can ever produce.
	Template() *Caps
	// Caps returns the negotiated format, or nil.
	Caps() *Caps
	// SetCaps fixes the output format. It fails for caps outside the
	// template or rejected by the peer.
	SetCaps(caps *Caps) bool
	// AllocBuffer returns a buffer of size bytes carrying caps.
	AllocBuffer(size int, caps *Caps) (*Buffer, error)
	Push(buf *Buffer) FlowReturn
	PushEvent(ev *Event) bool
	Link(peer Sink)
	IsLinked() bool
}

var _ SrcPad = (*Pad)(nil)

// Pad is the SrcPad used by elements in this module.
type Pad struct {
	name     string
	template *Caps
	alloc    Allocator

	mu   sync.Mutex
	caps *Caps
	peer Sink
}

// NewPad creates an unlinked source pad. A nil allocator allocates from
// the heap.
func NewPad(name string, template *Caps, alloc Allocator) *Pad {
	if alloc == nil {
		alloc = HeapAllocator{}
	}
	return &Pad{name: name, template: template, alloc: alloc}
}

// Name implements SrcPad.
func (p *Pad) Name() string { return p.name }

// Template implements SrcPad.
func (p *Pad) Template() *Caps { return p.template }

// Caps implements SrcPad.
func (p *Pad) Caps() *Caps {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.caps
}

// SetCaps implements SrcPad.
func (p *Pad) SetCaps(caps *Caps) bool {
	if !caps.IsFixed() || !caps.CanIntersect(p.template) {
		return false
	}
	p.mu.Lock()
	peer := p.peer
	p.mu.Unlock()
	if a, ok := peer.(CapsAcceptor); ok && !a.AcceptCaps(caps) {
		return false
	}
	p.mu.Lock()
	p.caps = caps
	p.mu.Unlock()
	return true
}

// AllocBuffer implements SrcPad.
func (p *Pad) AllocBuffer(size int, caps *Caps) (*Buffer, error) {
	buf, err := p.alloc.Alloc(size)
	if err != nil {
		return nil, errors.Wrapf(err, "pad %s", p.name)
	}
	buf.Caps = caps
	return buf, nil
}

// Push implements SrcPad. The peer takes ownership of buf; an unlinked pad
// releases it.
func (p *Pad) Push(buf *Buffer) FlowReturn {
	p.mu.Lock()
	peer := p.peer
	p.mu.Unlock()
	if peer == nil {
		buf.Unref()
		return FlowNotLinked
	}
	return peer.Chain(buf)
}

// PushEvent implements SrcPad.
func (p *Pad) PushEvent(ev *Event) bool {
	p.mu.Lock()
	peer := p.peer
	p.mu.Unlock()
	if peer == nil {
		return false
	}
	return peer.SinkEvent(ev)
}

// Link implements SrcPad. A nil peer unlinks the pad.
func (p *Pad) Link(peer Sink) {
	p.mu.Lock()
	p.peer = peer
	p.mu.Unlock()
}

// IsLinked implements SrcPad.
func (p *Pad) IsLinked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.peer != nil
}
