package mpegts

import "sort"

// pidBuffer collects the packets of one PID until the unit they carry is
// complete: at the next payload unit start, when a PSI section or a
// bounded PES packet has all its bytes, or at end of stream.
type pidBuffer struct {
	pid     uint16
	psi     bool
	packets []*Packet
	size    int

	ccErrors int64
}

func (b *pidBuffer) reset() []*Packet {
	out := b.packets
	b.packets, b.size = nil, 0
	return out
}

// add buffers p and returns the packets of a completed unit, if any.
func (b *pidBuffer) add(p *Packet) []*Packet {
	if p.Header.TransportError {
		b.reset()
		return nil
	}
	if !p.Header.HasPayload {
		return nil
	}

	if n := len(b.packets); n > 0 && !p.Header.Discontinuity {
		prev := b.packets[n-1].Header.ContinuityCounter
		switch p.Header.ContinuityCounter {
		case (prev + 1) & 0x0F:
		case prev:
			return nil // duplicate
		default:
			b.ccErrors++
			b.reset()
		}
	}

	var done []*Packet
	if p.Header.PayloadUnitStart {
		done = b.reset()
	} else if len(b.packets) == 0 {
		// Continuation of a unit whose start we never saw.
		return nil
	}

	b.packets = append(b.packets, p)
	b.size += len(p.Payload)

	if done == nil && b.complete() {
		done = b.reset()
	}
	return done
}

func (b *pidBuffer) payload() []byte {
	out := make([]byte, 0, b.size)
	for _, p := range b.packets {
		out = append(out, p.Payload...)
	}
	return out
}

func (b *pidBuffer) complete() bool {
	if b.psi {
		return sectionComplete(b.payload())
	}
	first := b.packets[0].Payload
	if !isPESPayload(first) {
		return false
	}
	n := pesLength(first)
	return n > 0 && b.size >= n
}

// pidBuffers holds one pidBuffer per PID.
type pidBuffers struct {
	m   map[uint16]*pidBuffer
	psi func(pid uint16) bool
}

func newPIDBuffers(psi func(pid uint16) bool) *pidBuffers {
	return &pidBuffers{m: make(map[uint16]*pidBuffer), psi: psi}
}

func (bs *pidBuffers) add(p *Packet) []*Packet {
	pid := p.Header.PID
	b, ok := bs.m[pid]
	if !ok {
		b = &pidBuffer{pid: pid}
		bs.m[pid] = b
	}
	b.psi = bs.psi(pid)
	return b.add(p)
}

func (bs *pidBuffers) ccErrors() int64 {
	var n int64
	for _, b := range bs.m {
		n += b.ccErrors
	}
	return n
}

// drain returns all partially collected units, lowest PID first so the
// PAT is handled before any PMT.
func (bs *pidBuffers) drain() [][]*Packet {
	pids := make([]int, 0, len(bs.m))
	for pid := range bs.m {
		pids = append(pids, int(pid))
	}
	sort.Ints(pids)

	var out [][]*Packet
	for _, pid := range pids {
		if ps := bs.m[uint16(pid)].reset(); ps != nil {
			out = append(out, ps)
		}
	}
	return out
}
