package vbi

import (
	"log/slog"
	"math/bits"
)

const (
	pesPrivateStream1 = 0xBD

	dataUnitTeletext         = 0x02
	dataUnitTeletextSubtitle = 0x03
	dataUnitStuffing         = 0xFF

	dataUnitTeletextLength = 0x2C
	framingCode            = 0xE4

	// Lines of the second field are numbered from 313 in 625-line systems.
	secondFieldOffset = 313

	maxSlicedPerPacket = 64
)

// DemuxFunc receives the lines sliced out of one PES packet together with
// the packet's 90 kHz presentation timestamp (the last seen one if the
// packet carries none, or -1 before the first). Returning false makes the
// current Feed report failure; demultiplexing continues regardless.
type DemuxFunc func(dx *DVBDemux, sliced []Sliced, pts int64) bool

// DVBDemux extracts sliced teletext lines from DVB PES packets. Packets
// may be split across Feed calls in any way.
type DVBDemux struct {
	log      *slog.Logger
	callback DemuxFunc
	buf      []byte
	sliced   []Sliced
	lastPTS  int64
}

// NewDVBPESDemux creates a demultiplexer that delivers every decoded PES
// packet to cb. If log is nil, slog.Default() is used.
func NewDVBPESDemux(cb DemuxFunc, log *slog.Logger) *DVBDemux {
	if log == nil {
		log = slog.Default()
	}
	return &DVBDemux{
		log:      log.With("component", "dvb-demux"),
		callback: cb,
		sliced:   make([]Sliced, 0, maxSlicedPerPacket),
		lastPTS:  -1,
	}
}

// Reset discards partially received packets.
func (dx *DVBDemux) Reset() {
	dx.buf = dx.buf[:0]
	dx.lastPTS = -1
}

// Delete releases the demultiplexer. It must not be used afterwards.
func (dx *DVBDemux) Delete() {
	dx.buf = nil
	dx.sliced = nil
	dx.callback = nil
}

// Feed appends data to the demultiplexer and processes every complete PES
// packet. It returns false if any packet was malformed or the callback
// reported failure. Malformed input is skipped, never fatal.
func (dx *DVBDemux) Feed(data []byte) bool {
	ok := true
	dx.buf = append(dx.buf, data...)

	for {
		start := findPrivateStream(dx.buf)
		if start < 0 {
			// Keep a possible start code prefix for the next call.
			if n := len(dx.buf); n > 3 {
				dx.buf = append(dx.buf[:0], dx.buf[n-3:]...)
			}
			return ok
		}
		if start > 0 {
			dx.log.Debug("skipping bytes before PES start code", "bytes", start)
			dx.buf = append(dx.buf[:0], dx.buf[start:]...)
		}
		if len(dx.buf) < 6 {
			return ok
		}

		packetLength := int(dx.buf[4])<<8 | int(dx.buf[5])
		if packetLength == 0 {
			// Teletext PES packets are always bounded.
			dx.log.Debug("unbounded teletext PES packet")
			ok = false
			dx.buf = append(dx.buf[:0], dx.buf[4:]...)
			continue
		}
		total := 6 + packetLength
		if len(dx.buf) < total {
			return ok
		}

		if !dx.packet(dx.buf[:total]) {
			ok = false
		}
		dx.buf = append(dx.buf[:0], dx.buf[total:]...)
	}
}

// packet decodes one complete PES packet.
func (dx *DVBDemux) packet(p []byte) bool {
	if len(p) < 9 {
		return false
	}
	headerDataLength := int(p[8])
	if p[7]>>6&0x02 != 0 && len(p) >= 14 {
		dx.lastPTS = int64(p[9]>>1&0x07)<<30 |
			int64(p[10])<<22 |
			int64(p[11]>>1)<<15 |
			int64(p[12])<<7 |
			int64(p[13]>>1)
	}

	payloadStart := 9 + headerDataLength
	if payloadStart >= len(p) {
		dx.log.Debug("PES header exceeds packet", "header_length", headerDataLength)
		return false
	}
	payload := p[payloadStart:]

	// EBU data in DVB bitstreams uses data identifiers 0x10-0x1F.
	if id := payload[0]; id < 0x10 || id > 0x1F {
		dx.log.Debug("unsupported data identifier", "data_identifier", id)
		return false
	}

	ok := true
	dx.sliced = dx.sliced[:0]
	for off := 1; off < len(payload); {
		if off+2 > len(payload) {
			ok = false
			break
		}
		unitID := payload[off]
		unitLength := int(payload[off+1])
		unit := payload[off+2:]
		if unitLength > len(unit) {
			dx.log.Debug("truncated data unit", "data_unit_id", unitID, "length", unitLength)
			ok = false
			break
		}
		unit = unit[:unitLength]
		off += 2 + unitLength

		switch unitID {
		case dataUnitTeletext, dataUnitTeletextSubtitle:
			if unitLength != dataUnitTeletextLength {
				ok = false
				continue
			}
			if s, valid := sliceTeletext(unit); valid && len(dx.sliced) < maxSlicedPerPacket {
				dx.sliced = append(dx.sliced, s)
			}
		case dataUnitStuffing:
		default:
			// Other EBU data units (VPS, WSS, closed caption) are not decoded.
		}
	}

	if len(dx.sliced) > 0 && dx.callback != nil {
		if !dx.callback(dx, dx.sliced, dx.lastPTS) {
			ok = false
		}
	}
	return ok
}

// sliceTeletext converts one EBU teletext data unit into a sliced line.
// Data units carry bytes in transmission order, least significant bit
// first.
func sliceTeletext(unit []byte) (Sliced, bool) {
	var s Sliced
	if unit[1] != framingCode {
		return s, false
	}
	fieldParity := unit[0] >> 5 & 1
	lineOffset := uint32(unit[0] & 0x1F)
	s.ID = SlicedTeletextB
	s.Line = lineOffset
	if fieldParity == 0 && lineOffset != 0 {
		s.Line += secondFieldOffset
	}
	for i := 0; i < TeletextPacketSize; i++ {
		s.Data[i] = bits.Reverse8(unit[2+i])
	}
	return s, true
}

func findPrivateStream(buf []byte) int {
	for i := 0; i+3 < len(buf); i++ {
		if buf[i] == 0x00 && buf[i+1] == 0x00 && buf[i+2] == 0x01 && buf[i+3] == pesPrivateStream1 {
			return i
		}
	}
	return -1
}
