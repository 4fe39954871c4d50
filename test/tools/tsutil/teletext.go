package tsutil

import "math/bits"

// TeletextPacketSize is the size of a teletext packet after the framing
// code: two address bytes and 40 data bytes.
const TeletextPacketSize = 42

const (
	dataIdentifierEBU   = 0x10
	dataUnitTeletext    = 0x02
	dataUnitStuffing    = 0xFF
	dataUnitLength      = 0x2C
	framingCode         = 0xE4
	pesHeaderDataLength = 0x24
)

var ham84 = [16]byte{
	0x15, 0x02, 0x49, 0x5E, 0x64, 0x73, 0x38, 0x2F,
	0xD0, 0xC7, 0x8C, 0x9B, 0xA1, 0xB6, 0xFD, 0xEA,
}

// Ham84 returns the Hamming 8/4 codeword for the low nibble of n.
func Ham84(n int) byte {
	return ham84[n&0x0F]
}

// Par8 adds odd parity to a 7-bit character.
func Par8(c byte) byte {
	c &= 0x7F
	if bits.OnesCount8(c)%2 == 0 {
		c |= 0x80
	}
	return c
}

// Header describes a teletext page header (packet X/0).
type Header struct {
	Page     int // 0x100-0x8FF
	Subcode  int
	Erase    bool
	Subtitle bool
	Suppress bool
	Serial   bool
	National int // C12-C14 code, 0 = English
	Title    string
}

// TimeFilling returns a header that terminates the page in transmission on
// the magazine of page without starting a new one.
func TimeFilling(page int, serial bool) Header {
	return Header{Page: page&0x700 | 0xFF, Serial: serial}
}

func address(mag, packet int) [2]byte {
	v := mag&7 | packet<<3
	return [2]byte{Ham84(v), Ham84(v >> 4)}
}

// HeaderPacket encodes a page header.
func HeaderPacket(h Header) [TeletextPacketSize]byte {
	var p [TeletextPacketSize]byte
	a := address(h.Page>>8, 0)
	p[0], p[1] = a[0], a[1]

	s2 := h.Subcode >> 4 & 7
	if h.Erase {
		s2 |= 8
	}
	s4 := h.Subcode >> 12 & 3
	if h.Subtitle {
		s4 |= 8
	}
	c710 := 0
	if h.Suppress {
		c710 |= 1
	}
	c1114 := (h.National>>2&1)<<1 | (h.National>>1&1)<<2 | (h.National&1)<<3
	if h.Serial {
		c1114 |= 1
	}

	p[2] = Ham84(h.Page)
	p[3] = Ham84(h.Page >> 4)
	p[4] = Ham84(h.Subcode)
	p[5] = Ham84(s2)
	p[6] = Ham84(h.Subcode >> 8)
	p[7] = Ham84(s4)
	p[8] = Ham84(c710)
	p[9] = Ham84(c1114)
	fillText(p[10:], []byte(h.Title))
	return p
}

// RowPacket encodes display row 1-24 of a page in magazine mag. Text is
// raw level 1 codes; control codes below 0x20 are allowed.
func RowPacket(mag, row int, text []byte) [TeletextPacketSize]byte {
	var p [TeletextPacketSize]byte
	a := address(mag, row)
	p[0], p[1] = a[0], a[1]
	fillText(p[2:], text)
	return p
}

// LinksPacket encodes packet X/27/0 with up to six linked page numbers in
// the same magazine scheme as the page of magazine mag.
func LinksPacket(mag int, links []int) [TeletextPacketSize]byte {
	var p [TeletextPacketSize]byte
	a := address(mag, 27)
	p[0], p[1] = a[0], a[1]
	p[2] = Ham84(0)
	for i := 0; i < 6; i++ {
		page := 0x8FF
		if i < len(links) {
			page = links[i]
		}
		rel := (page>>8 ^ mag) & 7
		off := 3 + i*6
		p[off] = Ham84(page)
		p[off+1] = Ham84(page >> 4)
		p[off+2] = Ham84(0xF)
		p[off+3] = Ham84(0x7 | (rel&1)<<3)
		p[off+4] = Ham84(0xF)
		p[off+5] = Ham84(0x3 | (rel>>1)<<2)
	}
	return p
}

func fillText(dst, text []byte) {
	for i := range dst {
		c := byte(' ')
		if i < len(text) {
			c = text[i]
		}
		dst[i] = Par8(c)
	}
}

// DataUnit wraps a teletext packet in an EBU teletext data unit, reversing
// bit order for transmission.
func DataUnit(packet [TeletextPacketSize]byte, line int) []byte {
	u := make([]byte, 2+dataUnitLength)
	u[0] = dataUnitTeletext
	u[1] = dataUnitLength
	u[2] = 0xC0 | 1<<5 | byte(line&0x1F) // reserved bits, first field
	u[3] = framingCode
	for i, b := range packet {
		u[4+i] = bits.Reverse8(b)
	}
	return u
}

// TeletextPES builds an EN 300 472 PES packet carrying the given teletext
// packets, stuffed so that the packet fills a whole number of TS payloads.
// A negative pts omits the timestamp.
func TeletextPES(pts int64, packets ...[TeletextPacketSize]byte) []byte {
	hdr := make([]byte, 9+pesHeaderDataLength)
	hdr[2] = 0x01
	hdr[3] = 0xBD
	hdr[6] = 0x84 // marker, data alignment
	hdr[8] = pesHeaderDataLength
	stuff := hdr[9:]
	if pts >= 0 {
		hdr[7] = 0x80
		stuff = hdr[14:]
		hdr[9] = 0x21 | byte(pts>>29)&0x0E
		hdr[10] = byte(pts >> 22)
		hdr[11] = 0x01 | byte(pts>>14)&0xFE
		hdr[12] = byte(pts >> 7)
		hdr[13] = 0x01 | byte(pts<<1)
	}
	for i := range stuff {
		stuff[i] = 0xFF
	}

	es := []byte{dataIdentifierEBU}
	for i, pkt := range packets {
		es = append(es, DataUnit(pkt, 7+i%16)...)
	}
	// Header (45 bytes) plus data identifier fills one unit slot; a PES
	// packet spans a multiple of four 46-byte slots.
	for units := len(packets); (units+1)%4 != 0; units++ {
		stuffing := make([]byte, 2+dataUnitLength)
		stuffing[0] = dataUnitStuffing
		stuffing[1] = dataUnitLength
		for j := 2; j < len(stuffing); j++ {
			stuffing[j] = 0xFF
		}
		es = append(es, stuffing...)
	}
	return BuildPES(hdr, es)
}

// Page is a convenience for encoding a whole page: a header followed by
// the rows present in Rows (index 1-24).
type Page struct {
	Header Header
	Rows   map[int]string
	Links  []int
}

// Packets returns the header, row and link packets of the page in
// transmission order.
func (pg Page) Packets() [][TeletextPacketSize]byte {
	mag := pg.Header.Page >> 8
	pkts := [][TeletextPacketSize]byte{HeaderPacket(pg.Header)}
	for row := 1; row <= 24; row++ {
		if text, ok := pg.Rows[row]; ok {
			pkts = append(pkts, RowPacket(mag, row, []byte(text)))
		}
	}
	if len(pg.Links) > 0 {
		pkts = append(pkts, LinksPacket(mag, pg.Links))
	}
	return pkts
}
