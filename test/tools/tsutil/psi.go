package tsutil

// Teletext stream signalling in the PMT.
const (
	StreamTypePrivatePES     = 0x06
	DescriptorTeletext       = 0x56
	DescriptorVBITeletext    = 0x46
	TeletextTypeInitial      = 0x01
	TeletextTypeSubtitle     = 0x02
	defaultPCRPID            = 0x1FFF
	sectionSyntaxAndReserved = 0xB0
)

// ElementaryStream is one PMT entry.
type ElementaryStream struct {
	StreamType  uint8
	PID         uint16
	Descriptors []byte
}

// TeletextDescriptor encodes an ETSI EN 300 468 teletext descriptor with a
// single entry for the given language, type and page.
func TeletextDescriptor(lang string, typ uint8, page int) []byte {
	mag := page >> 8 & 7
	return []byte{
		DescriptorTeletext, 5,
		lang[0], lang[1], lang[2],
		typ<<3 | byte(mag),
		byte(page),
	}
}

// BuildPAT returns a PAT section (without pointer field) for a single
// program.
func BuildPAT(tsID, programNum, pmtPID uint16) []byte {
	body := []byte{
		byte(tsID >> 8), byte(tsID), 0xC1, 0x00, 0x00,
		byte(programNum >> 8), byte(programNum), 0xE0 | byte(pmtPID>>8), byte(pmtPID),
	}
	return finishSection(0x00, body)
}

// BuildPMT returns a PMT section (without pointer field).
func BuildPMT(programNum uint16, streams []ElementaryStream) []byte {
	body := []byte{
		byte(programNum >> 8), byte(programNum), 0xC1, 0x00, 0x00,
		0xE0 | byte(defaultPCRPID>>8), byte(defaultPCRPID & 0xFF),
		0xF0, 0x00,
	}
	for _, es := range streams {
		body = append(body,
			es.StreamType,
			0xE0|byte(es.PID>>8), byte(es.PID),
			0xF0|byte(len(es.Descriptors)>>8), byte(len(es.Descriptors)),
		)
		body = append(body, es.Descriptors...)
	}
	return finishSection(0x02, body)
}

// PSIPackets wraps a section in a single TS packet with a pointer field,
// padded with 0xFF.
func PSIPackets(pid uint16, section []byte, cc *byte) []byte {
	var pkt [TSPacketSize]byte
	pkt[0] = 0x47
	pkt[1] = 0x40 | byte(pid>>8)&0x1F
	pkt[2] = byte(pid)
	pkt[3] = 0x10 | (*cc & 0x0F)
	*cc = (*cc + 1) & 0x0F
	pkt[4] = 0x00
	n := copy(pkt[5:], section)
	for i := 5 + n; i < TSPacketSize; i++ {
		pkt[i] = 0xFF
	}
	return pkt[:]
}

func finishSection(tableID byte, body []byte) []byte {
	sectionLength := len(body) + 4
	sec := []byte{tableID, sectionSyntaxAndReserved | byte(sectionLength>>8), byte(sectionLength)}
	sec = append(sec, body...)
	crc := CRC32(sec)
	return append(sec, byte(crc>>24), byte(crc>>16), byte(crc>>8), byte(crc))
}

var crcTable [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ 0x04C11DB7
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

// CRC32 computes the MPEG-2 CRC32 of data.
func CRC32(data []byte) uint32 {
	crc := uint32(0xFFFFFFFF)
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}
