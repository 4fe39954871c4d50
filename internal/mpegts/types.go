// Package mpegts reads MPEG transport streams. It reassembles PSI sections
// and PES packets per PID, parses the PAT and PMT including descriptors,
// and parses PES headers while keeping the complete PES packet for
// consumers that do their own payload parsing.
package mpegts

// Stream types and descriptor tags used for teletext discovery.
const (
	StreamTypePrivatePES = 0x06

	DescriptorISO639      = 0x0A
	DescriptorVBITeletext = 0x46
	DescriptorTeletext    = 0x56
	DescriptorSubtitling  = 0x59
)

// NoTimestamp marks an absent PTS or DTS.
const NoTimestamp int64 = -1

// Packet is a parsed 188-byte transport stream packet.
type Packet struct {
	Header  PacketHeader
	Payload []byte
}

// PacketHeader holds the fixed header and the adaptation field flags we
// act on.
type PacketHeader struct {
	PID               uint16
	ContinuityCounter uint8
	Scrambling        uint8
	HasAdaptation     bool
	HasPayload        bool
	PayloadUnitStart  bool
	TransportError    bool
	Discontinuity     bool
}

// Unit is one parsed logical unit read from the stream. Exactly one of
// PAT, PMT and PES is set.
type Unit struct {
	PID uint16
	PAT *PAT
	PMT *PMT
	PES *PES
}

// PAT is a Program Association Table.
type PAT struct {
	TransportStreamID uint16
	Programs          []Program
}

// Program maps a program number to the PID of its PMT.
type Program struct {
	Number uint16
	PMTPID uint16
}

// PMT is a Program Map Table.
type PMT struct {
	ProgramNumber uint16
	PCRPID        uint16
	Descriptors   []Descriptor
	Streams       []ElementaryStream
}

// ElementaryStream is one stream entry of a PMT.
type ElementaryStream struct {
	Type        uint8
	PID         uint16
	Descriptors []Descriptor
}

// Descriptor is a raw tag/length/value descriptor.
type Descriptor struct {
	Tag  uint8
	Data []byte
}

// PES is a reassembled PES packet. Raw holds the packet from the start
// code through the end of its payload; Data is the payload after the
// optional header.
type PES struct {
	StreamID uint8
	PTS      int64
	DTS      int64
	Data     []byte
	Raw      []byte
}
