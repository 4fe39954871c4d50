// Package tsutil provides shared MPEG-TS infrastructure used by the
// teletext generator tools and the package tests: PES and TS packetizing,
// PAT/PMT construction, and an EBU teletext encoder.
package tsutil

// TSPacketSize is the fixed size of an MPEG-TS packet.
const TSPacketSize = 188

// PESPacket holds one reassembled PES packet and the TS-packet offsets it
// came from.
type PESPacket struct {
	ESData    []byte
	PESHdr    []byte
	TSOffsets []int
}

// CollectPESPackets walks tsData looking for PES packets on pid and
// returns them as a slice of reassembled PESPacket values.
func CollectPESPackets(tsData []byte, pid uint16) []PESPacket {
	var packets []PESPacket
	var current *PESPacket

	for off := 0; off+TSPacketSize <= len(tsData); off += TSPacketSize {
		pkt := tsData[off : off+TSPacketSize]
		if pkt[0] != 0x47 {
			continue
		}

		if (uint16(pkt[1]&0x1F)<<8)|uint16(pkt[2]) != pid {
			continue
		}

		payloadStart := pkt[1]&0x40 != 0
		headerLen := 4
		if pkt[3]&0x20 != 0 {
			adaptLen := int(pkt[4])
			headerLen = 5 + adaptLen
		}
		if headerLen >= TSPacketSize {
			if current != nil {
				current.TSOffsets = append(current.TSOffsets, off)
			}
			continue
		}
		payload := pkt[headerLen:]

		if payloadStart {
			if current != nil {
				packets = append(packets, *current)
			}

			if len(payload) < 9 || payload[0] != 0 || payload[1] != 0 || payload[2] != 1 {
				current = nil
				continue
			}

			pesHeaderDataLen := int(payload[8])
			pesHdrEnd := 9 + pesHeaderDataLen
			if pesHdrEnd > len(payload) {
				current = nil
				continue
			}

			current = &PESPacket{
				PESHdr:    append([]byte(nil), payload[:pesHdrEnd]...),
				ESData:    append([]byte(nil), payload[pesHdrEnd:]...),
				TSOffsets: []int{off},
			}
		} else if current != nil {
			current.ESData = append(current.ESData, payload...)
			current.TSOffsets = append(current.TSOffsets, off)
		}
	}
	if current != nil {
		packets = append(packets, *current)
	}
	return packets
}

// BuildPES reassembles a PES packet from its header and elementary stream
// data, updating the PES length field.
func BuildPES(pesHdr, esData []byte) []byte {
	pesLen := len(pesHdr) - 6 + len(esData)
	var pes []byte
	pes = append(pes, pesHdr...)
	if pesLen <= 0xFFFF {
		pes[4] = byte(pesLen >> 8)
		pes[5] = byte(pesLen)
	} else {
		pes[4] = 0
		pes[5] = 0
	}
	pes = append(pes, esData...)
	return pes
}

// Packetize splits pesData into 188-byte TS packets on the given PID,
// incrementing the continuity counter cc between packets.
func Packetize(pesData []byte, pid uint16, cc *byte) []byte {
	var result []byte
	offset := 0
	first := true

	for offset < len(pesData) {
		var pkt [TSPacketSize]byte
		pkt[0] = 0x47
		pkt[1] = byte(pid>>8) & 0x1F
		pkt[2] = byte(pid)
		if first {
			pkt[1] |= 0x40
			first = false
		}
		pkt[3] = 0x10 | (*cc & 0x0F)
		*cc = (*cc + 1) & 0x0F

		remaining := len(pesData) - offset
		capacity := TSPacketSize - 4

		if remaining < capacity {
			stuffLen := capacity - remaining
			if stuffLen == 1 {
				pkt[3] |= 0x20
				pkt[4] = 0
				copy(pkt[5:], pesData[offset:])
				offset = len(pesData)
			} else {
				pkt[3] |= 0x20
				pkt[4] = byte(stuffLen - 1)
				if stuffLen > 2 {
					pkt[5] = 0
					for i := 6; i < 4+stuffLen; i++ {
						pkt[i] = 0xFF
					}
				}
				copy(pkt[4+stuffLen:], pesData[offset:])
				offset = len(pesData)
			}
		} else {
			copy(pkt[4:], pesData[offset:offset+capacity])
			offset += capacity
		}

		result = append(result, pkt[:]...)
	}

	return result
}
