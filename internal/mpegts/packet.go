package mpegts

import "fmt"

const (
	packetSize = 188
	syncByte   = 0x47
)

func parsePacket(buf []byte) (*Packet, error) {
	if len(buf) < packetSize {
		return nil, fmt.Errorf("mpegts: packet size %d, expected %d", len(buf), packetSize)
	}
	if buf[0] != syncByte {
		return nil, fmt.Errorf("mpegts: invalid sync byte 0x%02X", buf[0])
	}
	buf = buf[:packetSize]

	h := PacketHeader{
		TransportError:    buf[1]&0x80 != 0,
		PayloadUnitStart:  buf[1]&0x40 != 0,
		PID:               uint16(buf[1]&0x1F)<<8 | uint16(buf[2]),
		Scrambling:        buf[3] >> 6,
		HasAdaptation:     buf[3]&0x20 != 0,
		HasPayload:        buf[3]&0x10 != 0,
		ContinuityCounter: buf[3] & 0x0F,
	}

	start := 4
	if h.HasAdaptation {
		afLen := int(buf[4])
		if afLen > 0 {
			h.Discontinuity = buf[5]&0x80 != 0
		}
		start = min(5+afLen, packetSize)
	}

	p := &Packet{Header: h}
	if h.HasPayload && start < packetSize {
		p.Payload = append([]byte(nil), buf[start:]...)
	}
	return p, nil
}
