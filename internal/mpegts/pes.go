package mpegts

import "fmt"

// isPESPayload checks for the PES start code prefix (0x000001).
func isPESPayload(data []byte) bool {
	return len(data) >= 3 && data[0] == 0x00 && data[1] == 0x00 && data[2] == 0x01
}

// hasOptionalHeader reports whether PES packets with this stream id carry
// the optional header. Padding, private stream 2, ECM, EMM, DSMCC, H.222.1
// type E and the program stream directory do not.
func hasOptionalHeader(streamID uint8) bool {
	switch streamID {
	case 0xBE, 0xBF, 0xF0, 0xF1, 0xF2, 0xF8, 0xFF:
		return false
	}
	return true
}

// pesLength returns the total size of the PES packet starting at data,
// or 0 if the length field says unbounded.
func pesLength(data []byte) int {
	if len(data) < 6 {
		return 0
	}
	n := int(data[4])<<8 | int(data[5])
	if n == 0 {
		return 0
	}
	return 6 + n
}

func parsePES(payload []byte) (*PES, error) {
	if len(payload) < 6 {
		return nil, fmt.Errorf("mpegts: PES packet too short (%d bytes)", len(payload))
	}
	if !isPESPayload(payload) {
		return nil, fmt.Errorf("mpegts: invalid PES start code")
	}

	raw := payload
	if n := pesLength(payload); n > 0 && n <= len(payload) {
		raw = payload[:n]
	}
	pes := &PES{
		StreamID: payload[3],
		PTS:      NoTimestamp,
		DTS:      NoTimestamp,
		Raw:      raw,
	}

	if !hasOptionalHeader(pes.StreamID) {
		pes.Data = raw[6:]
		return pes, nil
	}
	if len(raw) < 9 {
		return nil, fmt.Errorf("mpegts: PES optional header too short")
	}

	// raw[7] carries the PTS_DTS_flags in its top two bits, raw[8] the
	// PES_header_data_length.
	flags := raw[7] >> 6
	dataStart := min(9+int(raw[8]), len(raw))

	if flags&0x2 != 0 && len(raw) >= 14 {
		pes.PTS = parseTimestamp(raw[9:14])
	}
	if flags == 0x3 && len(raw) >= 19 {
		pes.DTS = parseTimestamp(raw[14:19])
	}

	pes.Data = raw[dataStart:]
	return pes, nil
}

// parseTimestamp extracts a 33-bit 90 kHz timestamp from 5 PES bytes.
func parseTimestamp(bs []byte) int64 {
	return int64(bs[0]>>1&0x07)<<30 |
		int64(bs[1])<<22 |
		int64(bs[2]>>1&0x7F)<<15 |
		int64(bs[3])<<7 |
		int64(bs[4]>>1&0x7F)
}
