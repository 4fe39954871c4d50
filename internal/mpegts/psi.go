package mpegts

import "fmt"

const (
	pidPAT     = 0x0000
	tableIDPAT = 0x00
	tableIDPMT = 0x02
)

// sections walks the sections in a PSI payload that starts with a
// pointer field. Walking stops at stuffing (0xFF), at bytes that cannot be
// a long-form section header, or at a truncated section.
func sections(payload []byte, fn func(tableID byte, section []byte) error) error {
	if len(payload) < 1 {
		return fmt.Errorf("mpegts: PSI payload too short")
	}
	offset := 1 + int(payload[0])
	if offset >= len(payload) {
		return fmt.Errorf("mpegts: PSI pointer field out of range")
	}

	for offset+3 <= len(payload) {
		tableID := payload[offset]
		if tableID == 0xFF || payload[offset+1]&0x80 == 0 {
			return nil
		}
		end := offset + 3 + (int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2]))
		if end > len(payload) {
			return nil
		}
		if err := fn(tableID, payload[offset:end]); err != nil {
			return err
		}
		offset = end
	}
	return nil
}

// sectionComplete reports whether the payload holds every section it
// announces.
func sectionComplete(payload []byte) bool {
	if len(payload) < 2 {
		return false
	}
	offset := 1 + int(payload[0])
	if offset >= len(payload) {
		return false
	}
	for offset < len(payload) {
		if payload[offset] == 0xFF {
			return true
		}
		if offset+3 > len(payload) {
			return false
		}
		if payload[offset+1]&0x80 == 0 {
			return true
		}
		offset += 3 + (int(payload[offset+1]&0x0F)<<8 | int(payload[offset+2]))
		if offset > len(payload) {
			return false
		}
	}
	return true
}

func parsePSI(payload []byte, pid uint16) ([]*Unit, error) {
	var units []*Unit
	err := sections(payload, func(tableID byte, section []byte) error {
		switch tableID {
		case tableIDPAT:
			pat, err := parsePAT(section)
			if err != nil {
				return err
			}
			units = append(units, &Unit{PID: pid, PAT: pat})
		case tableIDPMT:
			pmt, err := parsePMT(section)
			if err != nil {
				return err
			}
			units = append(units, &Unit{PID: pid, PMT: pmt})
		}
		return nil
	})
	return units, err
}

// parsePAT parses a PAT section:
//
//	[0]      table_id
//	[1-2]    flags + section_length
//	[3-4]    transport_stream_id
//	[5-7]    version, section_number, last_section_number
//	[8..N-4] program_number(16) + reserved(3) + PID(13)
//	[N-4..N] CRC32
func parsePAT(data []byte) (*PAT, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("mpegts: PAT too short")
	}
	if err := verifyCRC32(data); err != nil {
		return nil, fmt.Errorf("mpegts: PAT %w", err)
	}

	pat := &PAT{TransportStreamID: uint16(data[3])<<8 | uint16(data[4])}
	for i := 8; i+4 <= len(data)-4; i += 4 {
		num := uint16(data[i])<<8 | uint16(data[i+1])
		if num == 0 {
			continue // network PID
		}
		pat.Programs = append(pat.Programs, Program{
			Number: num,
			PMTPID: uint16(data[i+2]&0x1F)<<8 | uint16(data[i+3]),
		})
	}
	return pat, nil
}

// parsePMT parses a PMT section:
//
//	[0-7]    as in the PAT, with program_number at [3-4]
//	[8-9]    reserved(3) + PCR_PID(13)
//	[10-11]  reserved(4) + program_info_length(12)
//	[...]    program descriptors
//	[...]    stream_type(8) + PID(13) + ES_info_length(12) + descriptors
//	[N-4..N] CRC32
func parsePMT(data []byte) (*PMT, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("mpegts: PMT too short")
	}
	if err := verifyCRC32(data); err != nil {
		return nil, fmt.Errorf("mpegts: PMT %w", err)
	}
	end := len(data) - 4

	pmt := &PMT{
		ProgramNumber: uint16(data[3])<<8 | uint16(data[4]),
		PCRPID:        uint16(data[8]&0x1F)<<8 | uint16(data[9]),
	}
	infoEnd := 12 + (int(data[10]&0x0F)<<8 | int(data[11]))
	if infoEnd > end {
		return nil, fmt.Errorf("mpegts: PMT program info overruns section")
	}
	pmt.Descriptors = parseDescriptors(data[12:infoEnd])

	for offset := infoEnd; offset+5 <= end; {
		es := ElementaryStream{
			Type: data[offset],
			PID:  uint16(data[offset+1]&0x1F)<<8 | uint16(data[offset+2]),
		}
		esEnd := offset + 5 + (int(data[offset+3]&0x0F)<<8 | int(data[offset+4]))
		if esEnd > end {
			return nil, fmt.Errorf("mpegts: PMT ES info for PID 0x%X overruns section", es.PID)
		}
		es.Descriptors = parseDescriptors(data[offset+5 : esEnd])
		pmt.Streams = append(pmt.Streams, es)
		offset = esEnd
	}
	return pmt, nil
}
