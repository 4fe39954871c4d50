package mpegts

import "fmt"

func parseDescriptors(data []byte) []Descriptor {
	var out []Descriptor
	for len(data) >= 2 {
		n := int(data[1])
		if 2+n > len(data) {
			break
		}
		out = append(out, Descriptor{Tag: data[0], Data: data[2 : 2+n]})
		data = data[2+n:]
	}
	return out
}

// Descriptor returns the first descriptor of the stream with the tag.
func (es ElementaryStream) Descriptor(tag uint8) (Descriptor, bool) {
	for _, d := range es.Descriptors {
		if d.Tag == tag {
			return d, true
		}
	}
	return Descriptor{}, false
}

// IsTeletext reports whether the stream carries EBU teletext: private PES
// data signalled by a teletext or VBI teletext descriptor.
func (es ElementaryStream) IsTeletext() bool {
	if es.Type != StreamTypePrivatePES {
		return false
	}
	_, ok := es.Descriptor(DescriptorTeletext)
	if !ok {
		_, ok = es.Descriptor(DescriptorVBITeletext)
	}
	return ok
}

// Teletext types of a teletext descriptor entry (EN 300 468).
const (
	TeletextInitialPage     = 0x01
	TeletextSubtitle        = 0x02
	TeletextAdditionalInfo  = 0x03
	TeletextProgramSchedule = 0x04
	TeletextHearingImpaired = 0x05
)

// TeletextPage is one entry of a teletext descriptor.
type TeletextPage struct {
	Language string
	Type     uint8
	// Page is the full page number, 0x100-0x8FF.
	Page int
}

func (p TeletextPage) String() string {
	return fmt.Sprintf("%s type %d page %03x", p.Language, p.Type, p.Page)
}

// TeletextPages decodes the entries of a teletext or VBI teletext
// descriptor. Each entry is a 3-byte language code, 5 bits of type, 3 bits
// of magazine (0 meaning 8) and the BCD page number within the magazine.
func TeletextPages(d Descriptor) ([]TeletextPage, error) {
	if d.Tag != DescriptorTeletext && d.Tag != DescriptorVBITeletext {
		return nil, fmt.Errorf("mpegts: descriptor 0x%02X is not a teletext descriptor", d.Tag)
	}
	if len(d.Data)%5 != 0 {
		return nil, fmt.Errorf("mpegts: teletext descriptor length %d is not a multiple of 5", len(d.Data))
	}
	var pages []TeletextPage
	for e := d.Data; len(e) >= 5; e = e[5:] {
		mag := int(e[3] & 0x07)
		if mag == 0 {
			mag = 8
		}
		pages = append(pages, TeletextPage{
			Language: string(e[0:3]),
			Type:     e[3] >> 3,
			Page:     mag<<8 | int(e[4]),
		})
	}
	return pages, nil
}
