package vbi

// ServiceID identifies the data service carried by a sliced line.
type ServiceID uint32

// Sliced services understood by the decoder.
const (
	SlicedTeletextBL10 ServiceID = 1 << iota
	SlicedTeletextBL25
	SlicedCaption

	// SlicedTeletextB covers teletext system B at any presentation level.
	SlicedTeletextB = SlicedTeletextBL10 | SlicedTeletextBL25
)

// TeletextPacketSize is the length of a teletext packet after the clock
// run-in and framing code: two address bytes and 40 data bytes.
const TeletextPacketSize = 42

// Sliced is one decoded VBI scan line.
type Sliced struct {
	ID   ServiceID
	Line uint32
	Data [56]byte
}
