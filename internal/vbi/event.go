package vbi

// EventType identifies a decoder event. Types are bit flags so handlers
// can subscribe to several at once.
type EventType uint32

// Decoder events.
const (
	// EventTTXPage reports a teletext page that has been received completely
	// and stored in the page cache.
	EventTTXPage EventType = 1 << iota
	// EventClose is delivered to all handlers when the decoder is deleted.
	EventClose
)

// TTXPageEvent describes a completed page.
type TTXPageEvent struct {
	Pgno  int
	Subno int
	Flags PageFlags
}

// Event is passed to an EventHandler. TTXPage is set for EventTTXPage.
type Event struct {
	Type    EventType
	TTXPage TTXPageEvent
}

// EventHandler is called synchronously from Decode.
type EventHandler func(ev *Event)

type handlerEntry struct {
	mask    EventType
	handler EventHandler
}
