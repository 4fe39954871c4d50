package pipeline

// EventType identifies a stream control event.
type EventType int

// Stream control events.
const (
	EventNewSegment EventType = iota + 1
	EventEOS
	EventFlushStart
	EventFlushStop
	EventTag
)

func (t EventType) String() string {
	switch t {
	case EventNewSegment:
		return "newsegment"
	case EventEOS:
		return "eos"
	case EventFlushStart:
		return "flush-start"
	case EventFlushStop:
		return "flush-stop"
	case EventTag:
		return "tag"
	}
	return "unknown"
}

// Event is a control event travelling downstream alongside buffers.
// Segment fields are set for EventNewSegment, Tags for EventTag.
type Event struct {
	Type EventType

	Rate  float64
	Start ClockTime
	Stop  ClockTime

	Tags map[string]string
}

// NewSegmentEvent starts an open ended segment at start.
func NewSegmentEvent(start ClockTime) *Event {
	return &Event{Type: EventNewSegment, Rate: 1, Start: start, Stop: ClockTimeNone}
}

// NewEOSEvent signals the end of the stream.
func NewEOSEvent() *Event {
	return &Event{Type: EventEOS}
}

// NewFlushStartEvent starts a flush.
func NewFlushStartEvent() *Event {
	return &Event{Type: EventFlushStart}
}

// NewFlushStopEvent ends a flush. Elements reset their stream state.
func NewFlushStopEvent() *Event {
	return &Event{Type: EventFlushStop}
}
