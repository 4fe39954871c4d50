package pipeline

// Element is a filter stage with one sink and one source pad.
type Element interface {
	Sink
	Name() string
	ChangeState(c StateChange) StateChangeReturn
	SrcPad() SrcPad
	SetBus(bus *Bus)
}

// AppSink hands buffers and events reaching the end of a pipeline to the
// application.
type AppSink struct {
	// OnBuffer receives each buffer and must Unref it. A nil OnBuffer
	// releases buffers unseen.
	OnBuffer func(buf *Buffer) FlowReturn
	// OnEvent receives each event. A nil OnEvent accepts everything.
	OnEvent func(ev *Event) bool
	// Accept restricts the formats the sink receives.
	Accept *Caps
}

// Chain implements Sink.
func (s *AppSink) Chain(buf *Buffer) FlowReturn {
	if s.OnBuffer == nil {
		buf.Unref()
		return FlowOK
	}
	return s.OnBuffer(buf)
}

// SinkEvent implements Sink.
func (s *AppSink) SinkEvent(ev *Event) bool {
	if s.OnEvent == nil {
		return true
	}
	return s.OnEvent(ev)
}

// AcceptCaps implements CapsAcceptor.
func (s *AppSink) AcceptCaps(caps *Caps) bool {
	if s.Accept == nil {
		return true
	}
	return caps.CanIntersect(s.Accept)
}
