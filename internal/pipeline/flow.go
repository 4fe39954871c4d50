package pipeline

// FlowReturn is the result of pushing a buffer through a pad.
type FlowReturn int

// Flow results. Values at or below FlowEOS are fatal to the data flow.
const (
	FlowOK            FlowReturn = 0
	FlowNotLinked     FlowReturn = -1
	FlowWrongState    FlowReturn = -2
	FlowEOS           FlowReturn = -3
	FlowNotNegotiated FlowReturn = -4
	FlowError         FlowReturn = -5
	FlowNotSupported  FlowReturn = -6
)

// IsFatal reports whether f stops the data flow.
func (f FlowReturn) IsFatal() bool {
	return f <= FlowEOS
}

func (f FlowReturn) String() string {
	switch f {
	case FlowOK:
		return "ok"
	case FlowNotLinked:
		return "not-linked"
	case FlowWrongState:
		return "wrong-state"
	case FlowEOS:
		return "eos"
	case FlowNotNegotiated:
		return "not-negotiated"
	case FlowError:
		return "error"
	case FlowNotSupported:
		return "not-supported"
	}
	return "unknown"
}
