package pipeline

// State is an element state.
type State int

// Element states.
const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	}
	return "UNKNOWN"
}

// StateChange is a transition between two adjacent states.
type StateChange struct {
	From, To State
}

// Adjacent state transitions.
var (
	NullToReady     = StateChange{StateNull, StateReady}
	ReadyToPaused   = StateChange{StateReady, StatePaused}
	PausedToPlaying = StateChange{StatePaused, StatePlaying}
	PlayingToPaused = StateChange{StatePlaying, StatePaused}
	PausedToReady   = StateChange{StatePaused, StateReady}
	ReadyToNull     = StateChange{StateReady, StateNull}
)

// Upward reports whether the transition activates the element.
func (c StateChange) Upward() bool {
	return c.To > c.From
}

func (c StateChange) String() string {
	return c.From.String() + "->" + c.To.String()
}

// StateChangeReturn is the result of a state transition.
type StateChangeReturn int

// State change results.
const (
	StateChangeFailure StateChangeReturn = iota
	StateChangeSuccess
	StateChangeAsync
	StateChangeNoPreroll
)

// StateChanges returns the adjacent transitions leading from one state to
// another.
func StateChanges(from, to State) []StateChange {
	var out []StateChange
	for from < to {
		out = append(out, StateChange{from, from + 1})
		from++
	}
	for from > to {
		out = append(out, StateChange{from, from - 1})
		from--
	}
	return out
}
