package pipeline

import "time"

// ClockTime is a stream time in nanoseconds.
type ClockTime int64

// ClockTimeNone marks an unset timestamp or duration.
const ClockTimeNone ClockTime = -1

// Valid reports whether t is set.
func (t ClockTime) Valid() bool {
	return t != ClockTimeNone
}

// Duration converts t to a time.Duration. It must be valid.
func (t ClockTime) Duration() time.Duration {
	return time.Duration(t)
}

func (t ClockTime) String() string {
	if !t.Valid() {
		return "none"
	}
	return time.Duration(t).String()
}
