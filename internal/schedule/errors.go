package schedule

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeFormat means the input does not match the time grammar.
	ErrTimeFormat = errors.New("time is not in a recognised format")

	// ErrInvalidInstant means the input matched the grammar but names no
	// real instant (hour 25, minute 99, unknown zone, bad date).
	ErrInvalidInstant = errors.New("time does not denote a real instant")
)

// InstantError describes a failed resolution.
type InstantError struct {
	Date   string
	Time   string
	Zone   string
	Reason string
	Err    error
}

func (e *InstantError) Error() string {
	msg := fmt.Sprintf("resolve %q %q in %q: %s", e.Date, e.Time, e.Zone, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InstantError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidInstant}
	}
	return []error{ErrInvalidInstant, e.Err}
}
