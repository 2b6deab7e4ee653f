package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Meridiem is the am/pm marker of a 12-hour time. MeridiemNone means the
// input is read as a 24-hour clock.
type Meridiem int

const (
	MeridiemNone Meridiem = iota
	MeridiemAM
	MeridiemPM
)

func (m Meridiem) String() string {
	switch m {
	case MeridiemAM:
		return "am"
	case MeridiemPM:
		return "pm"
	default:
		return ""
	}
}

// timePattern accepts "H:MM", "HH.MM", either followed by an optional
// space and am/pm, or a bare hour with a mandatory am/pm. Ranges are not
// checked here; Resolve rejects "99:99".
//
// Groups: 1 hour, 2 minute, 3 meridiem after minutes, 4 meridiem after a bare hour.
var timePattern = regexp.MustCompile(`(?i)^(\d\d?)(?:[:.](\d{2})(?: ?([ap])m)?| ?([ap])m)$`)

// ParsedTime is a clock time that matched the grammar.
type ParsedTime struct {
	Raw      string
	Hour     int
	Minute   int
	Meridiem Meridiem
}

// MatchTime reports whether raw matches the time grammar.
func MatchTime(raw string) bool { return timePattern.MatchString(raw) }

// ParseTime matches raw against the grammar. Raw is kept unchanged in the
// result. Leading or trailing whitespace fails the match.
func ParseTime(raw string) (ParsedTime, error) {
	m := timePattern.FindStringSubmatch(raw)
	if m == nil {
		return ParsedTime{}, fmt.Errorf("%w: %q", ErrTimeFormat, raw)
	}
	pt := ParsedTime{Raw: m[0]}
	pt.Hour, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		pt.Minute, _ = strconv.Atoi(m[2])
	}
	switch strings.ToLower(m[3] + m[4]) {
	case "a":
		pt.Meridiem = MeridiemAM
	case "p":
		pt.Meridiem = MeridiemPM
	}
	return pt, nil
}

// Clock converts to a 24-hour hour and minute, applying the range checks
// the grammar skips: 1..12 with a meridiem, 0..23 without, minutes 0..59.
func (p ParsedTime) Clock() (hour, minute int, err error) {
	if p.Minute < 0 || p.Minute > 59 {
		return 0, 0, fmt.Errorf("minute %d out of range", p.Minute)
	}
	switch p.Meridiem {
	case MeridiemNone:
		if p.Hour < 0 || p.Hour > 23 {
			return 0, 0, fmt.Errorf("hour %d out of range for a 24-hour clock", p.Hour)
		}
		return p.Hour, p.Minute, nil
	default:
		if p.Hour < 1 || p.Hour > 12 {
			return 0, 0, fmt.Errorf("hour %d out of range for a 12-hour clock", p.Hour)
		}
		h := p.Hour % 12
		if p.Meridiem == MeridiemPM {
			h += 12
		}
		return h, p.Minute, nil
	}
}
