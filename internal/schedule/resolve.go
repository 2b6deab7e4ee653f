package schedule

import (
	"fmt"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// DateLayout is the calendar date format the date picker submits.
const DateLayout = "2006-01-02"

// Resolver turns (date, clock time, zone) into an absolute instant.
// The zero value is ready to use and safe for concurrent callers.
type Resolver struct {
	zones sync.Map // name -> *time.Location
}

func NewResolver() *Resolver { return &Resolver{} }

// Location loads and caches an IANA zone.
func (r *Resolver) Location(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty time zone")
	}
	if v, ok := r.zones.Load(name); ok {
		return v.(*time.Location), nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, err
	}
	r.zones.Store(name, loc)
	return loc, nil
}

// Resolve interprets t as a wall clock on date in zone.
//
// A wall clock that occurs twice (fall back) resolves to the earlier
// instant. One that is skipped (spring forward) moves forward by the
// length of the gap, so 02:30 on a one-hour gap day becomes 03:30.
func (r *Resolver) Resolve(date string, t ParsedTime, zone string) (time.Time, error) {
	fail := func(reason string, err error) (time.Time, error) {
		return time.Time{}, &InstantError{Date: date, Time: t.Raw, Zone: zone, Reason: reason, Err: err}
	}

	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return fail("invalid date", err)
	}
	loc, err := r.Location(zone)
	if err != nil {
		return fail("unknown time zone", err)
	}
	hour, minute, err := t.Clock()
	if err != nil {
		return fail("invalid clock time", err)
	}
	return wallClock(loc, day.Year(), day.Month(), day.Day(), hour, minute), nil
}

// ResolveInput parses rawTime and resolves it in one step.
func (r *Resolver) ResolveInput(date, rawTime, zone string) (time.Time, error) {
	pt, err := ParseTime(rawTime)
	if err != nil {
		return time.Time{}, err
	}
	return r.Resolve(date, pt, zone)
}

// wallClock finds the instant whose local time in loc is the given wall
// clock. Candidate offsets are the ones in effect a day either side, which
// covers a single transition on that date.
func wallClock(loc *time.Location, y int, mo time.Month, d, h, mi int) time.Time {
	naive := time.Date(y, mo, d, h, mi, 0, 0, time.UTC)
	_, before := naive.Add(-24 * time.Hour).In(loc).Zone()
	_, after := naive.Add(24 * time.Hour).In(loc).Zone()

	var best time.Time
	for _, off := range []int{before, after} {
		cand := naive.Add(-time.Duration(off) * time.Second).In(loc)
		cy, cmo, cd := cand.Date()
		if cy != y || cmo != mo || cd != d || cand.Hour() != h || cand.Minute() != mi {
			continue
		}
		if best.IsZero() || cand.Before(best) {
			best = cand
		}
	}
	if !best.IsZero() {
		return best
	}
	// Skipped wall clock: read it with the offset from before the jump.
	return naive.Add(-time.Duration(before) * time.Second).In(loc)
}

// FormatInstant renders t as "YYYY/M/D H:mm" in its own location, the
// format used in confirmations.
func FormatInstant(t time.Time) string {
	return fmt.Sprintf("%d/%d/%d %d:%02d", t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute())
}

// Today returns the calendar date of now in zone. An unknown or empty zone
// falls back to fallback, then to UTC.
func (r *Resolver) Today(now time.Time, zone, fallback string) string {
	for _, name := range []string{zone, fallback} {
		if loc, err := r.Location(name); err == nil {
			return now.In(loc).Format(DateLayout)
		}
	}
	return now.UTC().Format(DateLayout)
}
