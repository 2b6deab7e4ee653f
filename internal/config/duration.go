package config

import (
	"fmt"
	"strings"
	"time"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// durationOr parses raw and falls back to def when raw is empty, zero or
// invalid. Validate has already rejected invalid values by the time the
// accessors below run.
func durationOr(raw string, def time.Duration) time.Duration {
	d, err := ParseDurationField("", raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func (s SlackConfig) RequestTimeoutOrDefault() time.Duration {
	return durationOr(s.RequestTimeout, 10*time.Second)
}

func (s ScheduleConfig) HandlerTimeoutOrDefault() time.Duration {
	return durationOr(s.HandlerTimeout, 10*time.Second)
}

type ServerTimeouts struct {
	Read, Write, Idle, Shutdown time.Duration
}

func (h HTTPConfig) Timeouts() ServerTimeouts {
	return ServerTimeouts{
		Read:     durationOr(h.ReadTimeout, 10*time.Second),
		Write:    durationOr(h.WriteTimeout, 10*time.Second),
		Idle:     durationOr(h.IdleTimeout, 60*time.Second),
		Shutdown: durationOr(h.ShutdownTimeout, 15*time.Second),
	}
}
