package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Validate checks that cfg can run the service.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.Slack),
		validation.Field(&c.HTTP),
		validation.Field(&c.Schedule),
		validation.Field(&c.Logging),
		validation.Field(&c.Admin),
	)
}

func (s SlackConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.SigningSecret, validation.Required.Error("is required (set "+EnvSigningSecret+")")),
		validation.Field(&s.BotToken, validation.Required.Error("is required (set "+EnvBotToken+")")),
		validation.Field(&s.APIURL, is.URL),
		validation.Field(&s.RequestTimeout, validation.By(durationRule)),
	)
}

func (h HTTPConfig) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.Addr, validation.Required),
		validation.Field(&h.Path, validation.Required, validation.By(func(v any) error {
			if !strings.HasPrefix(v.(string), "/") {
				return errors.New("must start with /")
			}
			return nil
		})),
		validation.Field(&h.ReadTimeout, validation.By(durationRule)),
		validation.Field(&h.WriteTimeout, validation.By(durationRule)),
		validation.Field(&h.IdleTimeout, validation.By(durationRule)),
		validation.Field(&h.ShutdownTimeout, validation.By(durationRule)),
	)
}

func (s ScheduleConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Command, validation.Required, validation.By(func(v any) error {
			if !strings.HasPrefix(v.(string), "/") {
				return errors.New("must start with /")
			}
			return nil
		})),
		validation.Field(&s.DefaultTimezone, validation.By(zoneRule)),
		validation.Field(&s.Timezones, validation.Required, validation.By(uniqueZones)),
		validation.Field(&s.HandlerTimeout, validation.By(durationRule)),
	)
}

func (o TimezoneOption) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Value, validation.Required, validation.By(zoneRule)),
		validation.Field(&o.Label, validation.Required, validation.Length(1, 75)),
	)
}

func (l LoggingConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.By(func(v any) error {
			switch strings.ToLower(strings.TrimSpace(v.(string))) {
			case "", "trace", "debug", "info", "warn", "warning", "error":
				return nil
			}
			return errors.New("must be one of trace, debug, info, warn, error")
		})),
		validation.Field(&l.Slack, validation.By(func(v any) error {
			ls := v.(LoggingSlack)
			if ls.Enabled && strings.TrimSpace(ls.ChannelID) == "" {
				return errors.New("channel_id is required when enabled")
			}
			return nil
		})),
	)
}

func (a AdminConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Addr, validation.When(a.Enabled, validation.Required)),
	)
}

func durationRule(v any) error {
	s, _ := v.(string)
	_, err := ParseDurationField("", s)
	if err != nil {
		return errors.New("must be a non-negative Go duration (e.g. 10s)")
	}
	return nil
}

func zoneRule(v any) error {
	s, _ := v.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := time.LoadLocation(s); err != nil {
		return fmt.Errorf("unknown time zone %q", s)
	}
	return nil
}

func uniqueZones(v any) error {
	zones, _ := v.([]TimezoneOption)
	seen := make(map[string]struct{}, len(zones))
	for _, z := range zones {
		if _, ok := seen[z.Value]; ok {
			return fmt.Errorf("duplicate time zone %q", z.Value)
		}
		seen[z.Value] = struct{}{}
	}
	return nil
}
