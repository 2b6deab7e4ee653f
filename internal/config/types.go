package config

import (
	"strings"
)

type Config struct {
	Slack    SlackConfig    `json:"slack"`
	HTTP     HTTPConfig     `json:"http"`
	Schedule ScheduleConfig `json:"schedule"`
	Logging  LoggingConfig  `json:"logging"`
	Admin    AdminConfig    `json:"admin,omitempty"`
}

// SlackConfig holds the app credentials. Secrets normally come from the
// environment (SLACK_SIGNING_SECRET, SLACK_BOT_TOKEN) and are never logged.
type SlackConfig struct {
	SigningSecret string `json:"signing_secret,omitempty"`
	BotToken      string `json:"bot_token,omitempty"`

	// APIURL overrides the Web API base URL (tests, proxies).
	APIURL string `json:"api_url,omitempty"`

	// RequestTimeout bounds each Web API call. Go duration string.
	RequestTimeout string `json:"request_timeout,omitempty"`
}

// HTTPConfig controls the public listener Slack delivers events to.
type HTTPConfig struct {
	Addr string `json:"addr"`
	Path string `json:"path,omitempty"`

	ReadTimeout     string `json:"read_timeout,omitempty"`
	WriteTimeout    string `json:"write_timeout,omitempty"`
	IdleTimeout     string `json:"idle_timeout,omitempty"`
	ShutdownTimeout string `json:"shutdown_timeout,omitempty"`
}

type ScheduleConfig struct {
	// Command is the slash command that opens the modal.
	Command string `json:"command,omitempty"`

	// EscalationUserID is mentioned in generic failure diagnostics.
	EscalationUserID string `json:"escalation_user_id,omitempty"`

	// DefaultTimezone seeds the date picker when Slack has no zone for the user.
	DefaultTimezone string `json:"default_timezone,omitempty"`

	// Timezones are the zones offered in the modal, in display order.
	Timezones []TimezoneOption `json:"timezones,omitempty"`

	// HandlerTimeout bounds the asynchronous part of each event. Go duration string.
	HandlerTimeout string `json:"handler_timeout,omitempty"`
}

type TimezoneOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

type LoggingConfig struct {
	Level   string       `json:"level"`
	Console bool         `json:"console"`
	File    LoggingFile  `json:"file"`
	Slack   LoggingSlack `json:"slack"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingSlack struct {
	Enabled    bool   `json:"enabled"`
	ChannelID  string `json:"channel_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// AdminConfig controls the optional loopback listener for /healthz and pprof.
type AdminConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:6061"
	Pprof   bool   `json:"pprof,omitempty"`
}

// DefaultTimezones is the offered zone list used when the config has none.
func DefaultTimezones() []TimezoneOption {
	return []TimezoneOption{
		{Value: "Asia/Bangkok", Label: "(UTC+7:00) Bangkok, Hanoi, Jakarta"},
		{Value: "Asia/Kuala_Lumpur", Label: "(UTC+8:00) Kuala Lumpur, Singapore"},
		{Value: "Asia/Tokyo", Label: "(UTC+9:00) Osaka, Sapporo, Tokyo"},
	}
}

// Default returns a config that runs once credentials are supplied.
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills every empty field that has a sensible default.
func (c *Config) ApplyDefaults() {
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		c.HTTP.Addr = ":3000"
	}
	if strings.TrimSpace(c.HTTP.Path) == "" {
		c.HTTP.Path = "/slack/events"
	}
	if strings.TrimSpace(c.Schedule.Command) == "" {
		c.Schedule.Command = "/schedule"
	}
	if len(c.Schedule.Timezones) == 0 {
		c.Schedule.Timezones = DefaultTimezones()
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
		c.Logging.Console = true
	}
	if c.Admin.Enabled && strings.TrimSpace(c.Admin.Addr) == "" {
		c.Admin.Addr = "127.0.0.1:6061"
	}
}

// TimezoneValues lists the offered zone identifiers.
func (s ScheduleConfig) TimezoneValues() []string {
	out := make([]string, 0, len(s.Timezones))
	for _, tz := range s.Timezones {
		out = append(out, tz.Value)
	}
	return out
}
