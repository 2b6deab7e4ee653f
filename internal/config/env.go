package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables understood by schedbot. They win over the config file.
const (
	EnvSigningSecret = "SLACK_SIGNING_SECRET"
	EnvBotToken      = "SLACK_BOT_TOKEN"
	EnvAPIURL        = "SLACK_API_URL"
	EnvPort          = "PORT"
	EnvEscalation    = "ESCALATION_USER_ID"
	EnvLogLevel      = "SCHEDBOT_LOG_LEVEL"
)

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. An empty path means
// "./.env", which may be absent.
func LoadDotEnv(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays environment values on cfg using lookup.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if cfg == nil || lookup == nil {
		return
	}
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvSigningSecret); ok {
		cfg.Slack.SigningSecret = v
	}
	if v, ok := get(EnvBotToken); ok {
		cfg.Slack.BotToken = v
	}
	if v, ok := get(EnvAPIURL); ok {
		cfg.Slack.APIURL = v
	}
	if v, ok := get(EnvPort); ok {
		cfg.HTTP.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	if v, ok := get(EnvEscalation); ok {
		cfg.Schedule.EscalationUserID = v
	}
	if v, ok := get(EnvLogLevel); ok {
		cfg.Logging.Level = v
	}
}

// ApplyOSEnv overlays the process environment on cfg.
func ApplyOSEnv(cfg *Config) { ApplyEnv(cfg, os.LookupEnv) }
