package config

import (
	"reflect"
	"strings"

	logx "schedbot/pkg/logx"
)

// SummarizeConfigChange lists the sections that differ between two configs
// and returns log fields describing the new values. Secrets are only
// reported as set/unset.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}
	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 12)

	if oldCfg.Slack != newCfg.Slack {
		changed = append(changed, "slack")
		attrs = append(attrs,
			logx.Bool("slack.signing_secret_set", newCfg.Slack.SigningSecret != ""),
			logx.Bool("slack.bot_token_set", newCfg.Slack.BotToken != ""),
			logx.String("slack.api_url", newCfg.Slack.APIURL),
			logx.String("slack.request_timeout", strings.TrimSpace(newCfg.Slack.RequestTimeout)),
		)
	}
	if oldCfg.HTTP != newCfg.HTTP {
		changed = append(changed, "http")
		attrs = append(attrs,
			logx.String("http.addr", newCfg.HTTP.Addr),
			logx.String("http.path", newCfg.HTTP.Path),
		)
	}
	if !reflect.DeepEqual(oldCfg.Schedule, newCfg.Schedule) {
		changed = append(changed, "schedule")
		attrs = append(attrs,
			logx.String("schedule.command", newCfg.Schedule.Command),
			logx.Int("schedule.timezones", len(newCfg.Schedule.Timezones)),
			logx.Bool("schedule.escalation_set", newCfg.Schedule.EscalationUserID != ""),
			logx.String("schedule.handler_timeout", strings.TrimSpace(newCfg.Schedule.HandlerTimeout)),
		)
	}
	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file", newCfg.Logging.File.Enabled),
			logx.Bool("logging.slack", newCfg.Logging.Slack.Enabled),
		)
	}
	if oldCfg.Admin != newCfg.Admin {
		changed = append(changed, "admin")
		attrs = append(attrs,
			logx.Bool("admin.enabled", newCfg.Admin.Enabled),
			logx.String("admin.addr", newCfg.Admin.Addr),
		)
	}
	return changed, attrs
}

// RestartRequired reports changes that only take effect on restart:
// the bot token, the main listener and the slash command name.
func RestartRequired(oldCfg, newCfg *Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	var out []string
	o, n := oldCfg.Slack, newCfg.Slack
	if o.BotToken != n.BotToken || o.APIURL != n.APIURL || o.RequestTimeout != n.RequestTimeout {
		out = append(out, "slack")
	}
	if oldCfg.HTTP != newCfg.HTTP {
		out = append(out, "http")
	}
	if oldCfg.Schedule.Command != newCfg.Schedule.Command {
		out = append(out, "schedule.command")
	}
	return out
}
