package config

import (
	"reflect"
	"strings"

	logx "notifyrelay/pkg/logx"
)

// SummarizeConfigChange returns the changed top-level sections and safe
// structured fields for the reload log. Secrets (bot token) are never
// included, only whether they are set.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 7)
	fields := make([]logx.Field, 0, 16)

	ot, nt := oldCfg.Telegram, newCfg.Telegram
	if ot != nt {
		changed = append(changed, "telegram")
		fields = append(fields,
			logx.Bool("telegram.token_changed", ot.Token != nt.Token),
			logx.Int64("telegram.chat_id", nt.ChatID),
			logx.Int("telegram.thread_id", nt.ThreadID),
			logx.String("telegram.send_timeout", nt.SendTimeout),
		)
	}

	if !reflect.DeepEqual(oldCfg.Monitor, newCfg.Monitor) {
		changed = append(changed, "monitor")
		fields = append(fields,
			logx.String("monitor.source", newCfg.Monitor.Source),
			logx.String("monitor.target_app", newCfg.Monitor.TargetApp),
			logx.String("monitor.debounce_window", newCfg.Monitor.DebounceWindow),
		)
	}

	if oldCfg.Message != newCfg.Message {
		changed = append(changed, "message")
		fields = append(fields, logx.String("message.title", newCfg.Message.Title))
	}

	if oldCfg.Notifier != newCfg.Notifier {
		changed = append(changed, "notifier")
		fields = append(fields, logx.Int("notifier.rate_per_sec", newCfg.Notifier.RatePerSec))
	}

	if oldCfg.Logging != newCfg.Logging {
		changed = append(changed, "logging")
		fields = append(fields,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		if st := newCfg.Storage; st != nil {
			fields = append(fields,
				logx.String("storage.driver", strings.TrimSpace(st.Driver)),
				logx.String("storage.retention", st.Retention),
			)
		}
	}

	if !reflect.DeepEqual(oldCfg.Nats, newCfg.Nats) {
		changed = append(changed, "nats")
		if n := newCfg.Nats; n != nil {
			fields = append(fields, logx.Bool("nats.enabled", n.Enabled), logx.String("nats.subject", n.Subject))
		}
	}

	return changed, fields
}

// RestartRequired lists changed settings that only take effect after a
// restart (the line source and outbound connections are opened once).
func RestartRequired(oldCfg, newCfg *Config) []string {
	if oldCfg == nil || newCfg == nil {
		return nil
	}
	var out []string
	om, nm := oldCfg.Monitor, newCfg.Monitor
	if om.Source != nm.Source || !reflect.DeepEqual(om.Command, nm.Command) || !reflect.DeepEqual(om.Rules, nm.Rules) || om.Marker != nm.Marker {
		out = append(out, "monitor.source")
	}
	if oldCfg.Telegram.Token != newCfg.Telegram.Token || oldCfg.Telegram.APIURL != newCfg.Telegram.APIURL {
		out = append(out, "telegram.token")
	}
	if oldCfg.Storage == nil != (newCfg.Storage == nil) ||
		(oldCfg.Storage != nil && newCfg.Storage != nil &&
			(oldCfg.Storage.Driver != newCfg.Storage.Driver || oldCfg.Storage.Path != newCfg.Storage.Path)) {
		out = append(out, "storage.driver")
	}
	if !reflect.DeepEqual(oldCfg.Nats, newCfg.Nats) {
		out = append(out, "nats")
	}
	return out
}
