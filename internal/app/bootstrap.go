package app

import (
	"strings"

	"notifyrelay/internal/config"
	"notifyrelay/internal/notifier"
	"notifyrelay/internal/pipeline"
	"notifyrelay/internal/source"
	"notifyrelay/internal/storage"
	kit "notifyrelay/internal/transport"
	"notifyrelay/internal/transport/natsink"
	"notifyrelay/internal/transport/telegram"
	logx "notifyrelay/pkg/logx"
)

func mapLogConfig(cfg *config.Config, telegramSink bool) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    telegramSink && cfg.Logging.Telegram.Enabled,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
}

// logTarget is the alert chat, in the log thread when one is set.
func logTarget(cfg *config.Config) kit.ChatTarget {
	thread := cfg.Logging.Telegram.ThreadID
	if thread == 0 {
		thread = cfg.Telegram.ThreadID
	}
	return kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: thread}
}

func mapTelegramConfig(cfg *config.Config) telegram.Config {
	return telegram.Config{
		Token:       cfg.Telegram.Token,
		APIURL:      cfg.Telegram.APIURL,
		SendTimeout: cfg.SendTimeout(),
	}
}

func mapNotifierConfig(cfg *config.Config) notifier.Config {
	return notifier.Config{
		Title:          cfg.Message.Title,
		RatePerSec:     cfg.Notifier.RatePerSec,
		SendTimeout:    cfg.SendTimeout(),
		Target:         kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID},
		DisablePreview: cfg.Message.DisablePreview,
	}
}

func mapPipelineConfig(cfg *config.Config) pipeline.Config {
	return pipeline.Config{
		Marker:    cfg.Monitor.Marker,
		TargetApp: cfg.Monitor.TargetApp,
		Window:    cfg.DebounceWindow(),
	}
}

func mapSourceConfig(cfg *config.Config) source.Config {
	return source.Config{
		Kind:    cfg.Monitor.Source,
		Command: cfg.Monitor.Command,
		Rules:   cfg.Monitor.Rules,
	}
}

// mapStorageConfig reports false when the journal is not configured.
func mapStorageConfig(cfg *config.Config) (storage.Config, bool) {
	if cfg.Storage == nil {
		return storage.Config{}, false
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false
	}
	return storage.Config{
		Driver:      driver,
		Path:        strings.TrimSpace(cfg.Storage.Path),
		BusyTimeout: cfg.BusyTimeout(),
	}, true
}

func mapPrunerConfig(cfg *config.Config) storage.PrunerConfig {
	if cfg.Storage == nil {
		return storage.PrunerConfig{}
	}
	return storage.PrunerConfig{Retention: cfg.Retention(), Schedule: cfg.Storage.PruneSchedule}
}

func mapNatsConfig(cfg *config.Config) (natsink.Config, bool) {
	if cfg.Nats == nil || !cfg.Nats.Enabled {
		return natsink.Config{}, false
	}
	return natsink.Config{URL: cfg.Nats.URL, Subject: cfg.Nats.Subject, Name: "notifyrelay"}, true
}
