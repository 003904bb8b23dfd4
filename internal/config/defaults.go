package config

import (
	"errors"
	"fmt"
	"strings"

	"notifyrelay/internal/gate"
	"notifyrelay/internal/notifier"
	"notifyrelay/internal/source"
	"notifyrelay/internal/storage"
	"notifyrelay/internal/transport/natsink"
	logx "notifyrelay/pkg/logx"
)

// Default returns a config with every default filled in. Telegram
// credentials are left empty.
func Default() *Config {
	cfg := &Config{Logging: LoggingConfig{Console: true}}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills omitted fields in place.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}
	if strings.TrimSpace(cfg.Telegram.SendTimeout) == "" {
		cfg.Telegram.SendTimeout = notifier.DefaultSendTimeout.String()
	}
	if strings.TrimSpace(cfg.Monitor.Source) == "" {
		cfg.Monitor.Source = source.KindExec
	}
	if cfg.Monitor.TargetApp == "" {
		cfg.Monitor.TargetApp = gate.DefaultTargetApp
	}
	if strings.TrimSpace(cfg.Monitor.DebounceWindow) == "" {
		cfg.Monitor.DebounceWindow = gate.DefaultWindow.String()
	}
	if cfg.Message.Title == "" {
		cfg.Message.Title = notifier.DefaultTitle
	}
	if cfg.Notifier.RatePerSec <= 0 {
		cfg.Notifier.RatePerSec = notifier.DefaultRatePerSec
	}
	if strings.TrimSpace(cfg.Logging.Level) == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Telegram.MinLevel == "" {
		cfg.Logging.Telegram.MinLevel = "warn"
	}
	if cfg.Logging.Telegram.RatePerSec <= 0 {
		cfg.Logging.Telegram.RatePerSec = 1
	}
	if cfg.Storage != nil && strings.TrimSpace(cfg.Storage.PruneSchedule) == "" {
		cfg.Storage.PruneSchedule = storage.DefaultPruneSchedule
	}
	if cfg.Nats != nil && strings.TrimSpace(cfg.Nats.Subject) == "" {
		cfg.Nats.Subject = natsink.DefaultSubject
	}
}

// Validate checks a config after defaults and env overrides are applied.
// Missing Telegram credentials are not an error here; the run command
// requires them, replay does not.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	switch strings.ToLower(strings.TrimSpace(cfg.Monitor.Source)) {
	case source.KindExec, source.KindDBus:
	default:
		errs = append(errs, fmt.Errorf("monitor.source: unknown source %q", cfg.Monitor.Source))
	}
	if _, err := ParseDurationField("monitor.debounce_window", cfg.Monitor.DebounceWindow); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("telegram.send_timeout", cfg.Telegram.SendTimeout); err != nil {
		errs = append(errs, err)
	}
	if cfg.Telegram.ThreadID < 0 {
		errs = append(errs, errors.New("telegram.thread_id must be >= 0"))
	}
	if !logx.ValidLevel(cfg.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level: unknown level %q", cfg.Logging.Level))
	}
	if cfg.Logging.Telegram.Enabled && !logx.ValidLevel(cfg.Logging.Telegram.MinLevel) {
		errs = append(errs, fmt.Errorf("logging.telegram.min_level: unknown level %q", cfg.Logging.Telegram.MinLevel))
	}
	if cfg.Logging.File.Enabled && strings.TrimSpace(cfg.Logging.File.Path) == "" {
		errs = append(errs, errors.New("logging.file.path is required when file logging is enabled"))
	}

	if st := cfg.Storage; st != nil {
		switch strings.ToLower(strings.TrimSpace(st.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(st.Path) == "" {
				errs = append(errs, errors.New("storage.path is required"))
			}
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
		}
		if _, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
		if _, err := ParseDurationField("storage.retention", st.Retention); err != nil {
			errs = append(errs, err)
		}
		if err := storage.ValidateSchedule(st.PruneSchedule); err != nil {
			errs = append(errs, fmt.Errorf("storage.prune_schedule: %w", err))
		}
	}
	if n := cfg.Nats; n != nil && n.Enabled && strings.TrimSpace(n.URL) == "" {
		errs = append(errs, errors.New("nats.url is required when nats is enabled"))
	}
	return errors.Join(errs...)
}

// RequireTelegram reports an error when the bot token or chat id is missing.
func RequireTelegram(cfg *Config) error {
	var errs []error
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token (or TELEGRAM_BOT_TOKEN) is required"))
	}
	if cfg.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id (or TELEGRAM_CHAT_ID) is required"))
	}
	return errors.Join(errs...)
}
