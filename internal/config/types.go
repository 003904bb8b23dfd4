package config

// Config is the on-disk configuration (JSON, or YAML coerced to JSON).
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// Omitted fields take the defaults applied by ApplyDefaults.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Monitor  MonitorConfig  `json:"monitor"`
	Message  MessageConfig  `json:"message"`
	Notifier NotifierConfig `json:"notifier"`
	Logging  LoggingConfig  `json:"logging"`

	Storage *StorageConfig `json:"storage,omitempty"`
	Nats    *NatsConfig    `json:"nats,omitempty"`
}

// TelegramConfig addresses the Bot API. Token and chat may also come from
// TELEGRAM_BOT_TOKEN / TELEGRAM_CHAT_ID (see ApplyEnv).
type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	// APIURL overrides https://api.telegram.org (self-hosted Bot API server).
	APIURL      string `json:"api_url,omitempty"`
	SendTimeout string `json:"send_timeout,omitempty"` // default "10s"
}

// MonitorConfig selects the line source and the relay filter.
//
// Source values:
//   - "exec" (default): spawn Command (default dbus-monitor) and read stdout
//   - "dbus": monitor the session bus directly
type MonitorConfig struct {
	Source  string   `json:"source,omitempty"`
	Command []string `json:"command,omitempty"`
	Rules   []string `json:"rules,omitempty"` // dbus match rules
	Marker  string   `json:"marker,omitempty"`

	TargetApp      string `json:"target_app,omitempty"`      // default "Firefox"
	DebounceWindow string `json:"debounce_window,omitempty"` // default "5s"
}

type MessageConfig struct {
	Title          string `json:"title,omitempty"`
	DisablePreview bool   `json:"disable_preview,omitempty"`
}

type NotifierConfig struct {
	RatePerSec int `json:"rate_per_sec,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram mirrors WARN+ log lines into the alert chat (or ThreadID
// within it).
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ThreadID   int    `json:"thread_id,omitempty"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// StorageConfig controls the alert journal.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/alerts.db", "retention": "720h" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
	// Retention drops journal entries older than this. Empty or "0s" keeps everything.
	Retention     string `json:"retention,omitempty"`
	PruneSchedule string `json:"prune_schedule,omitempty"` // cron spec, default "@hourly"
}

// NatsConfig enables publishing every emitted alert as JSON.
type NatsConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url,omitempty"`
	Subject string `json:"subject,omitempty"`
}
