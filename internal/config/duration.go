package config

import (
	"fmt"
	"strings"
	"time"

	"notifyrelay/internal/gate"
	"notifyrelay/internal/notifier"
)

// ParseDurationField parses a Go duration string for the config key at path.
// Empty means 0; negative durations are rejected.
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

func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

// The accessors below assume a validated config and fall back to defaults.

func (c *Config) DebounceWindow() time.Duration {
	d, _ := ParseDurationOrDefault("monitor.debounce_window", c.Monitor.DebounceWindow, gate.DefaultWindow)
	return d
}

func (c *Config) SendTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("telegram.send_timeout", c.Telegram.SendTimeout, notifier.DefaultSendTimeout)
	return d
}

func (c *Config) Retention() time.Duration {
	if c.Storage == nil {
		return 0
	}
	d, _ := ParseDurationField("storage.retention", c.Storage.Retention)
	return d
}

func (c *Config) BusyTimeout() time.Duration {
	if c.Storage == nil {
		return 0
	}
	d, _ := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
	return d
}
