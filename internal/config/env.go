package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment overrides. They win over file values.
const (
	EnvBotToken  = "TELEGRAM_BOT_TOKEN"
	EnvChatID    = "TELEGRAM_CHAT_ID"
	EnvThreadID  = "TELEGRAM_THREAD_ID"
	EnvTargetApp = "NOTIFYRELAY_TARGET_APP"
)

// LoadDotEnv loads KEY=VALUE pairs from files into the process environment.
// Variables that are already set are left alone. Missing files are skipped.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if strings.TrimSpace(f) == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overlays environment overrides onto cfg.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, os.LookupEnv)
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if cfg == nil {
		return nil
	}
	get := func(k string) (string, bool) {
		v, ok := lookup(k)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get(EnvBotToken); ok {
		cfg.Telegram.Token = v
	}
	if v, ok := get(EnvChatID); ok {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid chat id %q", EnvChatID, v)
		}
		cfg.Telegram.ChatID = id
	}
	if v, ok := get(EnvThreadID); ok {
		id, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: invalid thread id %q", EnvThreadID, v)
		}
		cfg.Telegram.ThreadID = id
	}
	if v, ok := get(EnvTargetApp); ok {
		cfg.Monitor.TargetApp = v
	}
	return nil
}
