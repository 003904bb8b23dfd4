package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvBotToken, EnvChatID, EnvThreadID, EnvTargetApp} {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestParseMissingFileYieldsDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := NewConfigManager(filepath.Join(t.TempDir(), "absent.json")).Parse()
	require.NoError(t, err)

	assert.Equal(t, "Firefox", cfg.Monitor.TargetApp)
	assert.Equal(t, "exec", cfg.Monitor.Source)
	assert.Equal(t, 5*time.Second, cfg.DebounceWindow())
	assert.Equal(t, 10*time.Second, cfg.SendTimeout())
	assert.Equal(t, "School Email Alert", cfg.Message.Title)
	assert.Equal(t, 1, cfg.Notifier.RatePerSec)
	assert.True(t, cfg.Logging.Console)
	assert.Nil(t, cfg.Storage)
}

func TestParseJSON(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, t.TempDir(), "config.json", `{
		"telegram": {"token": "123:abc", "chat_id": -1001, "thread_id": 4},
		"monitor": {"target_app": "Thunderbird", "debounce_window": "30s"},
		"storage": {"driver": "sqlite", "path": "./alerts.db", "retention": "720h"}
	}`)
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)

	assert.Equal(t, int64(-1001), cfg.Telegram.ChatID)
	assert.Equal(t, 4, cfg.Telegram.ThreadID)
	assert.Equal(t, "Thunderbird", cfg.Monitor.TargetApp)
	assert.Equal(t, 30*time.Second, cfg.DebounceWindow())
	assert.Equal(t, 720*time.Hour, cfg.Retention())
	assert.Equal(t, "@hourly", cfg.Storage.PruneSchedule)
	require.NoError(t, RequireTelegram(cfg))
}

func TestParseYAML(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, t.TempDir(), "config.yaml", `
telegram:
  token: "123:abc"
  chat_id: 42
monitor:
  source: dbus
message:
  title: Inbox
nats:
  enabled: true
  url: nats://127.0.0.1:4222
`)
	cfg, err := NewConfigManager(p).Parse()
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Telegram.ChatID)
	assert.Equal(t, "dbus", cfg.Monitor.Source)
	assert.Equal(t, "Inbox", cfg.Message.Title)
	require.NotNil(t, cfg.Nats)
	assert.Equal(t, "notifyrelay.alerts", cfg.Nats.Subject)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, t.TempDir(), "config.json", `{"monitor": {"target": "Firefox"}}`)
	_, err := NewConfigManager(p).Parse()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
}

func TestParseRejectsTrailingData(t *testing.T) {
	clearEnv(t)
	p := writeFile(t, t.TempDir(), "config.json", `{} {}`)
	_, err := NewConfigManager(p).Parse()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"bad window", func(c *Config) { c.Monitor.DebounceWindow = "soon" }, "monitor.debounce_window"},
		{"negative window", func(c *Config) { c.Monitor.DebounceWindow = "-1s" }, "must be >= 0"},
		{"bad source", func(c *Config) { c.Monitor.Source = "journald" }, "monitor.source"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"storage path", func(c *Config) { c.Storage = &StorageConfig{Driver: "file"} }, "storage.path"},
		{"storage driver", func(c *Config) { c.Storage = &StorageConfig{Driver: "mysql", Path: "x"} }, "storage.driver"},
		{"prune schedule", func(c *Config) {
			c.Storage = &StorageConfig{Driver: "file", Path: "x", PruneSchedule: "whenever"}
		}, "storage.prune_schedule"},
		{"nats url", func(c *Config) { c.Nats = &NatsConfig{Enabled: true} }, "nats.url"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
	require.NoError(t, Validate(Default()))
}

func TestRequireTelegram(t *testing.T) {
	err := RequireTelegram(Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvBotToken:  " 999:zzz ",
		EnvChatID:    "-100777",
		EnvThreadID:  "12",
		EnvTargetApp: "Chromium",
	}
	cfg := Default()
	cfg.Telegram.Token = "file-token"
	require.NoError(t, applyEnv(cfg, func(k string) (string, bool) { v, ok := env[k]; return v, ok }))
	assert.Equal(t, "999:zzz", cfg.Telegram.Token)
	assert.Equal(t, int64(-100777), cfg.Telegram.ChatID)
	assert.Equal(t, 12, cfg.Telegram.ThreadID)
	assert.Equal(t, "Chromium", cfg.Monitor.TargetApp)

	env[EnvChatID] = "general"
	require.Error(t, applyEnv(cfg, func(k string) (string, bool) { v, ok := env[k]; return v, ok }))
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	require.NoError(t, os.Unsetenv(EnvBotToken))
	require.NoError(t, os.Unsetenv(EnvChatID))

	dir := t.TempDir()
	p := writeFile(t, dir, ".env", "TELEGRAM_BOT_TOKEN=111:env\nTELEGRAM_CHAT_ID=5\n")
	require.NoError(t, LoadDotEnv(filepath.Join(dir, "missing.env"), p))

	cfg, err := NewConfigManager("").Parse()
	require.NoError(t, err)
	assert.Equal(t, "111:env", cfg.Telegram.Token)
	assert.Equal(t, int64(5), cfg.Telegram.ChatID)
}

func TestSummarizeConfigChange(t *testing.T) {
	a := Default()
	b := Default()
	b.Telegram.Token = "secret"
	b.Monitor.TargetApp = "Chromium"

	changed, fields := SummarizeConfigChange(a, b)
	assert.Equal(t, []string{"telegram", "monitor"}, changed)
	assert.NotEmpty(t, fields)

	changed, _ = SummarizeConfigChange(a, Default())
	assert.Empty(t, changed)
}

func TestRestartRequired(t *testing.T) {
	a := Default()
	b := Default()
	b.Monitor.TargetApp = "Chromium"
	assert.Empty(t, RestartRequired(a, b))

	b.Monitor.Source = "dbus"
	assert.Equal(t, []string{"monitor.source"}, RestartRequired(a, b))
}

func TestWatchPublishesReload(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{"monitor": {"target_app": "Firefox"}}`)

	m := NewConfigManager(p)
	_, err := m.Load()
	require.NoError(t, err)
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Watch(ctx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	// The watcher registers asynchronously; keep rewriting until it sees one.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-ch:
			assert.Equal(t, "Chromium", cfg.Monitor.TargetApp)
			assert.Equal(t, "Chromium", m.Get().Monitor.TargetApp)
			return
		case <-tick.C:
			writeFile(t, dir, "config.json", `{"monitor": {"target_app": "Chromium"}}`)
		case <-deadline:
			t.Fatal("no reload published")
		}
	}
}

func TestWatchRejectsInvalidReload(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	p := writeFile(t, dir, "config.json", `{}`)

	m := NewConfigManager(p)
	_, err := m.Load()
	require.NoError(t, err)

	writeFile(t, dir, "config.json", `{"monitor": {"debounce_window": "later"}}`)
	assert.False(t, m.reload(context.Background()))
	assert.Equal(t, 5*time.Second, m.Get().DebounceWindow())
}
