package logx

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	kit "notifyrelay/internal/transport"
)

func TestZeroLoggerIsNoop(t *testing.T) {
	var l Logger
	assert.True(t, l.IsZero())
	l.Info("nothing happens", String("k", "v"))
	assert.False(t, l.With(String("a", "b")).IsZero())
}

func TestWriterLoggerAppliesFieldsInOrder(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "debug").With(String("comp", "test"))
	l.Debug("hello", String("comp", "override"), Int("n", 3))

	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	assert.Equal(t, "hello", m["message"])
	assert.Equal(t, "override", m["comp"])
	assert.EqualValues(t, 3, m["n"])
	assert.Contains(t, m["caller"], "logging_test.go")
}

func TestWriterLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Info("dropped")
	assert.Zero(t, buf.Len())
	assert.False(t, l.Enabled(LevelInfo))
	assert.True(t, l.Enabled(LevelError))
}

func TestValidLevel(t *testing.T) {
	for _, s := range []string{"", "info", "WARN", "warning", "trace"} {
		assert.True(t, ValidLevel(s), s)
	}
	assert.False(t, ValidLevel("loud"))
}

func TestFormatTelegramJSON(t *testing.T) {
	got := formatTelegramJSON([]byte(`{"level":"warn","message":"send failed","time":"x","err":"boom","comp":"notifier"}`))
	assert.Equal(t, "[WARN] send failed\n- comp=notifier\n- err=boom", got)

	assert.Equal(t, "plain text", formatTelegramJSON([]byte("  plain text \n")))
}

type captureSender struct {
	mu   sync.Mutex
	got  []string
	done chan struct{}
}

func (c *captureSender) SendText(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
	c.mu.Lock()
	c.got = append(c.got, text)
	c.mu.Unlock()
	select {
	case c.done <- struct{}{}:
	default:
	}
	return kit.MessageRef{}, nil
}

func TestTelegramSinkForwardsAboveMinLevel(t *testing.T) {
	sender := &captureSender{done: make(chan struct{}, 1)}
	svc, log := New(Config{
		Level:    "debug",
		Telegram: TelegramConfig{Enabled: true, MinLevel: "error", RatePerSec: 5},
	}, sender)
	t.Cleanup(func() { _ = svc.Close() })
	svc.SetTelegramTarget(kit.ChatTarget{ChatID: 42})

	w := &telegramWriter{svc: svc}
	_, _ = w.WriteLevel(zerolog.WarnLevel, []byte(`{"level":"warn","message":"ignored"}`))
	log.Error("delivery failed", String("comp", "notifier"))

	select {
	case <-sender.done:
	case <-time.After(2 * time.Second):
		t.Fatal("telegram sink did not forward the error")
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	require.Len(t, sender.got, 1)
	assert.True(t, strings.HasPrefix(sender.got[0], "[ERROR] delivery failed"))
}
