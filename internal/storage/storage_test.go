package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "notifyrelay/pkg/logx"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func entry(id string, at time.Time, delivered bool) AlertEntry {
	e := AlertEntry{
		ID:        id,
		At:        at,
		App:       "Firefox",
		Sender:    "alice@example.com",
		Subject:   "subject " + id,
		Delivered: delivered,
		TookMS:    12,
	}
	if !delivered {
		e.Error = "chat not found"
	}
	return e
}

func openDrivers(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	out := map[string]Store{}
	for driver, name := range map[string]string{"file": "alerts.jsonl", "sqlite": "alerts.db"} {
		st, err := Open(Config{Driver: driver, Path: filepath.Join(dir, driver, name)}, logxNop)
		require.NoError(t, err, driver)
		require.NotNil(t, st, driver)
		t.Cleanup(func() { _ = st.Close() })
		out[driver] = st
	}
	return out
}

func TestOpenDisabled(t *testing.T) {
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logxNop)
		require.NoError(t, err)
		assert.Nil(t, st)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "postgres", Path: "x"}, logxNop)
	require.Error(t, err)
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{Driver: "file"}, logxNop)
	require.Error(t, err)
	_, err = Open(Config{Driver: "sqlite"}, logxNop)
	require.Error(t, err)
}

func TestAppendAndRecent(t *testing.T) {
	ctx := context.Background()
	for driver, st := range openDrivers(t) {
		t.Run(driver, func(t *testing.T) {
			require.NoError(t, st.AppendAlert(ctx, entry("a", base, true)))
			require.NoError(t, st.AppendAlert(ctx, entry("b", base.Add(time.Second), false)))
			require.NoError(t, st.AppendAlert(ctx, entry("c", base.Add(2*time.Second), true)))

			got, err := st.RecentAlerts(ctx, 2)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "c", got[0].ID)
			assert.Equal(t, "b", got[1].ID)
			assert.False(t, got[1].Delivered)
			assert.Equal(t, "chat not found", got[1].Error)
			assert.True(t, got[0].At.Equal(base.Add(2*time.Second)))

			all, err := st.RecentAlerts(ctx, 0)
			require.NoError(t, err)
			assert.Len(t, all, 3)
		})
	}
}

func TestPruneBefore(t *testing.T) {
	ctx := context.Background()
	for driver, st := range openDrivers(t) {
		t.Run(driver, func(t *testing.T) {
			require.NoError(t, st.AppendAlert(ctx, entry("old", base.Add(-48*time.Hour), true)))
			require.NoError(t, st.AppendAlert(ctx, entry("new", base, true)))

			n, err := st.PruneBefore(ctx, base.Add(-24*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err := st.RecentAlerts(ctx, 10)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, "new", got[0].ID)

			// still writable after the rewrite
			require.NoError(t, st.AppendAlert(ctx, entry("later", base.Add(time.Minute), true)))
			got, err = st.RecentAlerts(ctx, 10)
			require.NoError(t, err)
			assert.Len(t, got, 2)
		})
	}
}

func TestPrunerRunOnce(t *testing.T) {
	ctx := context.Background()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "j.jsonl")}, logxNop)
	require.NoError(t, err)
	defer st.Close()

	require.NoError(t, st.AppendAlert(ctx, entry("old", base.Add(-2*time.Hour), true)))
	require.NoError(t, st.AppendAlert(ctx, entry("new", base.Add(-time.Minute), true)))

	p := NewPruner(st, PrunerConfig{Retention: time.Hour}, logxNop)
	p.now = func() time.Time { return base }

	n, err := p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPrunerStartStop(t *testing.T) {
	st, err := Open(Config{Driver: "file", Path: filepath.Join(t.TempDir(), "j.jsonl")}, logxNop)
	require.NoError(t, err)
	defer st.Close()

	p := NewPruner(st, PrunerConfig{Retention: time.Hour, Schedule: "not a schedule"}, logxNop)
	require.Error(t, p.Start(context.Background()))

	require.NoError(t, p.Apply(context.Background(), PrunerConfig{Retention: time.Hour, Schedule: "*/30 * * * * *"}))
	p.mu.Lock()
	running := p.c != nil
	p.mu.Unlock()
	assert.True(t, running)

	p.Stop(context.Background())
	p.mu.Lock()
	running = p.c != nil
	p.mu.Unlock()
	assert.False(t, running)
}

func TestValidateSchedule(t *testing.T) {
	assert.NoError(t, ValidateSchedule(""))
	assert.NoError(t, ValidateSchedule("@daily"))
	assert.NoError(t, ValidateSchedule("0 */5 * * * *"))
	assert.Error(t, ValidateSchedule("every tuesday"))
}

var logxNop = logx.Nop()
