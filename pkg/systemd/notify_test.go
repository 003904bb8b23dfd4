package systemd

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listen(t *testing.T) *net.UnixConn {
	t.Helper()
	// unix socket paths are length-limited; keep it short
	dir, err := os.MkdirTemp("", "sd")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	path := filepath.Join(dir, "n.sock")
	conn, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	t.Setenv("NOTIFY_SOCKET", path)
	return conn
}

func read(t *testing.T, conn *net.UnixConn) string {
	t.Helper()
	buf := make([]byte, 256)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := conn.Read(buf)
	require.NoError(t, err)
	return string(buf[:n])
}

func TestNotifyWithoutSocketIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	ok, err := Ready()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReadyAndStopping(t *testing.T) {
	conn := listen(t)

	ok, err := Ready()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "READY=1", read(t, conn))

	_, err = Status("relaying %s", "Firefox")
	require.NoError(t, err)
	assert.Equal(t, "STATUS=relaying Firefox", read(t, conn))

	_, err = Stopping()
	require.NoError(t, err)
	assert.Equal(t, "STOPPING=1", read(t, conn))
}

func TestWatchdogDisabledReturns(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")
	require.NoError(t, Watchdog(context.Background()))
}
