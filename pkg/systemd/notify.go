// Package systemd reports service state to systemd through the sd_notify
// protocol. Every call is a no-op when the process was not started by a
// notify-type unit (NOTIFY_SOCKET unset).
package systemd

import (
	"context"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
)

// Ready tells systemd that startup finished. It reports whether the
// notification was delivered.
func Ready() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyReady) }

// Stopping tells systemd that shutdown began.
func Stopping() (bool, error) { return daemon.SdNotify(false, daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func Status(format string, args ...any) (bool, error) {
	return daemon.SdNotify(false, "STATUS="+fmt.Sprintf(format, args...))
}

// Watchdog pings the service watchdog at half the interval systemd asked
// for, until ctx is done. It returns immediately if the watchdog is not
// enabled for this process.
func Watchdog(ctx context.Context) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return err
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := daemon.SdNotify(false, daemon.SdNotifyWatchdog); err != nil {
				return err
			}
		}
	}
}
