package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	logx "notifyrelay/pkg/logx"
)

// Store is the journal API used by the relay and the CLI.
type Store interface {
	AppendAlert(ctx context.Context, e AlertEntry) error
	// RecentAlerts returns up to limit entries, newest first.
	RecentAlerts(ctx context.Context, limit int) ([]AlertEntry, error)
	// PruneBefore deletes entries older than cutoff and reports how many.
	PruneBefore(ctx context.Context, cutoff time.Time) (int, error)
	Close() error
}

// Open initializes the configured store.
// It returns (nil, nil) if storage is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown storage driver: " + driver)
	}
}
