package storage

import (
	"errors"
	"time"
)

var ErrDisabled = errors.New("storage disabled")

// Config configures storage.
//
// Driver values:
//   - "file": JSON Lines journal
//   - "sqlite": SQLite database file (modernc.org/sqlite)
//
// If Driver is empty or "none", storage is disabled.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// AlertEntry records one emitted alert and what happened to its delivery.
type AlertEntry struct {
	ID        string    `json:"id"`
	At        time.Time `json:"at"`
	App       string    `json:"app"`
	Sender    string    `json:"sender"`
	Subject   string    `json:"subject"`
	Delivered bool      `json:"delivered"`
	Error     string    `json:"error,omitempty"`
	TookMS    int64     `json:"took_ms"`
}
