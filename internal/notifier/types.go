package notifier

import (
	"time"

	"notifyrelay/internal/parser"
	kit "notifyrelay/internal/transport"
)

const (
	DefaultTitle       = "School Email Alert"
	DefaultRatePerSec  = 1
	DefaultSendTimeout = 10 * time.Second
)

// Config controls message rendering and delivery.
type Config struct {
	Title       string
	RatePerSec  int
	SendTimeout time.Duration
	Target      kit.ChatTarget
	// DisablePreview suppresses link previews in the chat message.
	DisablePreview bool
}

// Alert is a record that passed the gate, ready for delivery.
type Alert struct {
	ID        string        `json:"id"`
	Signature string        `json:"signature"`
	Text      string        `json:"text"`
	Record    parser.Record `json:"record"`
}

// Outcome is the payload of alert.sent and alert.failed events.
type Outcome struct {
	Alert     Alert         `json:"alert"`
	Delivered bool          `json:"delivered"`
	Error     string        `json:"error,omitempty"`
	Took      time.Duration `json:"took"`
	At        time.Time     `json:"at"`
}
