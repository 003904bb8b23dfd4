package app

import (
	"io"

	kit "notifyrelay/internal/transport"
)

type options struct {
	sender    kit.Sender
	input     io.Reader
	inputName string
	watch     bool
	journal   bool
	fanout    bool
	systemd   bool
}

type Option func(*options)

// WithSender delivers alerts through s instead of Telegram. Credentials are
// then not required and the Telegram log sink stays off.
func WithSender(s kit.Sender) Option {
	return func(o *options) { o.sender = s }
}

// WithInput reads the notification stream from r instead of the configured
// monitor.
func WithInput(name string, r io.Reader) Option {
	return func(o *options) {
		o.input = r
		o.inputName = name
	}
}

// WithWatch enables config hot reload (default on).
func WithWatch(enabled bool) Option {
	return func(o *options) { o.watch = enabled }
}

// WithJournal enables the alert journal when storage is configured
// (default on).
func WithJournal(enabled bool) Option {
	return func(o *options) { o.journal = enabled }
}

// WithFanout enables the NATS sink when configured (default on).
func WithFanout(enabled bool) Option {
	return func(o *options) { o.fanout = enabled }
}

// WithSystemd sends sd_notify readiness and watchdog pings (default on).
func WithSystemd(enabled bool) Option {
	return func(o *options) { o.systemd = enabled }
}

func defaultOptions() options {
	return options{watch: true, journal: true, fanout: true, systemd: true}
}
