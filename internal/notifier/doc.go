// Package notifier turns emitted notification records into chat alerts.
//
// Delivery is synchronous on the caller's goroutine: Notify renders the
// message, waits on the rate limiter and performs one send bounded by the
// configured timeout. Failures are logged and published on the event bus,
// never retried.
//
// # Fan-out
//
// When a kit.Publisher is wired (for example the NATS sink), every emitted
// alert is also published there as JSON, regardless of the chat outcome.
package notifier
