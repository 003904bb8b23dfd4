package gate

import (
	"sync/atomic"
	"time"
)

// DefaultWindow is how long an identical signature stays suppressed.
const DefaultWindow = 5 * time.Second

// SignatureSeparator joins sender and subject into a signature.
const SignatureSeparator = "|"

// Signature derives the dedup key of a notification. It is never empty, so
// it can never equal the initial State.
func Signature(sender, subject string) string {
	return sender + SignatureSeparator + subject
}

// State is the last emission seen by the gate. The zero value is the
// process-start state: no signature, emitted at the zero time.
type State struct {
	LastSignature string
	LastEmittedAt time.Time
}

// Decide is the pure debounce decision. It reports whether sig should be
// emitted at now and the state to keep afterwards; on suppression the
// state is returned unchanged.
func Decide(st State, sig string, now time.Time, window time.Duration) (bool, State) {
	if sig != st.LastSignature || now.Sub(st.LastEmittedAt) > window {
		return true, State{LastSignature: sig, LastEmittedAt: now}
	}
	return false, st
}

// Debouncer owns the process-lifetime State. Allow must be called from a
// single goroutine; only the window may be changed concurrently.
type Debouncer struct {
	state  State
	window atomic.Int64
}

func NewDebouncer(window time.Duration) *Debouncer {
	d := &Debouncer{}
	d.SetWindow(window)
	return d
}

// SetWindow changes the suppression window; non-positive means DefaultWindow.
func (d *Debouncer) SetWindow(window time.Duration) {
	if window <= 0 {
		window = DefaultWindow
	}
	d.window.Store(int64(window))
}

func (d *Debouncer) Window() time.Duration { return time.Duration(d.window.Load()) }

// Allow decides for the signature of sender and subject at now and records
// the emission when allowed.
func (d *Debouncer) Allow(sender, subject string, now time.Time) bool {
	ok, next := Decide(d.state, Signature(sender, subject), now, d.Window())
	d.state = next
	return ok
}

func (d *Debouncer) State() State { return d.state }
