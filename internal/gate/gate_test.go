package gate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func TestAppFilter(t *testing.T) {
	f := NewAppFilter("Firefox")
	assert.True(t, f.Accept("Firefox"))
	assert.True(t, f.Accept("Mozilla Firefox Nightly"))
	assert.False(t, f.Accept("firefox"))
	assert.False(t, f.Accept(""))

	f.SetTarget("Thunderbird")
	assert.Equal(t, "Thunderbird", f.Target())
	assert.False(t, f.Accept("Firefox"))
	assert.True(t, f.Accept("Thunderbird"))
}

func TestSignature(t *testing.T) {
	assert.Equal(t, "alice@example.com|Hi", Signature("alice@example.com", "Hi"))
	assert.Equal(t, "|", Signature("", ""))
}

func TestFirstRecordAlwaysEmits(t *testing.T) {
	d := NewDebouncer(DefaultWindow)
	assert.True(t, d.Allow("", "", time.Time{}.Add(time.Second)))

	d = NewDebouncer(DefaultWindow)
	assert.True(t, d.Allow("a", "b", t0))
}

func TestSameSignatureWithinWindowSuppressed(t *testing.T) {
	d := NewDebouncer(DefaultWindow)
	assert.True(t, d.Allow("alice", "Meeting", t0))
	assert.False(t, d.Allow("alice", "Meeting", t0.Add(3*time.Second)))
	assert.True(t, d.Allow("alice", "Meeting", t0.Add(6*time.Second)))
}

func TestExactlyWindowIsSuppressed(t *testing.T) {
	d := NewDebouncer(DefaultWindow)
	assert.True(t, d.Allow("a", "b", t0))
	assert.False(t, d.Allow("a", "b", t0.Add(DefaultWindow)))
	assert.True(t, d.Allow("a", "b", t0.Add(DefaultWindow+time.Nanosecond)))
}

func TestSuppressionDoesNotRefreshState(t *testing.T) {
	d := NewDebouncer(DefaultWindow)
	d.Allow("a", "b", t0)
	d.Allow("a", "b", t0.Add(4*time.Second))
	assert.Equal(t, State{LastSignature: "a|b", LastEmittedAt: t0}, d.State())
	// 5.5s after the emission, not after the suppressed repeat.
	assert.True(t, d.Allow("a", "b", t0.Add(5500*time.Millisecond)))
}

func TestDifferentSignatureEmitsImmediately(t *testing.T) {
	d := NewDebouncer(DefaultWindow)
	assert.True(t, d.Allow("a", "one", t0))
	assert.True(t, d.Allow("a", "two", t0.Add(time.Millisecond)))
	assert.True(t, d.Allow("a", "one", t0.Add(2*time.Millisecond)))
	assert.Equal(t, "a|one", d.State().LastSignature)
}

func TestDecideIsPure(t *testing.T) {
	st := State{LastSignature: "x|y", LastEmittedAt: t0}
	ok, next := Decide(st, "x|y", t0.Add(time.Second), DefaultWindow)
	assert.False(t, ok)
	assert.Equal(t, st, next)

	ok, next = Decide(st, "x|z", t0.Add(time.Second), DefaultWindow)
	assert.True(t, ok)
	assert.Equal(t, State{LastSignature: "x|z", LastEmittedAt: t0.Add(time.Second)}, next)
}

func TestSetWindow(t *testing.T) {
	d := NewDebouncer(0)
	assert.Equal(t, DefaultWindow, d.Window())
	d.SetWindow(time.Minute)
	assert.Equal(t, time.Minute, d.Window())

	assert.True(t, d.Allow("a", "b", t0))
	assert.False(t, d.Allow("a", "b", t0.Add(30*time.Second)))
}
