package natsink

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "notifyrelay/pkg/logx"
)

type fakeConn struct {
	msgs     []*nats.Msg
	flushes  int
	drained  bool
	flushErr error
}

func (f *fakeConn) PublishMsg(m *nats.Msg) error {
	f.msgs = append(f.msgs, m)
	return nil
}

func (f *fakeConn) FlushWithContext(context.Context) error {
	f.flushes++
	return f.flushErr
}

func (f *fakeConn) Drain() error {
	f.drained = true
	return nil
}

func TestPublishUsesSubjectAndHeaders(t *testing.T) {
	fc := &fakeConn{}
	s := newSink(fc, "", logx.Nop())
	assert.Equal(t, DefaultSubject, s.Subject())

	require.NoError(t, s.Publish(context.Background(), []byte(`{"id":"x"}`)))
	require.Len(t, fc.msgs, 1)
	assert.Equal(t, DefaultSubject, fc.msgs[0].Subject)
	assert.Equal(t, "application/json", fc.msgs[0].Header.Get("Content-Type"))
	assert.Equal(t, 1, fc.flushes)

	require.NoError(t, s.Close())
	assert.True(t, fc.drained)
}

func TestPublishReturnsFlushError(t *testing.T) {
	fc := &fakeConn{flushErr: errors.New("timeout")}
	s := newSink(fc, "alerts.school", logx.Nop())
	err := s.Publish(context.Background(), []byte("{}"))
	assert.EqualError(t, err, "timeout")
	assert.Equal(t, "alerts.school", fc.msgs[0].Subject)
}

func TestNilSink(t *testing.T) {
	var s *Sink
	assert.Error(t, s.Publish(context.Background(), nil))
	assert.NoError(t, s.Close())
}
