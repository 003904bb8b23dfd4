// Package natsink publishes emitted alerts to a NATS subject so other
// services can react to them.
package natsink

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	logx "notifyrelay/pkg/logx"
)

const DefaultSubject = "notifyrelay.alerts"

type Config struct {
	URL     string
	Subject string
	Name    string
}

// conn is the subset of *nats.Conn the sink uses.
type conn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

type Sink struct {
	nc      conn
	subject string
	log     logx.Logger
}

// Dial connects to NATS and returns a sink publishing on cfg.Subject.
func Dial(cfg Config, log logx.Logger) (*Sink, error) {
	url := strings.TrimSpace(cfg.URL)
	if url == "" {
		url = nats.DefaultURL
	}
	name := cfg.Name
	if name == "" {
		name = "notifyrelay"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", logx.Err(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", logx.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, err
	}
	return newSink(nc, cfg.Subject, log), nil
}

func newSink(nc conn, subject string, log logx.Logger) *Sink {
	subject = strings.TrimSpace(subject)
	if subject == "" {
		subject = DefaultSubject
	}
	return &Sink{nc: nc, subject: subject, log: log}
}

func (s *Sink) Subject() string { return s.subject }

// Publish sends payload and waits for the server to acknowledge the flush
// (bounded by ctx).
func (s *Sink) Publish(ctx context.Context, payload []byte) error {
	if s == nil || s.nc == nil {
		return errors.New("natsink: not connected")
	}
	msg := &nats.Msg{Subject: s.subject, Data: payload, Header: nats.Header{}}
	msg.Header.Set("Content-Type", "application/json")
	if err := s.nc.PublishMsg(msg); err != nil {
		return err
	}
	if ctx == nil {
		return nil
	}
	return s.nc.FlushWithContext(ctx)
}

func (s *Sink) Close() error {
	if s == nil || s.nc == nil {
		return nil
	}
	return s.nc.Drain()
}
