package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"notifyrelay/internal/eventbus"
	"notifyrelay/internal/gate"
	"notifyrelay/internal/parser"
	kit "notifyrelay/internal/transport"
	logx "notifyrelay/pkg/logx"
)

var ErrNoSender = errors.New("notifier has no sender")

// Service delivers alerts through a kit.Sender.
//
// It is safe for concurrent use, though the relay calls it from a single
// goroutine.
type Service struct {
	log    logx.Logger
	sender kit.Sender
	bus    eventbus.Bus
	pub    kit.Publisher
	now    func() time.Time

	mu      sync.Mutex
	cfg     Config
	limiter *rate.Limiter
}

func New(cfg Config, sender kit.Sender, log logx.Logger, bus eventbus.Bus, pub kit.Publisher) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	s := &Service{
		log:    log,
		sender: sender,
		bus:    bus,
		pub:    pub,
		now:    time.Now,
	}
	s.applyLocked(cfg)
	return s
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	s.applyLocked(cfg)
	s.mu.Unlock()
}

func (s *Service) applyLocked(cfg Config) {
	if cfg.Title == "" {
		cfg.Title = DefaultTitle
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	// Keep the limiter across reloads unless the rate changed, so a reload
	// does not hand out a fresh burst.
	if s.limiter == nil || s.cfg.RatePerSec != cfg.RatePerSec {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	s.cfg = cfg
}

// Config returns the effective config (defaults applied).
func (s *Service) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Build renders r into an Alert without sending it.
func (s *Service) Build(r parser.Record) Alert {
	s.mu.Lock()
	title := s.cfg.Title
	s.mu.Unlock()

	at := r.ObservedAt
	if at.IsZero() {
		at = s.now()
	}
	return Alert{
		ID:        ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		Signature: gate.Signature(r.Sender, r.Subject),
		Text:      Render(title, r),
		Record:    r,
	}
}

// Notify sends one alert for r and reports the delivery error, if any.
// The returned Alert is valid even when err != nil.
func (s *Service) Notify(ctx context.Context, r parser.Record) (Alert, error) {
	a := s.Build(r)

	s.mu.Lock()
	cfg := s.cfg
	lim := s.limiter
	s.mu.Unlock()

	s.publish(ctx, a)

	if s.sender == nil {
		return a, s.fail(a, 0, ErrNoSender)
	}
	if err := lim.Wait(ctx); err != nil {
		return a, s.fail(a, 0, fmt.Errorf("rate limit: %w", err))
	}

	start := s.now()
	cctx, cancel := context.WithTimeout(ctx, cfg.SendTimeout)
	_, err := s.sender.SendText(cctx, cfg.Target, a.Text, &kit.SendOptions{DisablePreview: cfg.DisablePreview})
	cancel()
	took := s.now().Sub(start)
	if err != nil {
		return a, fmt.Errorf("send alert %s: %w", a.ID, s.fail(a, took, err))
	}

	out := Outcome{Alert: a, Delivered: true, Took: took, At: s.now()}
	s.log.Info("alert sent", logx.String("id", a.ID), logx.String("sender", a.Record.Sender), logx.Duration("took", took))
	s.bus.Publish(eventbus.Event{Type: eventbus.AlertSent, Time: out.At, Data: out})
	return a, nil
}

// fail reports an undelivered alert and returns err unchanged.
func (s *Service) fail(a Alert, took time.Duration, err error) error {
	out := Outcome{Alert: a, Error: err.Error(), Took: took, At: s.now()}
	s.log.Warn("alert delivery failed",
		logx.String("id", a.ID),
		logx.String("sender", a.Record.Sender),
		logx.Duration("took", took),
		logx.Err(err),
	)
	s.bus.Publish(eventbus.Event{Type: eventbus.AlertFailed, Time: out.At, Data: out})
	return err
}

func (s *Service) publish(ctx context.Context, a Alert) {
	if s.pub == nil {
		return
	}
	b, err := json.Marshal(a)
	if err != nil {
		s.log.Warn("alert encode failed", logx.Err(err))
		return
	}
	if err := s.pub.Publish(ctx, b); err != nil {
		s.log.Warn("alert fan-out failed", logx.String("id", a.ID), logx.Err(err))
	}
}
