// Package pipeline runs the relay's read loop: one line at a time from a
// line source, through the block parser, the application filter and the
// debounce gate, to the notifier.
//
// Everything stateful in the loop (capture session, debounce state) lives
// on the goroutine that calls Run. Only the filter target and the debounce
// window may be changed from elsewhere, through Apply.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"notifyrelay/internal/eventbus"
	"notifyrelay/internal/gate"
	"notifyrelay/internal/notifier"
	"notifyrelay/internal/parser"
	"notifyrelay/internal/source"
	logx "notifyrelay/pkg/logx"
)

// Notifier delivers an emitted record.
type Notifier interface {
	Notify(ctx context.Context, r parser.Record) (notifier.Alert, error)
}

type Config struct {
	Marker    string
	TargetApp string
	Window    time.Duration
}

// Stats are cumulative counters for the lifetime of a Pipeline.
type Stats struct {
	Lines      uint64
	Records    uint64
	Rejected   uint64
	Emitted    uint64
	Suppressed uint64
	Failed     uint64
}

type Option func(*Pipeline)

// WithClock sets the clock used to timestamp records.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

type Pipeline struct {
	log    logx.Logger
	src    source.LineSource
	notify Notifier
	bus    eventbus.Bus
	now    func() time.Time

	parser *parser.Parser
	filter *gate.AppFilter
	gate   *gate.Debouncer

	lines, records, rejected, emitted, suppressed, failed atomic.Uint64
}

func New(src source.LineSource, n Notifier, cfg Config, log logx.Logger, bus eventbus.Bus, opts ...Option) *Pipeline {
	if log.IsZero() {
		log = logx.Nop()
	}
	if bus == nil {
		bus = eventbus.Nop{}
	}
	p := &Pipeline{
		log:    log,
		src:    src,
		notify: n,
		bus:    bus,
		now:    time.Now,
		filter: gate.NewAppFilter(targetOrDefault(cfg.TargetApp)),
		gate:   gate.NewDebouncer(cfg.Window),
	}
	for _, o := range opts {
		o(p)
	}
	p.parser = parser.New(parser.WithMarker(cfg.Marker), parser.WithClock(p.now))
	return p
}

// Apply updates the hot-reloadable settings. Safe to call while Run is
// active; the marker is fixed for the lifetime of the Pipeline.
func (p *Pipeline) Apply(cfg Config) {
	p.filter.SetTarget(targetOrDefault(cfg.TargetApp))
	p.gate.SetWindow(cfg.Window)
}

func targetOrDefault(t string) string {
	if t == "" {
		return gate.DefaultTargetApp
	}
	return t
}

func (p *Pipeline) Stats() Stats {
	return Stats{
		Lines:      p.lines.Load(),
		Records:    p.records.Load(),
		Rejected:   p.rejected.Load(),
		Emitted:    p.emitted.Load(),
		Suppressed: p.suppressed.Load(),
		Failed:     p.failed.Load(),
	}
}

// Run consumes the source until it ends or ctx is done. It returns nil on
// end of input or cancellation and a wrapped error on any other read
// failure. The source is closed on return.
func (p *Pipeline) Run(ctx context.Context) error {
	defer func() {
		if err := p.src.Close(); err != nil {
			p.log.Debug("source close", logx.Err(err))
		}
	}()

	p.log.Info("pipeline started",
		logx.String("source", p.src.Name()),
		logx.String("target_app", p.filter.Target()),
		logx.Duration("window", p.gate.Window()),
	)

	for {
		line, err := p.src.Next(ctx)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				p.log.Info("input ended", logx.Uint64("lines", p.lines.Load()))
				return nil
			case ctx.Err() != nil, errors.Is(err, context.Canceled), errors.Is(err, source.ErrSourceClosed):
				return nil
			default:
				return fmt.Errorf("read %s: %w", p.src.Name(), err)
			}
		}
		p.lines.Add(1)
		p.handle(ctx, line)
	}
}

func (p *Pipeline) handle(ctx context.Context, line string) {
	rec, ok := p.parser.Feed(line)
	if !ok {
		return
	}
	p.records.Add(1)
	p.log.Trace("record assembled", logx.String("app", rec.App), logx.String("sender", rec.Sender))
	p.bus.Publish(eventbus.Event{Type: eventbus.RecordAssembled, Time: rec.ObservedAt, Data: rec})

	if !p.filter.Accept(rec.App) {
		p.rejected.Add(1)
		return
	}

	if !p.gate.Allow(rec.Sender, rec.Subject, rec.ObservedAt) {
		p.suppressed.Add(1)
		p.log.Debug("alert suppressed", logx.String("sender", rec.Sender), logx.String("subject", rec.Subject))
		p.bus.Publish(eventbus.Event{Type: eventbus.AlertSuppressed, Time: rec.ObservedAt, Data: rec})
		return
	}

	p.emitted.Add(1)
	p.bus.Publish(eventbus.Event{Type: eventbus.AlertEmitted, Time: rec.ObservedAt, Data: rec})
	if p.notify == nil {
		return
	}
	if _, err := p.notify.Notify(ctx, rec); err != nil {
		p.failed.Add(1)
	}
}
