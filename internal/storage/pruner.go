package storage

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	logx "notifyrelay/pkg/logx"
)

const DefaultPruneSchedule = "@hourly"

// PrunerConfig configures journal retention.
type PrunerConfig struct {
	Retention time.Duration // <= 0 disables pruning
	Schedule  string        // cron spec, seconds optional; default @hourly
}

// Pruner deletes journal entries older than the retention window on a cron
// schedule.
type Pruner struct {
	store Store
	log   logx.Logger
	now   func() time.Time

	parser cron.Parser

	mu  sync.Mutex
	cfg PrunerConfig
	c   *cron.Cron
}

func NewPruner(store Store, cfg PrunerConfig, log logx.Logger) *Pruner {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Pruner{
		store:  store,
		log:    log,
		now:    time.Now,
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		cfg:    cfg,
	}
}

// ValidateSchedule reports whether spec parses with the pruner's cron dialect.
func ValidateSchedule(spec string) error {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	p := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	_, err := p.Parse(spec)
	return err
}

// Start registers the prune job. It is a no-op if retention is disabled or
// the pruner is already running.
func (p *Pruner) Start(ctx context.Context) error {
	_ = ctx

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c != nil || p.store == nil || p.cfg.Retention <= 0 {
		return nil
	}

	spec := strings.TrimSpace(p.cfg.Schedule)
	if spec == "" {
		spec = DefaultPruneSchedule
	}
	sched, err := p.parser.Parse(spec)
	if err != nil {
		return err
	}

	p.c = cron.New(cron.WithParser(p.parser))
	p.c.Schedule(sched, cron.FuncJob(func() {
		_, _ = p.RunOnce(context.Background())
	}))
	p.c.Start()
	p.log.Info("pruner started", logx.String("schedule", spec), logx.Duration("retention", p.cfg.Retention))
	return nil
}

// RunOnce prunes expired entries immediately.
func (p *Pruner) RunOnce(ctx context.Context) (int, error) {
	if p.store == nil {
		return 0, ErrDisabled
	}
	p.mu.Lock()
	ret := p.cfg.Retention
	p.mu.Unlock()
	if ret <= 0 {
		return 0, nil
	}

	start := time.Now()
	n, err := p.store.PruneBefore(ctx, p.now().Add(-ret))
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			p.log.Warn("journal prune failed", logx.Err(err))
		}
		return n, err
	}
	if n > 0 {
		p.log.Info("journal pruned", logx.Int("removed", n), logx.Duration("took", time.Since(start)))
	}
	return n, nil
}

// Apply swaps the retention config, restarting the schedule if it changed.
func (p *Pruner) Apply(ctx context.Context, cfg PrunerConfig) error {
	p.mu.Lock()
	same := p.cfg == cfg
	running := p.c != nil
	p.cfg = cfg
	p.mu.Unlock()
	if same {
		return nil
	}
	if running {
		p.Stop(ctx)
	}
	return p.Start(ctx)
}

func (p *Pruner) Stop(ctx context.Context) {
	p.mu.Lock()
	c := p.c
	p.c = nil
	p.mu.Unlock()

	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
	p.log.Info("pruner stopped")
}
