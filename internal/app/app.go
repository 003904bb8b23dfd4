package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"notifyrelay/internal/config"
	"notifyrelay/internal/eventbus"
	"notifyrelay/internal/notifier"
	"notifyrelay/internal/pipeline"
	"notifyrelay/internal/runtime/supervisor"
	"notifyrelay/internal/source"
	"notifyrelay/internal/storage"
	kit "notifyrelay/internal/transport"
	"notifyrelay/internal/transport/natsink"
	"notifyrelay/internal/transport/telegram"
	logx "notifyrelay/pkg/logx"
	"notifyrelay/pkg/systemd"
)

// App wires the relay: line source, pipeline, notifier and the ambient
// services around them (config reload, alert journal, fan-out, systemd).
type App struct {
	opts options

	cfgm *config.ConfigManager
	cfg  *config.Config

	sup  *supervisor.Supervisor
	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	sender kit.Sender
	pub    kit.Publisher
	store  storage.Store
	pruner *storage.Pruner
	notif  *notifier.Service
	pipe   *pipeline.Pipeline

	pipeDone chan struct{}

	stopOnce sync.Once
}

// NewApp loads the config and builds every component. Nothing runs until
// Start.
func NewApp(cfgm *config.ConfigManager, opts ...Option) (*App, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	sender := o.sender
	if sender == nil {
		if err := config.RequireTelegram(cfg); err != nil {
			return nil, err
		}
		bootLog := logx.NewConsole(cfg.Logging.Level).With(logx.String("comp", "telegram"))
		ad, err := telegram.New(mapTelegramConfig(cfg), bootLog)
		if err != nil {
			return nil, err
		}
		sender = ad
	}

	// Bootstrap with the Telegram sink off, set its target, then enable it.
	telegramSink := o.sender == nil
	logSvc, root := logx.New(mapLogConfig(cfg, false), sender)
	logSvc.SetTelegramTarget(logTarget(cfg))
	logSvc.Apply(mapLogConfig(cfg, telegramSink))
	log := root.With(logx.String("comp", "app"))

	cfgm.SetLogger(root.With(logx.String("comp", "config")))

	bus := eventbus.New()

	a := &App{
		opts:     o,
		cfgm:     cfgm,
		cfg:      cfg,
		log:      log,
		logs:     logSvc,
		bus:      bus,
		sender:   sender,
		pipeDone: make(chan struct{}),
	}

	if o.journal {
		if sc, ok := mapStorageConfig(cfg); ok {
			st, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
			if err != nil {
				_ = logSvc.Close()
				return nil, fmt.Errorf("open storage: %w", err)
			}
			a.store = st
			a.pruner = storage.NewPruner(st, mapPrunerConfig(cfg), root.With(logx.String("comp", "pruner")))
			log.Info("alert journal enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
		}
	}

	if o.fanout {
		if nc, ok := mapNatsConfig(cfg); ok {
			sink, err := natsink.Dial(nc, root.With(logx.String("comp", "nats")))
			if err != nil {
				a.closeStore()
				_ = logSvc.Close()
				return nil, fmt.Errorf("connect nats: %w", err)
			}
			a.pub = sink
			log.Info("alert fan-out enabled", logx.String("subject", sink.Subject()))
		}
	}

	a.notif = notifier.New(mapNotifierConfig(cfg), sender, root.With(logx.String("comp", "notifier")), bus, a.pub)
	return a, nil
}

func (a *App) Logger() logx.Logger { return a.log }

// Done is closed when the app context is canceled: fatal error, end of
// input or Stop.
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor (if any).
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Stats returns the pipeline counters (zero before Start).
func (a *App) Stats() pipeline.Stats {
	if a.pipe == nil {
		return pipeline.Stats{}
	}
	return a.pipe.Stats()
}

func (a *App) Start(ctx context.Context) error {
	a.sup = supervisor.NewSupervisor(ctx,
		supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		supervisor.WithCancelOnError(true),
	)
	run := a.sup.Context()

	src, err := a.openSource(run)
	if err != nil {
		close(a.pipeDone)
		a.sup.Cancel()
		return fmt.Errorf("open line source: %w", err)
	}
	a.pipe = pipeline.New(src, a.notif, mapPipelineConfig(a.cfg), a.log.With(logx.String("comp", "pipeline")), a.bus)

	if a.store != nil {
		events, unsub := a.bus.Subscribe(256, eventbus.AlertSent, eventbus.AlertFailed)
		a.sup.Go0("journal", func(c context.Context) {
			defer unsub()
			a.journalLoop(c, events)
		})
		if err := a.pruner.Start(run); err != nil {
			a.log.Warn("journal pruner not started", logx.Err(err))
		}
	}

	if a.log.Enabled(logx.LevelDebug) {
		events, unsub := a.bus.Subscribe(128)
		a.sup.Go0("eventbus.log", func(c context.Context) {
			defer unsub()
			for {
				select {
				case <-c.Done():
					return
				case e, ok := <-events:
					if !ok {
						return
					}
					a.log.Debug("event", logx.String("type", e.Type), logx.Time("time", e.Time))
				}
			}
		})
	}

	if a.opts.watch {
		a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
			if a.opts.sender == nil {
				return config.RequireTelegram(cfg)
			}
			return nil
		})
		sub := a.cfgm.Subscribe(8)
		a.sup.Go0("config.reload", func(c context.Context) {
			defer a.cfgm.Unsubscribe(sub)
			a.reloadLoop(c, sub)
		})
		a.sup.Go("config.watch", func(c context.Context) error {
			return a.cfgm.Watch(c)
		})
	}

	a.sup.Go("pipeline", func(c context.Context) error {
		defer close(a.pipeDone)
		err := a.pipe.Run(c)
		if err == nil && c.Err() == nil {
			// input ended: nothing left to relay
			a.sup.Cancel()
		}
		return err
	})

	if a.opts.systemd {
		if ok, err := systemd.Ready(); err != nil {
			a.log.Warn("sd_notify ready failed", logx.Err(err))
		} else if ok {
			_, _ = systemd.Status("relaying %q notifications from %s", a.cfg.Monitor.TargetApp, src.Name())
			a.sup.Go("systemd.watchdog", systemd.Watchdog)
		}
	}

	a.log.Info("app started",
		logx.String("source", src.Name()),
		logx.String("target_app", a.cfg.Monitor.TargetApp),
		logx.Duration("window", a.cfg.DebounceWindow()),
	)
	return nil
}

func (a *App) openSource(ctx context.Context) (source.LineSource, error) {
	sc := mapSourceConfig(a.cfg)
	if a.opts.input != nil {
		name := a.opts.inputName
		if name == "" {
			name = "input"
		}
		return source.NewReader(name, a.opts.input), nil
	}
	return source.Open(ctx, sc, a.log.With(logx.String("comp", "source")))
}

// journalLoop records delivery outcomes. On shutdown it drains what is
// already buffered so the last alerts are not lost.
func (a *App) journalLoop(ctx context.Context, events <-chan eventbus.Event) {
	write := func(e eventbus.Event) {
		out, ok := e.Data.(notifier.Outcome)
		if !ok {
			return
		}
		wctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.store.AppendAlert(wctx, journalEntry(out)); err != nil {
			a.log.Warn("journal write failed", logx.String("id", out.Alert.ID), logx.Err(err))
		}
	}
	for {
		select {
		case e, ok := <-events:
			if !ok {
				return
			}
			write(e)
		case <-ctx.Done():
			for {
				select {
				case e, ok := <-events:
					if !ok {
						return
					}
					write(e)
				default:
					return
				}
			}
		}
	}
}

func journalEntry(out notifier.Outcome) storage.AlertEntry {
	r := out.Alert.Record
	return storage.AlertEntry{
		ID:        out.Alert.ID,
		At:        r.ObservedAt,
		App:       r.App,
		Sender:    r.Sender,
		Subject:   r.Subject,
		Delivered: out.Delivered,
		Error:     out.Error,
		TookMS:    out.Took.Milliseconds(),
	}
}

// reloadLoop applies hot-reloadable settings from published configs.
func (a *App) reloadLoop(ctx context.Context, sub <-chan *config.Config) {
	last := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case cfg, ok := <-sub:
			if !ok {
				return
			}
			// coalesce bursts
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						cfg = newer
					}
				default:
					break drain
				}
			}
			a.apply(ctx, last, cfg)
			last = cfg
		}
	}
}

func (a *App) apply(ctx context.Context, prev, cfg *config.Config) {
	sections, fields := config.SummarizeConfigChange(prev, cfg)
	if len(sections) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}
	if pending := config.RestartRequired(prev, cfg); len(pending) > 0 {
		a.log.Warn("config changes need a restart to take effect", logx.String("keys", strings.Join(pending, ",")))
	}

	a.logs.SetTelegramTarget(logTarget(cfg))
	a.logs.Apply(mapLogConfig(cfg, a.opts.sender == nil))

	a.pipe.Apply(mapPipelineConfig(cfg))
	a.notif.Apply(mapNotifierConfig(cfg))
	if a.pruner != nil {
		if err := a.pruner.Apply(ctx, mapPrunerConfig(cfg)); err != nil {
			a.log.Warn("invalid prune schedule; pruning stopped", logx.Err(err))
		}
	}

	all := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, fields...)
	a.log.Info("config reloaded", all...)
}

// Stop shuts the app down in bounded steps. It is safe to call more than
// once; later calls return nil immediately.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	if a.sup == nil {
		if a.pub != nil {
			_ = a.pub.Close()
		}
		a.closeStore()
		_ = a.logs.Close()
		return nil
	}
	var err error
	a.stopOnce.Do(func() { err = a.stop(ctx, reason) })
	return err
}

func (a *App) stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if a.opts.systemd {
		_, _ = systemd.Stopping()
	}

	// Cancel first so the pipeline and source unwind immediately.
	a.sup.Cancel()

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		if err := runStep(ctx, a.log, name, max, fn); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}

	step("pipeline", 3*time.Second, func(c context.Context) error {
		select {
		case <-a.pipeDone:
			return nil
		case <-c.Done():
			return c.Err()
		}
	})
	step("pruner", time.Second, func(c context.Context) error {
		if a.pruner != nil {
			a.pruner.Stop(c)
		}
		return nil
	})
	step("supervisor", 2*time.Second, func(c context.Context) error { return a.sup.Wait(c) })
	step("nats", time.Second, func(context.Context) error {
		if a.pub != nil {
			return a.pub.Close()
		}
		return nil
	})
	step("storage", time.Second, func(context.Context) error { return a.closeStoreErr() })

	st := a.Stats()
	a.log.Info("stopped",
		logx.Uint64("records", st.Records),
		logx.Uint64("emitted", st.Emitted),
		logx.Uint64("suppressed", st.Suppressed),
		logx.Uint64("failed", st.Failed),
		logx.Uint64("goroutines", a.sup.Counters().Started),
		logx.Int64("active", a.sup.Counters().Active),
	)
	_ = a.logs.Close()
	return errors.Join(errs...)
}

func (a *App) closeStore() { _ = a.closeStoreErr() }

func (a *App) closeStoreErr() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// runStep runs one shutdown step with an upper bound so a stuck component
// cannot stall the whole stop. The caller's deadline is never extended.
func runStep(ctx context.Context, log logx.Logger, name string, max time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	if dl, ok := ctx.Deadline(); ok {
		if rem := time.Until(dl); rem < max {
			max = rem
		}
	}
	if max <= 0 {
		log.Warn("stop step skipped (deadline reached)", logx.String("name", name))
		return context.DeadlineExceeded
	}
	stepCtx, cancel := context.WithTimeout(ctx, max)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic in stop step %s: %v", name, r)
			}
		}()
		done <- fn(stepCtx)
	}()

	select {
	case err := <-done:
		took := time.Since(start)
		if err != nil {
			log.Warn("stop step error", logx.String("name", name), logx.Err(err))
		} else {
			log.Debug("stop step end", logx.String("name", name), logx.Duration("took", took))
		}
		return err
	case <-stepCtx.Done():
		log.Warn("stop step deadline reached (continuing)", logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		go func() {
			if err := <-done; err != nil {
				log.Warn("stop step finished after deadline", logx.String("name", name), logx.Err(err))
			}
		}()
		return stepCtx.Err()
	}
}
