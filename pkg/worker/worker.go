package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron"

	"github.com/petrijr/orderdesk/pkg/api"
)

const (
	DefaultStuckThreshold = 10 * time.Minute
	DefaultRetention      = 90 * 24 * time.Hour
)

// Config controls which sweeps run and how often. A zero interval disables
// that sweep.
type Config struct {
	RecoveryInterval time.Duration
	NotifyInterval   time.Duration
	PurgeInterval    time.Duration

	// StuckThreshold is how long a NEW order may wait unclaimed.
	StuckThreshold time.Duration
	// Retention is how long PRINTED orders are kept.
	Retention time.Duration

	Clock  api.Clock
	Logger *slog.Logger
}

// Worker drives the periodic sweeps of a Service.
type Worker struct {
	svc    api.Service
	cfg    Config
	logger *slog.Logger

	mu   sync.Mutex
	cron *cron.Cron

	// one flag per sweep so a slow run is skipped rather than stacked
	recovering atomic.Bool
	notifying  atomic.Bool
	purging    atomic.Bool
}

// New creates a new Worker.
func New(svc api.Service, cfg Config) *Worker {
	if cfg.StuckThreshold <= 0 {
		cfg.StuckThreshold = DefaultStuckThreshold
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if cfg.Clock == nil {
		cfg.Clock = api.SystemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{svc: svc, cfg: cfg, logger: logger}
}

// RunRecovery runs one stuck-order recovery sweep.
func (w *Worker) RunRecovery(ctx context.Context) (api.RecoveryResult, error) {
	return w.svc.RecoverStuckOrders(ctx, w.cfg.Clock.Now(), w.cfg.StuckThreshold)
}

// RunNotify runs one notification sweep over the pending backlog.
func (w *Worker) RunNotify(ctx context.Context) (api.NotifyBatchResult, error) {
	return w.svc.NotifyPending(ctx, w.cfg.Clock.Now())
}

// RunPurge runs one retention purge sweep.
func (w *Worker) RunPurge(ctx context.Context) (api.PurgeResult, error) {
	return w.svc.PurgeFulfilled(ctx, w.cfg.Clock.Now(), w.cfg.Retention)
}

// Start schedules every enabled sweep. Scheduled runs use ctx; Stop, or ctx
// being cancelled, ends the schedule.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cron != nil {
		return errors.New("worker already started")
	}
	if w.cfg.RecoveryInterval <= 0 && w.cfg.NotifyInterval <= 0 && w.cfg.PurgeInterval <= 0 {
		return errors.New("worker has no sweep enabled")
	}

	c := cron.New()
	w.schedule(ctx, c, "recovery", w.cfg.RecoveryInterval, &w.recovering, func(ctx context.Context) error {
		_, err := w.RunRecovery(ctx)
		return err
	})
	w.schedule(ctx, c, "notify", w.cfg.NotifyInterval, &w.notifying, func(ctx context.Context) error {
		_, err := w.RunNotify(ctx)
		return err
	})
	w.schedule(ctx, c, "purge", w.cfg.PurgeInterval, &w.purging, func(ctx context.Context) error {
		_, err := w.RunPurge(ctx)
		return err
	})
	c.Start()
	w.cron = c

	go func() {
		<-ctx.Done()
		w.stopCron(c)
	}()
	return nil
}

func (w *Worker) schedule(ctx context.Context, c *cron.Cron, name string, every time.Duration, busy *atomic.Bool, run func(context.Context) error) {
	if every <= 0 {
		return
	}
	c.Schedule(cron.Every(every), cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if !busy.CompareAndSwap(false, true) {
			w.logger.Warn("sweep still running, skipping", slog.String("sweep", name))
			return
		}
		defer busy.Store(false)

		if err := run(ctx); err != nil && ctx.Err() == nil {
			// The service already reported the failure to its observer.
			w.logger.Debug("sweep failed", slog.String("sweep", name), slog.Any("error", err))
		}
	}))
	w.logger.Info("sweep scheduled", slog.String("sweep", name), slog.Duration("every", every))
}

// Stop halts the schedule. Runs already in progress finish on their own.
func (w *Worker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron != nil {
		w.cron.Stop()
		w.cron = nil
	}
}

// stopCron stops c only if it is still the active schedule, so a cancelled
// context from an earlier Start cannot stop a later one.
func (w *Worker) stopCron(c *cron.Cron) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cron == c {
		c.Stop()
		w.cron = nil
	}
}
