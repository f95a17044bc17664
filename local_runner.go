package orderdesk

import (
	"context"
	"errors"
	"sync"

	"github.com/petrijr/orderdesk/pkg/worker"
)

// LocalRunner bundles an in-memory Service and a sweep Worker to provide a
// simple single-process setup for development and tests.
//
// Typical usage:
//
//	runner := orderdesk.NewLocalRunner(orderdesk.Options{Gateway: gw}, worker.Config{
//		RecoveryInterval: time.Minute,
//		NotifyInterval:   30 * time.Second,
//	})
//	_ = runner.Start(ctx)
//	order, err := runner.Service.CreateOrder(ctx, req)
//	...
//	runner.Stop()
type LocalRunner struct {
	// Service is the in-memory order service used by this runner.
	Service Service

	// Worker runs the periodic sweeps against Service.
	Worker *worker.Worker

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewLocalRunner constructs a LocalRunner backed by an in-memory Service.
// When opts.Clock is set and wcfg.Clock is not, the worker shares it.
func NewLocalRunner(opts Options, wcfg worker.Config) *LocalRunner {
	svc := NewInMemoryService(opts)
	if wcfg.Clock == nil {
		wcfg.Clock = opts.Clock
	}
	return &LocalRunner{
		Service: svc,
		Worker:  worker.New(svc, wcfg),
	}
}

// Start schedules the sweeps until Stop is called or ctx is cancelled.
//
// If Start is called more than once without Stop, it returns an error.
func (r *LocalRunner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return errors.New("orderdesk: LocalRunner already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	if err := r.Worker.Start(ctx); err != nil {
		cancel()
		return err
	}
	r.cancel = cancel
	r.running = true
	return nil
}

// Stop halts the sweep schedule.
func (r *LocalRunner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.Worker.Stop()
}
