package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/petrijr/orderdesk/internal/persistence"
	"github.com/petrijr/orderdesk/pkg/api"
)

// Sweep names reported to Observer.OnSweepFailed.
const (
	SweepRecovery = "recovery"
	SweepNotify   = "notify"
	SweepPurge    = "purge"
)

func (e *engineImpl) RecoverStuckOrders(ctx context.Context, now time.Time, threshold time.Duration) (api.RecoveryResult, error) {
	if threshold <= 0 {
		return api.RecoveryResult{}, fmt.Errorf("recovery threshold must be positive, got %s", threshold)
	}

	res := api.RecoveryResult{
		Cutoff:    now.Add(-threshold),
		Threshold: threshold,
	}
	n, err := e.orders.RecoverUnclaimed(ctx, res.Cutoff, now)
	if err != nil {
		err = fmt.Errorf("recover stuck orders: %w", err)
		e.observer.OnSweepFailed(ctx, SweepRecovery, err)
		return res, err
	}
	res.Recovered = n
	e.observer.OnRecoverySweep(ctx, res)
	return res, nil
}

func (e *engineImpl) PurgeFulfilled(ctx context.Context, now time.Time, retention time.Duration) (api.PurgeResult, error) {
	if retention <= 0 {
		return api.PurgeResult{}, fmt.Errorf("retention must be positive, got %s", retention)
	}

	res := api.PurgeResult{Cutoff: now.Add(-retention)}

	var before persistence.BeforePurgeFunc
	if e.archiver != nil {
		before = e.archiver.Archive
	}
	counts, err := e.orders.PurgePrinted(ctx, res.Cutoff, before)
	res.Orders = counts.Orders
	res.LineItems = counts.LineItems
	if err != nil {
		err = fmt.Errorf("purge fulfilled orders: %w", err)
		e.observer.OnSweepFailed(ctx, SweepPurge, err)
		return res, err
	}
	e.observer.OnPurgeSweep(ctx, res)
	return res, nil
}
