package api

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// Observer receives callbacks from the order engine for logging and metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay request handling or sweeps.
type Observer interface {
	// OnOrderCreated is called once a new order has been persisted.
	OnOrderCreated(ctx context.Context, order *Order)

	// OnOrderClaimed is called after a claim attempt, won or lost.
	OnOrderClaimed(ctx context.Context, orderID string, outcome ClaimOutcome)

	// OnOrderPrinted is called when an order reaches PRINTED.
	OnOrderPrinted(ctx context.Context, order *Order)

	// OnPrintJobUpdated is called after a print job is queued or changes state.
	OnPrintJobUpdated(ctx context.Context, job *PrintJob)

	// OnNotification is called for every single-order notification attempt.
	OnNotification(ctx context.Context, res NotifyResult)

	// OnNotifyBatch is called at the end of a notify sweep.
	OnNotifyBatch(ctx context.Context, res NotifyBatchResult)

	// OnRecoverySweep is called at the end of a stuck-order recovery sweep.
	OnRecoverySweep(ctx context.Context, res RecoveryResult)

	// OnPurgeSweep is called at the end of a retention purge sweep.
	OnPurgeSweep(ctx context.Context, res PurgeResult)

	// OnSweepFailed is called when a sweep aborts with an error.
	OnSweepFailed(ctx context.Context, sweep string, err error)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnOrderCreated(ctx context.Context, order *Order)                         {}
func (NoopObserver) OnOrderClaimed(ctx context.Context, orderID string, outcome ClaimOutcome) {}
func (NoopObserver) OnOrderPrinted(ctx context.Context, order *Order)                         {}
func (NoopObserver) OnPrintJobUpdated(ctx context.Context, job *PrintJob)                     {}
func (NoopObserver) OnNotification(ctx context.Context, res NotifyResult)                     {}
func (NoopObserver) OnNotifyBatch(ctx context.Context, res NotifyBatchResult)                 {}
func (NoopObserver) OnRecoverySweep(ctx context.Context, res RecoveryResult)                  {}
func (NoopObserver) OnPurgeSweep(ctx context.Context, res PurgeResult)                        {}
func (NoopObserver) OnSweepFailed(ctx context.Context, sweep string, err error)               {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnOrderCreated(ctx context.Context, order *Order) {
	for _, o := range c.observers {
		o.OnOrderCreated(ctx, order)
	}
}

func (c *CompositeObserver) OnOrderClaimed(ctx context.Context, orderID string, outcome ClaimOutcome) {
	for _, o := range c.observers {
		o.OnOrderClaimed(ctx, orderID, outcome)
	}
}

func (c *CompositeObserver) OnOrderPrinted(ctx context.Context, order *Order) {
	for _, o := range c.observers {
		o.OnOrderPrinted(ctx, order)
	}
}

func (c *CompositeObserver) OnPrintJobUpdated(ctx context.Context, job *PrintJob) {
	for _, o := range c.observers {
		o.OnPrintJobUpdated(ctx, job)
	}
}

func (c *CompositeObserver) OnNotification(ctx context.Context, res NotifyResult) {
	for _, o := range c.observers {
		o.OnNotification(ctx, res)
	}
}

func (c *CompositeObserver) OnNotifyBatch(ctx context.Context, res NotifyBatchResult) {
	for _, o := range c.observers {
		o.OnNotifyBatch(ctx, res)
	}
}

func (c *CompositeObserver) OnRecoverySweep(ctx context.Context, res RecoveryResult) {
	for _, o := range c.observers {
		o.OnRecoverySweep(ctx, res)
	}
}

func (c *CompositeObserver) OnPurgeSweep(ctx context.Context, res PurgeResult) {
	for _, o := range c.observers {
		o.OnPurgeSweep(ctx, res)
	}
}

func (c *CompositeObserver) OnSweepFailed(ctx context.Context, sweep string, err error) {
	for _, o := range c.observers {
		o.OnSweepFailed(ctx, sweep, err)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs order lifecycle and sweep
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnOrderCreated(ctx context.Context, order *Order) {
	o.Logger.InfoContext(ctx, "order_created",
		slog.String("order_id", order.ID),
		slog.String("store_id", order.StoreID),
		slog.String("code", order.Code),
		slog.Int64("total_cents", order.TotalCents),
	)
}

func (o *LoggingObserver) OnOrderClaimed(ctx context.Context, orderID string, outcome ClaimOutcome) {
	o.Logger.DebugContext(ctx, "order_claim",
		slog.String("order_id", orderID),
		slog.String("outcome", string(outcome)),
	)
}

func (o *LoggingObserver) OnOrderPrinted(ctx context.Context, order *Order) {
	o.Logger.InfoContext(ctx, "order_printed",
		slog.String("order_id", order.ID),
		slog.String("store_id", order.StoreID),
	)
}

func (o *LoggingObserver) OnPrintJobUpdated(ctx context.Context, job *PrintJob) {
	level := slog.LevelDebug
	if job.Status == PrintJobFailed {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "print_job",
		slog.String("print_job_id", job.ID),
		slog.String("store_id", job.StoreID),
		slog.String("type", string(job.Type)),
		slog.String("status", string(job.Status)),
		slog.String("failure_reason", job.FailureReason),
	)
}

func (o *LoggingObserver) OnNotification(ctx context.Context, res NotifyResult) {
	level := slog.LevelDebug
	switch {
	case res.Outcome == NotifyFailed:
		level = slog.LevelError
	case res.PaymentInstructionsErr != nil:
		level = slog.LevelWarn
	case res.Outcome == NotifySent:
		level = slog.LevelInfo
	}
	o.Logger.Log(ctx, level, "notification",
		slog.String("order_id", res.OrderID),
		slog.String("store_id", res.StoreID),
		slog.String("outcome", string(res.Outcome)),
		slog.Any("error", res.Err),
		slog.Any("payment_instructions_error", res.PaymentInstructionsErr),
	)
}

func (o *LoggingObserver) OnNotifyBatch(ctx context.Context, res NotifyBatchResult) {
	attrs := []any{
		slog.Int("scanned", res.Scanned),
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed),
		slog.Time("since", res.Since),
	}
	for outcome, n := range res.Skipped {
		attrs = append(attrs, slog.Int("skipped_"+string(outcome), n))
	}
	o.Logger.InfoContext(ctx, "notify_batch", attrs...)
}

func (o *LoggingObserver) OnRecoverySweep(ctx context.Context, res RecoveryResult) {
	level := slog.LevelDebug
	if res.Recovered > 0 {
		level = slog.LevelWarn
	}
	o.Logger.Log(ctx, level, "recovery_sweep",
		slog.Int("recovered", res.Recovered),
		slog.Time("cutoff", res.Cutoff),
		slog.Duration("threshold", res.Threshold),
	)
}

func (o *LoggingObserver) OnPurgeSweep(ctx context.Context, res PurgeResult) {
	o.Logger.InfoContext(ctx, "purge_sweep",
		slog.Int("orders", res.Orders),
		slog.Int("line_items", res.LineItems),
		slog.Time("cutoff", res.Cutoff),
	)
}

func (o *LoggingObserver) OnSweepFailed(ctx context.Context, sweep string, err error) {
	o.Logger.ErrorContext(ctx, "sweep_failed",
		slog.String("sweep", sweep),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters. It implements Observer, and can be
// combined with LoggingObserver via NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	ordersCreated       atomic.Int64
	claimsWon           atomic.Int64
	claimsLost          atomic.Int64
	ordersPrinted       atomic.Int64
	printJobsFailed     atomic.Int64
	notificationsSent   atomic.Int64
	notificationsFailed atomic.Int64
	ordersRecovered     atomic.Int64
	ordersPurged        atomic.Int64
	sweepsFailed        atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	OrdersCreated       int64
	ClaimsWon           int64
	ClaimsLost          int64
	OrdersPrinted       int64
	PrintJobsFailed     int64
	NotificationsSent   int64
	NotificationsFailed int64
	OrdersRecovered     int64
	OrdersPurged        int64
	SweepsFailed        int64
}

func (m *BasicMetrics) OnOrderCreated(ctx context.Context, order *Order) {
	m.ordersCreated.Add(1)
}

func (m *BasicMetrics) OnOrderClaimed(ctx context.Context, orderID string, outcome ClaimOutcome) {
	if outcome == ClaimWon {
		m.claimsWon.Add(1)
		return
	}
	m.claimsLost.Add(1)
}

func (m *BasicMetrics) OnOrderPrinted(ctx context.Context, order *Order) {
	m.ordersPrinted.Add(1)
}

func (m *BasicMetrics) OnPrintJobUpdated(ctx context.Context, job *PrintJob) {
	if job.Status == PrintJobFailed {
		m.printJobsFailed.Add(1)
	}
}

func (m *BasicMetrics) OnNotification(ctx context.Context, res NotifyResult) {
	switch res.Outcome {
	case NotifySent:
		m.notificationsSent.Add(1)
	case NotifyFailed:
		m.notificationsFailed.Add(1)
	}
}

func (m *BasicMetrics) OnRecoverySweep(ctx context.Context, res RecoveryResult) {
	m.ordersRecovered.Add(int64(res.Recovered))
}

func (m *BasicMetrics) OnPurgeSweep(ctx context.Context, res PurgeResult) {
	m.ordersPurged.Add(int64(res.Orders))
}

func (m *BasicMetrics) OnSweepFailed(ctx context.Context, sweep string, err error) {
	m.sweepsFailed.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	return BasicMetricsSnapshot{
		OrdersCreated:       m.ordersCreated.Load(),
		ClaimsWon:           m.claimsWon.Load(),
		ClaimsLost:          m.claimsLost.Load(),
		OrdersPrinted:       m.ordersPrinted.Load(),
		PrintJobsFailed:     m.printJobsFailed.Load(),
		NotificationsSent:   m.notificationsSent.Load(),
		NotificationsFailed: m.notificationsFailed.Load(),
		OrdersRecovered:     m.ordersRecovered.Load(),
		OrdersPurged:        m.ordersPurged.Load(),
		SweepsFailed:        m.sweepsFailed.Load(),
	}
}
