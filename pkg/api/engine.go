package api

import (
	"context"
	"time"
)

// Service is the order-management core: order lifecycle, print job queue and
// the periodic sweeps. Every sweep takes the current time explicitly.
type Service interface {
	// CreateOrder prices and persists a NEW order.
	CreateOrder(ctx context.Context, req NewOrder) (*Order, error)

	// GetOrder looks up an order by ID.
	GetOrder(ctx context.Context, id string) (*Order, error)

	// GetOrderByReceiptToken looks up an order by its receipt token.
	GetOrderByReceiptToken(ctx context.Context, token string) (*Order, error)

	// ClaimOrder moves a NEW order to PRINTING. Exactly one concurrent caller
	// gets ClaimWon; the others get ClaimAlreadyClaimed and a nil error.
	ClaimOrder(ctx context.Context, id string) (ClaimOutcome, error)

	// ClaimNextOrders claims up to limit NEW orders of a store, oldest first,
	// and returns the ones this caller won.
	ClaimNextOrders(ctx context.Context, storeID string, limit int) ([]*Order, error)

	// MarkPrinted moves a PRINTING order to PRINTED. Already PRINTED orders
	// are returned unchanged; NEW orders yield an *InvalidTransitionError.
	MarkPrinted(ctx context.Context, id string) (*Order, error)

	// EnqueuePrintJob queues a new print job.
	EnqueuePrintJob(ctx context.Context, req NewPrintJob) (*PrintJob, error)

	// PendingPrintJobs lists QUEUED jobs of a store, oldest first.
	PendingPrintJobs(ctx context.Context, storeID string, limit int) ([]*PrintJob, error)

	// MarkPrintJobPrinted moves a QUEUED job to PRINTED.
	MarkPrintJobPrinted(ctx context.Context, id string) (*PrintJob, error)

	// MarkPrintJobFailed moves a QUEUED job to FAILED.
	MarkPrintJobFailed(ctx context.Context, id string, reason string) (*PrintJob, error)

	// RetryPrintJob queues a fresh copy of a FAILED job.
	RetryPrintJob(ctx context.Context, id string) (*PrintJob, error)

	// SaveStoreSettings inserts or replaces a store's settings.
	SaveStoreSettings(ctx context.Context, settings StoreSettings) error

	// GetStoreSettings returns a store's settings.
	GetStoreSettings(ctx context.Context, storeID string) (*StoreSettings, error)

	// RecoverStuckOrders claims every NEW, unclaimed order created at or
	// before now-threshold.
	RecoverStuckOrders(ctx context.Context, now time.Time, threshold time.Duration) (RecoveryResult, error)

	// NotifyCustomer attempts the post-print customer notification for one
	// order. The returned error is reserved for store failures; delivery
	// problems are reported in the result.
	NotifyCustomer(ctx context.Context, orderID string, now time.Time) (NotifyResult, error)

	// NotifyPending runs NotifyCustomer for the backlog of printed but
	// unnotified orders, newest first.
	NotifyPending(ctx context.Context, now time.Time) (NotifyBatchResult, error)

	// PurgeFulfilled deletes PRINTED orders created before now-retention,
	// together with their line items. Orders are purged oldest first in
	// bounded pages, each page in its own transaction; on error the result
	// still counts the pages already deleted.
	PurgeFulfilled(ctx context.Context, now time.Time, retention time.Duration) (PurgeResult, error)
}

// MessagingGateway delivers a text message to a customer. A non-nil error
// means the message was not delivered.
type MessagingGateway interface {
	SendText(ctx context.Context, storeRef, phone, text string) error
}

// PurgeArchiver receives orders right before they are deleted by a purge,
// one call per purge page. Returning an error rolls that page back and stops
// the purge.
type PurgeArchiver interface {
	Archive(ctx context.Context, orders []*Order) error
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock in UTC.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns T. Useful in tests.
type FixedClock struct {
	T time.Time
}

func (c FixedClock) Now() time.Time { return c.T }
