package persistence

import (
	"context"
	"time"

	"github.com/petrijr/orderdesk/pkg/api"
)

// Re-exported so store implementations and callers share one set of sentinels.
var (
	ErrOrderNotFound         = api.ErrOrderNotFound
	ErrPrintJobNotFound      = api.ErrPrintJobNotFound
	ErrStoreSettingsNotFound = api.ErrStoreSettingsNotFound
)

// OrderFilter selects orders from the store.
// Zero values mean "no filter" for that field.
type OrderFilter struct {
	StoreID string
	Status  api.OrderStatus

	// CreatedAfter keeps orders created strictly after the given time.
	CreatedAfter time.Time
	// CreatedAtOrBefore keeps orders created at or before the given time.
	CreatedAtOrBefore time.Time

	// Unnotified keeps orders whose CustomerNotifiedAt is nil.
	Unnotified bool
	// WithPhone keeps orders with a non-empty customer phone.
	WithPhone bool

	// NewestFirst orders by creation time descending; default is ascending.
	NewestFirst bool
	Limit       int
}

// PurgeCounts reports what a purge deleted.
type PurgeCounts struct {
	Orders    int
	LineItems int
}

// add accumulates other into c.
func (c *PurgeCounts) add(other PurgeCounts) {
	c.Orders += other.Orders
	c.LineItems += other.LineItems
}

// BeforePurgeFunc is invoked inside each page's purge transaction with the
// orders about to be deleted. Returning an error rolls that page back.
type BeforePurgeFunc func(ctx context.Context, orders []*api.Order) error

// purgePageSize bounds how many orders one purge transaction deletes. It
// keeps the id lists well under SQLite's bind variable limit.
var purgePageSize = 500

// OrderStore persists orders and their line items.
//
// Every transition is a conditional update: it only applies when the row is
// in the expected prior state and reports applied=false otherwise. Callers
// never read-then-write.
type OrderStore interface {
	// InsertOrder stores an order together with its line items atomically.
	InsertOrder(ctx context.Context, order *api.Order) error
	GetOrder(ctx context.Context, id string) (*api.Order, error)
	GetOrderByReceiptToken(ctx context.Context, token string) (*api.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*api.Order, error)

	// ClaimOrder sets status=PRINTING and printing_claimed_at=now where
	// status=NEW.
	ClaimOrder(ctx context.Context, id string, now time.Time) (applied bool, err error)

	// MarkPrinted sets status=PRINTED and printed_at=now where status=PRINTING.
	MarkPrinted(ctx context.Context, id string, now time.Time) (applied bool, err error)

	// RecoverUnclaimed claims every order with status=NEW,
	// printing_claimed_at IS NULL and created_at <= cutoff.
	RecoverUnclaimed(ctx context.Context, cutoff, now time.Time) (int, error)

	// TryAcquireNotifyLease takes the notification lease of a PRINTED,
	// unnotified order. It succeeds only when the lease is free or expired;
	// otherwise, even for the same owner, it returns acquired=false, err=nil.
	TryAcquireNotifyLease(ctx context.Context, id, owner string, now time.Time, ttl time.Duration) (acquired bool, err error)

	// ReleaseNotifyLease releases a lease held by owner. It is idempotent.
	ReleaseNotifyLease(ctx context.Context, id, owner string) error

	// MarkNotified sets customer_notified_at=now where it is still NULL and
	// status=PRINTED, clearing the notification lease.
	MarkNotified(ctx context.Context, id string, now time.Time) (applied bool, err error)

	// PurgePrinted deletes PRINTED orders created before cutoff and their line
	// items, oldest first, in pages of at most purgePageSize orders. Each page
	// is one transaction, children first. On error the counts of the pages
	// already committed are returned alongside it.
	PurgePrinted(ctx context.Context, cutoff time.Time, before BeforePurgeFunc) (PurgeCounts, error)
}

// PrintJobFilter selects print jobs from the store.
type PrintJobFilter struct {
	StoreID string
	Status  api.PrintJobStatus
	OrderID string
	Limit   int
}

// PrintJobStore persists print jobs.
type PrintJobStore interface {
	InsertPrintJob(ctx context.Context, job *api.PrintJob) error
	GetPrintJob(ctx context.Context, id string) (*api.PrintJob, error)
	// ListPrintJobs returns matching jobs ordered by creation time ascending.
	ListPrintJobs(ctx context.Context, filter PrintJobFilter) ([]*api.PrintJob, error)
	// FinishPrintJob moves a QUEUED job to the terminal status `to`.
	FinishPrintJob(ctx context.Context, id string, to api.PrintJobStatus, reason string, now time.Time) (applied bool, err error)
}

// SettingsStore persists per-store settings.
type SettingsStore interface {
	SaveStoreSettings(ctx context.Context, settings api.StoreSettings) error
	GetStoreSettings(ctx context.Context, storeID string) (*api.StoreSettings, error)
}
