package orderdesk

import (
	"context"
	"database/sql"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petrijr/orderdesk/internal/engine"
	"github.com/petrijr/orderdesk/internal/persistence"
	"github.com/petrijr/orderdesk/pkg/api"
	"github.com/petrijr/orderdesk/pkg/pricing"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Service              = api.Service
	Order                = api.Order
	NewOrder             = api.NewOrder
	NewLineItem          = api.NewLineItem
	LineItem             = api.LineItem
	Product              = api.Product
	OptionGroup          = api.OptionGroup
	OptionItem           = api.OptionItem
	PrintJob             = api.PrintJob
	NewPrintJob          = api.NewPrintJob
	StoreSettings        = api.StoreSettings
	ClaimOutcome         = api.ClaimOutcome
	NotifyOutcome        = api.NotifyOutcome
	NotifyResult         = api.NotifyResult
	NotifyBatchResult    = api.NotifyBatchResult
	RecoveryResult       = api.RecoveryResult
	PurgeResult          = api.PurgeResult
	MessagingGateway     = api.MessagingGateway
	PurgeArchiver        = api.PurgeArchiver
	Clock                = api.Clock
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status and outcome values for convenience.

const (
	OrderNew      = api.OrderNew
	OrderPrinting = api.OrderPrinting
	OrderPrinted  = api.OrderPrinted

	ClaimWon            = api.ClaimWon
	ClaimAlreadyClaimed = api.ClaimAlreadyClaimed

	NotifySent     = api.NotifySent
	NotifyFailed   = api.NotifyFailed
	NotifyInFlight = api.NotifyInFlight
)

// Options tunes a Service. The zero value is valid: no messaging gateway,
// no archiver, the system clock and the default notification settings.
type Options struct {
	Observer Observer
	Clock    Clock
	Gateway  MessagingGateway
	Archiver PurgeArchiver

	NotifyLeaseTTL     time.Duration
	NotifyLookback     time.Duration
	NotifyPageSize     int
	NotifyOnPrint      bool
	DefaultCountryCode string
}

func (o Options) engineConfig(p persistence.Persistence) engine.Config {
	return engine.Config{
		Persistence:        p,
		Observer:           o.Observer,
		Clock:              o.Clock,
		Gateway:            o.Gateway,
		Archiver:           o.Archiver,
		NotifyLeaseTTL:     o.NotifyLeaseTTL,
		NotifyLookback:     o.NotifyLookback,
		NotifyPageSize:     o.NotifyPageSize,
		NotifyOnPrint:      o.NotifyOnPrint,
		DefaultCountryCode: o.DefaultCountryCode,
	}
}

// Service constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryService returns a Service backed entirely by in-memory stores.
func NewInMemoryService(opts Options) Service {
	return engine.NewEngineWithConfig(opts.engineConfig(persistence.FromStore(persistence.NewInMemoryStore())))
}

// NewSQLiteService returns a Service that persists orders, print jobs and
// store settings in a SQLite database. The schema is created if missing.
func NewSQLiteService(db *sql.DB, opts Options) (Service, error) {
	store, err := persistence.NewSQLiteStore(db)
	if err != nil {
		return nil, err
	}
	return engine.NewEngineWithConfig(opts.engineConfig(persistence.FromStore(store))), nil
}

// NewPostgresService returns a Service that persists state in PostgreSQL.
func NewPostgresService(ctx context.Context, pool *pgxpool.Pool, opts Options) (Service, error) {
	store, err := persistence.NewPostgresStore(ctx, pool)
	if err != nil {
		return nil, err
	}
	return engine.NewEngineWithConfig(opts.engineConfig(persistence.FromStore(store))), nil
}

// PriceLine returns the unit price of one line item. It fails with
// api.ErrFlavorSelectionRequired when the product's rule needs a flavor and
// none was selected.
func PriceLine(product Product, groups []OptionGroup) (int64, error) {
	res, err := pricing.Price(product, groups)
	if err != nil {
		return 0, err
	}
	return res.UnitPriceCents, nil
}

// RecoverStuckOrders delegates to svc.RecoverStuckOrders using the wall
// clock.
//
// It is typically called on process startup before starting the agents:
//
//	n, err := orderdesk.RecoverStuckOrders(ctx, svc, 10*time.Minute)
func RecoverStuckOrders(ctx context.Context, svc Service, threshold time.Duration) (int, error) {
	res, err := svc.RecoverStuckOrders(ctx, time.Now().UTC(), threshold)
	return res.Recovered, err
}
