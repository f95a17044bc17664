package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "modernc.org/sqlite"

	"github.com/petrijr/orderdesk"
	"github.com/petrijr/orderdesk/internal/archive"
	"github.com/petrijr/orderdesk/internal/config"
	"github.com/petrijr/orderdesk/internal/messaging"
	"github.com/petrijr/orderdesk/pkg/api"
	"github.com/petrijr/orderdesk/pkg/worker"
)

// app is everything a command needs, built from one Config.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	svc     api.Service
	worker  *worker.Worker
	metrics *api.BasicMetrics
	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger, metrics: &api.BasicMetrics{}}

	gateway, err := a.newGateway()
	if err != nil {
		return nil, err
	}

	opts := orderdesk.Options{
		Observer:           api.NewCompositeObserver(api.NewLoggingObserver(logger), a.metrics),
		Gateway:            gateway,
		NotifyLeaseTTL:     cfg.Sweeps.NotifyLeaseTTL,
		NotifyLookback:     cfg.Sweeps.NotifyLookback,
		NotifyPageSize:     cfg.Sweeps.NotifyPageSize,
		NotifyOnPrint:      cfg.NotifyOnPrint,
		DefaultCountryCode: cfg.Messaging.DefaultCountryCode,
	}
	if cfg.Archive.Enabled {
		arch, err := archive.NewS3Archiver(ctx, cfg.Archive.Region, cfg.Archive.Bucket, cfg.Archive.Prefix)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		opts.Archiver = arch
	}

	a.svc, err = a.newService(ctx, opts)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	a.worker = worker.New(a.svc, worker.Config{
		RecoveryInterval: cfg.Sweeps.RecoveryInterval,
		NotifyInterval:   cfg.Sweeps.NotifyInterval,
		PurgeInterval:    cfg.Sweeps.PurgeInterval,
		StuckThreshold:   cfg.Sweeps.StuckThreshold,
		Retention:        cfg.Sweeps.Retention(),
		Logger:           logger,
	})
	return a, nil
}

func (a *app) newGateway() (api.MessagingGateway, error) {
	m := a.cfg.Messaging
	switch m.Driver {
	case "http":
		return messaging.NewHTTPGateway(m.HTTPBaseURL, m.HTTPToken, m.HTTPTimeout), nil
	case "kafka":
		gw, err := messaging.DialKafkaGateway(m.KafkaBrokers, m.KafkaTopic)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gw)
		return gw, nil
	case "log", "":
		return messaging.NewLogGateway(a.logger), nil
	default:
		return nil, fmt.Errorf("unknown messaging driver %q", m.Driver)
	}
}

func (a *app) newService(ctx context.Context, opts orderdesk.Options) (api.Service, error) {
	d := a.cfg.Database
	switch d.Driver {
	case "memory":
		return orderdesk.NewInMemoryService(opts), nil
	case "sqlite":
		db, err := sql.Open("sqlite", d.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		a.closers = append(a.closers, db)
		return orderdesk.NewSQLiteService(db, opts)
	case "postgres":
		pool, err := pgxpool.New(ctx, d.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, closerFunc(func() error { pool.Close(); return nil }))
		return orderdesk.NewPostgresService(ctx, pool, opts)
	default:
		return nil, fmt.Errorf("unknown database driver %q", d.Driver)
	}
}

// Close releases connections in reverse order of creation.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}
