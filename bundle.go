package orderdesk

import (
	"database/sql"

	workerpkg "github.com/petrijr/orderdesk/pkg/worker"
)

// WorkerBundle wires together a durable Service and the Worker that sweeps
// it.
//
// For now, we only provide a SQLite-backed bundle.
type WorkerBundle struct {
	Service Service
	Worker  *workerpkg.Worker
}

// NewSQLiteBundle constructs a durable Service + Worker combo sharing the
// same SQLite database.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:orderdesk.db?_pragma=busy_timeout(5000)")
//	bundle, err := orderdesk.NewSQLiteBundle(db, orderdesk.Options{}, worker.Config{
//		RecoveryInterval: time.Minute,
//	})
//	_ = bundle.Worker.Start(ctx)
func NewSQLiteBundle(db *sql.DB, opts Options, cfg workerpkg.Config) (*WorkerBundle, error) {
	svc, err := NewSQLiteService(db, opts)
	if err != nil {
		return nil, err
	}
	if cfg.Clock == nil {
		cfg.Clock = opts.Clock
	}
	return &WorkerBundle{
		Service: svc,
		Worker:  workerpkg.New(svc, cfg),
	}, nil
}
