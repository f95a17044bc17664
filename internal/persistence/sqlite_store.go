package persistence

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/petrijr/orderdesk/pkg/api"
)

// SQLiteStore is an OrderStore, PrintJobStore and SettingsStore backed by
// SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements the store interfaces.
var (
	_ OrderStore    = (*SQLiteStore)(nil)
	_ PrintJobStore = (*SQLiteStore)(nil)
	_ SettingsStore = (*SQLiteStore)(nil)
)

// NewSQLiteStore initializes the required schema in the given
// database and returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			code TEXT NOT NULL,
			status TEXT NOT NULL,
			fulfillment_type TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			cash_tendered_cents INTEGER NOT NULL DEFAULT 0,
			customer_name TEXT NOT NULL DEFAULT '',
			customer_phone TEXT NOT NULL DEFAULT '',
			delivery_address TEXT NOT NULL DEFAULT '',
			table_ref TEXT NOT NULL DEFAULT '',
			subtotal_cents INTEGER NOT NULL,
			delivery_fee_cents INTEGER NOT NULL DEFAULT 0,
			total_cents INTEGER NOT NULL,
			receipt_token TEXT NOT NULL UNIQUE,
			created_at INTEGER NOT NULL,
			printing_claimed_at INTEGER,
			printed_at INTEGER,
			customer_notified_at INTEGER,
			notify_lease_owner TEXT NOT NULL DEFAULT '',
			notify_lease_expires_at INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS orders_status_created ON orders (status, created_at);

		CREATE TABLE IF NOT EXISTS order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders (id),
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price_cents INTEGER NOT NULL,
			options BLOB,
			notes TEXT NOT NULL DEFAULT '',
			position INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS order_items_order ON order_items (order_id, position);

		CREATE TABLE IF NOT EXISTS print_jobs (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			type TEXT NOT NULL,
			status TEXT NOT NULL,
			order_id TEXT NOT NULL DEFAULT '',
			table_ref TEXT NOT NULL DEFAULT '',
			session_ref TEXT NOT NULL DEFAULT '',
			payload TEXT NOT NULL DEFAULT '',
			failure_reason TEXT NOT NULL DEFAULT '',
			retry_of TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS print_jobs_store_status ON print_jobs (store_id, status, created_at);

		CREATE TABLE IF NOT EXISTS store_settings (
			store_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			messaging_enabled INTEGER NOT NULL DEFAULT 0,
			messaging_ref TEXT NOT NULL DEFAULT '',
			confirmation_template TEXT NOT NULL DEFAULT '',
			receipt_base_url TEXT NOT NULL DEFAULT '',
			pix_key TEXT NOT NULL DEFAULT '',
			pix_holder_name TEXT NOT NULL DEFAULT ''
		);`,
	)
	return err
}

func (s *SQLiteStore) InsertOrder(ctx context.Context, order *api.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO orders (`+orderColumns+`) VALUES (`+placeholders(questionMark, 1, 21)+`)`,
		orderArgs(order)...,
	); err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i, li := range order.Items {
		args, err := itemArgs(li)
		if err != nil {
			return err
		}
		args = append(args, i)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (`+itemColumns+`, position) VALUES (`+placeholders(questionMark, 1, 9)+`)`,
			args...,
		); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*api.Order, error) {
	return s.getOrderWhere(ctx, s.db, "id = ?", id)
}

func (s *SQLiteStore) GetOrderByReceiptToken(ctx context.Context, token string) (*api.Order, error) {
	return s.getOrderWhere(ctx, s.db, "receipt_token = ?", token)
}

// querier is the subset of *sql.DB / *sql.Tx used for reads.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *SQLiteStore) getOrderWhere(ctx context.Context, q querier, where string, arg any) (*api.Order, error) {
	row := q.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg)
	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := s.loadItems(ctx, q, []*api.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *SQLiteStore) loadItems(ctx context.Context, q querier, orders []*api.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := orderIDs(orders)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id IN (`+placeholders(questionMark, 1, len(ids))+`) ORDER BY order_id, position`,
		args...,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var items []api.LineItem
	for rows.Next() {
		li, err := scanItem(rows)
		if err != nil {
			return err
		}
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	attachItems(orders, items)
	return nil
}

func (s *SQLiteStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*api.Order, error) {
	return s.listOrders(ctx, s.db, filter)
}

func (s *SQLiteStore) listOrders(ctx context.Context, q querier, filter OrderFilter) ([]*api.Order, error) {
	query, args := buildOrderQuery(filter, questionMark)
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*api.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Close before issuing the item query; a single-connection pool would
	// otherwise deadlock.
	rows.Close()

	if err := s.loadItems(ctx, q, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// execAffected runs a conditional update and reports whether any row changed.
func execAffected(ctx context.Context, db *sql.DB, query string, args ...any) (bool, error) {
	n, err := execCount(ctx, db, query, args...)
	return n > 0, err
}

func execCount(ctx context.Context, db *sql.DB, query string, args ...any) (int, error) {
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *SQLiteStore) ClaimOrder(ctx context.Context, id string, now time.Time) (bool, error) {
	return execAffected(ctx, s.db, `
		UPDATE orders
		SET status = ?, printing_claimed_at = ?
		WHERE id = ? AND status = ?`,
		string(api.OrderPrinting), now.UnixNano(), id, string(api.OrderNew),
	)
}

func (s *SQLiteStore) MarkPrinted(ctx context.Context, id string, now time.Time) (bool, error) {
	return execAffected(ctx, s.db, `
		UPDATE orders
		SET status = ?, printed_at = ?
		WHERE id = ? AND status = ?`,
		string(api.OrderPrinted), now.UnixNano(), id, string(api.OrderPrinting),
	)
}

func (s *SQLiteStore) RecoverUnclaimed(ctx context.Context, cutoff, now time.Time) (int, error) {
	return execCount(ctx, s.db, `
		UPDATE orders
		SET status = ?, printing_claimed_at = ?
		WHERE status = ? AND printing_claimed_at IS NULL AND created_at <= ?`,
		string(api.OrderPrinting), now.UnixNano(), string(api.OrderNew), cutoff.UnixNano(),
	)
}

func (s *SQLiteStore) TryAcquireNotifyLease(ctx context.Context, id, owner string, now time.Time, ttl time.Duration) (bool, error) {
	return execAffected(ctx, s.db, `
		UPDATE orders
		SET notify_lease_owner = ?, notify_lease_expires_at = ?
		WHERE id = ?
		AND status = ?
		AND customer_notified_at IS NULL
		AND (
			notify_lease_owner = ''
			OR notify_lease_expires_at <= ?
		)`,
		owner, now.Add(ttl).UnixNano(), id, string(api.OrderPrinted), now.UnixNano(),
	)
}

func (s *SQLiteStore) ReleaseNotifyLease(ctx context.Context, id, owner string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE orders
		SET notify_lease_owner = '', notify_lease_expires_at = 0
		WHERE id = ? AND notify_lease_owner = ?`,
		id, owner,
	)
	return err
}

func (s *SQLiteStore) MarkNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	return execAffected(ctx, s.db, `
		UPDATE orders
		SET customer_notified_at = ?, notify_lease_owner = '', notify_lease_expires_at = 0
		WHERE id = ? AND status = ? AND customer_notified_at IS NULL`,
		now.UnixNano(), id, string(api.OrderPrinted),
	)
}

func (s *SQLiteStore) PurgePrinted(ctx context.Context, cutoff time.Time, before BeforePurgeFunc) (PurgeCounts, error) {
	var total PurgeCounts
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		page, n, err := s.purgePage(ctx, cutoff, purgePageSize, before)
		if err != nil {
			return total, err
		}
		total.add(page)
		if n < purgePageSize {
			return total, nil
		}
	}
}

// purgePage deletes up to limit of the oldest purgeable orders in one
// transaction and reports how many it selected.
func (s *SQLiteStore) purgePage(ctx context.Context, cutoff time.Time, limit int, before BeforePurgeFunc) (PurgeCounts, int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PurgeCounts{}, 0, err
	}
	defer func() { _ = tx.Rollback() }()

	victims, err := s.listPurgeable(ctx, tx, cutoff, limit)
	if err != nil {
		return PurgeCounts{}, 0, err
	}
	if len(victims) == 0 {
		return PurgeCounts{}, 0, nil
	}

	if before != nil {
		if err := before(ctx, victims); err != nil {
			return PurgeCounts{}, 0, err
		}
	}

	ids := orderIDs(victims)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	in := placeholders(questionMark, 1, len(ids))

	res, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id IN (`+in+`)`, args...)
	if err != nil {
		return PurgeCounts{}, 0, fmt.Errorf("delete order items: %w", err)
	}
	items, err := res.RowsAffected()
	if err != nil {
		return PurgeCounts{}, 0, err
	}

	res, err = tx.ExecContext(ctx, `DELETE FROM orders WHERE id IN (`+in+`)`, args...)
	if err != nil {
		return PurgeCounts{}, 0, fmt.Errorf("delete orders: %w", err)
	}
	orders, err := res.RowsAffected()
	if err != nil {
		return PurgeCounts{}, 0, err
	}

	if err := tx.Commit(); err != nil {
		return PurgeCounts{}, 0, err
	}
	return PurgeCounts{Orders: int(orders), LineItems: int(items)}, len(victims), nil
}

func (s *SQLiteStore) listPurgeable(ctx context.Context, tx *sql.Tx, cutoff time.Time, limit int) ([]*api.Order, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE status = ? AND created_at < ? ORDER BY created_at, id LIMIT ?`,
		string(api.OrderPrinted), cutoff.UnixNano(), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*api.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := s.loadItems(ctx, tx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *SQLiteStore) InsertPrintJob(ctx context.Context, job *api.PrintJob) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO print_jobs (`+printJobColumns+`) VALUES (`+placeholders(questionMark, 1, 12)+`)`,
		printJobArgs(job)...,
	)
	return err
}

func (s *SQLiteStore) GetPrintJob(ctx context.Context, id string) (*api.PrintJob, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+printJobColumns+` FROM print_jobs WHERE id = ?`, id)
	j, err := scanPrintJob(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrintJobNotFound
		}
		return nil, err
	}
	return j, nil
}

func (s *SQLiteStore) ListPrintJobs(ctx context.Context, filter PrintJobFilter) ([]*api.PrintJob, error) {
	query, args := buildPrintJobQuery(filter, questionMark)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*api.PrintJob
	for rows.Next() {
		j, err := scanPrintJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

func (s *SQLiteStore) FinishPrintJob(ctx context.Context, id string, to api.PrintJobStatus, reason string, now time.Time) (bool, error) {
	return execAffected(ctx, s.db, `
		UPDATE print_jobs
		SET status = ?, failure_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(to), reason, now.UnixNano(), id, string(api.PrintJobQueued),
	)
}

func (s *SQLiteStore) SaveStoreSettings(ctx context.Context, settings api.StoreSettings) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO store_settings (`+settingsColumns+`) VALUES (`+placeholders(questionMark, 1, 8)+`)`,
		settingsArgs(settings)...,
	)
	return err
}

func (s *SQLiteStore) GetStoreSettings(ctx context.Context, storeID string) (*api.StoreSettings, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+settingsColumns+` FROM store_settings WHERE store_id = ?`, storeID)
	st, err := scanSettings(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrStoreSettingsNotFound
		}
		return nil, err
	}
	return st, nil
}
