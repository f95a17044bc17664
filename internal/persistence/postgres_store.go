package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/petrijr/orderdesk/pkg/api"
)

// PostgresStore is an OrderStore, PrintJobStore and SettingsStore backed by
// PostgreSQL through a pgx connection pool.
//
// The caller owns the pool:
//
//	pool, err := pgxpool.New(ctx, dsn)
//	store, err := persistence.NewPostgresStore(ctx, pool)
type PostgresStore struct {
	pool *pgxpool.Pool
}

var (
	_ OrderStore    = (*PostgresStore)(nil)
	_ PrintJobStore = (*PostgresStore)(nil)
	_ SettingsStore = (*PostgresStore)(nil)
)

// NewPostgresStore initializes the required schema in the given
// database and returns a new PostgresStore.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	s := &PostgresStore{pool: pool}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			store_id TEXT NOT NULL,
			code TEXT NOT NULL,
			status TEXT NOT NULL,
			fulfillment_type TEXT NOT NULL,
			payment_method TEXT NOT NULL,
			cash_tendered_cents BIGINT NOT NULL DEFAULT 0,
			customer_name TEXT NOT NULL DEFAULT '',
			customer_phone TEXT NOT NULL DEFAULT '',
			delivery_address TEXT NOT NULL DEFAULT '',
			table_ref TEXT NOT NULL DEFAULT '',
			subtotal_cents BIGINT NOT NULL,
			delivery_fee_cents BIGINT NOT NULL DEFAULT 0,
			total_cents BIGINT NOT NULL,
			receipt_token TEXT NOT NULL UNIQUE,
			created_at BIGINT NOT NULL,
			printing_claimed_at BIGINT,
			printed_at BIGINT,
			customer_notified_at BIGINT,
			notify_lease_owner TEXT NOT NULL DEFAULT '',
			notify_lease_expires_at BIGINT NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS orders_status_created ON orders (status, created_at);

		CREATE TABLE IF NOT EXISTS order_items (
			id TEXT PRIMARY KEY,
			order_id TEXT NOT NULL REFERENCES orders (id),
			product_id TEXT NOT NULL,
			product_name TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			unit_price_cents BIGINT NOT NULL,
			options BYTEA,
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
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS print_jobs_store_status ON print_jobs (store_id, status, created_at);

		CREATE TABLE IF NOT EXISTS store_settings (
			store_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			messaging_enabled BOOLEAN NOT NULL DEFAULT FALSE,
			messaging_ref TEXT NOT NULL DEFAULT '',
			confirmation_template TEXT NOT NULL DEFAULT '',
			receipt_base_url TEXT NOT NULL DEFAULT '',
			pix_key TEXT NOT NULL DEFAULT '',
			pix_holder_name TEXT NOT NULL DEFAULT ''
		);
	`)
	return err
}

// pgQuerier is the subset of *pgxpool.Pool / pgx.Tx used for reads.
type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func (s *PostgresStore) InsertOrder(ctx context.Context, order *api.Order) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO orders (`+orderColumns+`) VALUES (`+placeholders(dollarN, 1, 21)+`)`,
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
			if _, err := tx.Exec(ctx,
				`INSERT INTO order_items (`+itemColumns+`, position) VALUES (`+placeholders(dollarN, 1, 9)+`)`,
				args...,
			); err != nil {
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*api.Order, error) {
	return s.getOrderWhere(ctx, "id = $1", id)
}

func (s *PostgresStore) GetOrderByReceiptToken(ctx context.Context, token string) (*api.Order, error) {
	return s.getOrderWhere(ctx, "receipt_token = $1", token)
}

func (s *PostgresStore) getOrderWhere(ctx context.Context, where string, arg any) (*api.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	if err := loadItemsPG(ctx, s.pool, []*api.Order{o}); err != nil {
		return nil, err
	}
	return o, nil
}

func loadItemsPG(ctx context.Context, q pgQuerier, orders []*api.Order) error {
	if len(orders) == 0 {
		return nil
	}
	rows, err := q.Query(ctx,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, position`,
		orderIDs(orders),
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

func collectOrdersPG(ctx context.Context, q pgQuerier, query string, args ...any) ([]*api.Order, error) {
	rows, err := q.Query(ctx, query, args...)
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

	if err := loadItemsPG(ctx, q, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*api.Order, error) {
	query, args := buildOrderQuery(filter, dollarN)
	return collectOrdersPG(ctx, s.pool, query, args...)
}

func (s *PostgresStore) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) ClaimOrder(ctx context.Context, id string, now time.Time) (bool, error) {
	return s.execAffected(ctx, `
		UPDATE orders
		SET status = $1, printing_claimed_at = $2
		WHERE id = $3 AND status = $4`,
		string(api.OrderPrinting), now.UnixNano(), id, string(api.OrderNew),
	)
}

func (s *PostgresStore) MarkPrinted(ctx context.Context, id string, now time.Time) (bool, error) {
	return s.execAffected(ctx, `
		UPDATE orders
		SET status = $1, printed_at = $2
		WHERE id = $3 AND status = $4`,
		string(api.OrderPrinted), now.UnixNano(), id, string(api.OrderPrinting),
	)
}

func (s *PostgresStore) RecoverUnclaimed(ctx context.Context, cutoff, now time.Time) (int, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET status = $1, printing_claimed_at = $2
		WHERE status = $3 AND printing_claimed_at IS NULL AND created_at <= $4`,
		string(api.OrderPrinting), now.UnixNano(), string(api.OrderNew), cutoff.UnixNano(),
	)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) TryAcquireNotifyLease(ctx context.Context, id, owner string, now time.Time, ttl time.Duration) (bool, error) {
	return s.execAffected(ctx, `
		UPDATE orders
		SET notify_lease_owner = $1, notify_lease_expires_at = $2
		WHERE id = $3
		AND status = $4
		AND customer_notified_at IS NULL
		AND (
			notify_lease_owner = ''
			OR notify_lease_expires_at <= $5
		)`,
		owner, now.Add(ttl).UnixNano(), id, string(api.OrderPrinted), now.UnixNano(),
	)
}

func (s *PostgresStore) ReleaseNotifyLease(ctx context.Context, id, owner string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE orders
		SET notify_lease_owner = '', notify_lease_expires_at = 0
		WHERE id = $1 AND notify_lease_owner = $2`,
		id, owner,
	)
	return err
}

func (s *PostgresStore) MarkNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	return s.execAffected(ctx, `
		UPDATE orders
		SET customer_notified_at = $1, notify_lease_owner = '', notify_lease_expires_at = 0
		WHERE id = $2 AND status = $3 AND customer_notified_at IS NULL`,
		now.UnixNano(), id, string(api.OrderPrinted),
	)
}

func (s *PostgresStore) PurgePrinted(ctx context.Context, cutoff time.Time, before BeforePurgeFunc) (PurgeCounts, error) {
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

func (s *PostgresStore) purgePage(ctx context.Context, cutoff time.Time, limit int, before BeforePurgeFunc) (PurgeCounts, int, error) {
	var (
		counts   PurgeCounts
		selected int
	)
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		victims, err := collectOrdersPG(ctx, tx,
			`SELECT `+orderColumns+` FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at, id LIMIT $3 FOR UPDATE`,
			string(api.OrderPrinted), cutoff.UnixNano(), limit,
		)
		if err != nil {
			return err
		}
		if len(victims) == 0 {
			return nil
		}
		if before != nil {
			if err := before(ctx, victims); err != nil {
				return err
			}
		}

		ids := orderIDs(victims)
		var tag pgconn.CommandTag
		if tag, err = tx.Exec(ctx, `DELETE FROM order_items WHERE order_id = ANY($1)`, ids); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		counts.LineItems = int(tag.RowsAffected())
		if tag, err = tx.Exec(ctx, `DELETE FROM orders WHERE id = ANY($1)`, ids); err != nil {
			return fmt.Errorf("delete orders: %w", err)
		}
		counts.Orders = int(tag.RowsAffected())
		selected = len(victims)
		return nil
	})
	if err != nil {
		return PurgeCounts{}, 0, err
	}
	return counts, selected, nil
}

func (s *PostgresStore) InsertPrintJob(ctx context.Context, job *api.PrintJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO print_jobs (`+printJobColumns+`) VALUES (`+placeholders(dollarN, 1, 12)+`)`,
		printJobArgs(job)...,
	)
	return err
}

func (s *PostgresStore) GetPrintJob(ctx context.Context, id string) (*api.PrintJob, error) {
	j, err := scanPrintJob(s.pool.QueryRow(ctx, `SELECT `+printJobColumns+` FROM print_jobs WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPrintJobNotFound
		}
		return nil, err
	}
	return j, nil
}

func (s *PostgresStore) ListPrintJobs(ctx context.Context, filter PrintJobFilter) ([]*api.PrintJob, error) {
	query, args := buildPrintJobQuery(filter, dollarN)
	rows, err := s.pool.Query(ctx, query, args...)
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

func (s *PostgresStore) FinishPrintJob(ctx context.Context, id string, to api.PrintJobStatus, reason string, now time.Time) (bool, error) {
	return s.execAffected(ctx, `
		UPDATE print_jobs
		SET status = $1, failure_reason = $2, updated_at = $3
		WHERE id = $4 AND status = $5`,
		string(to), reason, now.UnixNano(), id, string(api.PrintJobQueued),
	)
}

func (s *PostgresStore) SaveStoreSettings(ctx context.Context, settings api.StoreSettings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO store_settings (`+settingsColumns+`)
		VALUES (`+placeholders(dollarN, 1, 8)+`)
		ON CONFLICT (store_id) DO UPDATE SET
			name = EXCLUDED.name,
			messaging_enabled = EXCLUDED.messaging_enabled,
			messaging_ref = EXCLUDED.messaging_ref,
			confirmation_template = EXCLUDED.confirmation_template,
			receipt_base_url = EXCLUDED.receipt_base_url,
			pix_key = EXCLUDED.pix_key,
			pix_holder_name = EXCLUDED.pix_holder_name`,
		settingsArgs(settings)...,
	)
	return err
}

func (s *PostgresStore) GetStoreSettings(ctx context.Context, storeID string) (*api.StoreSettings, error) {
	st, err := scanSettings(s.pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM store_settings WHERE store_id = $1`, storeID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStoreSettingsNotFound
		}
		return nil, err
	}
	return st, nil
}
