package persistence

import (
	"fmt"
	"strings"

	"github.com/petrijr/orderdesk/pkg/api"
)

// Column lists shared by the SQL backends. Timestamps are stored as Unix
// nanoseconds; nullable timestamps are NULL until set.

const orderColumns = `id, store_id, code, status, fulfillment_type, payment_method,
	cash_tendered_cents, customer_name, customer_phone, delivery_address, table_ref,
	subtotal_cents, delivery_fee_cents, total_cents, receipt_token, created_at,
	printing_claimed_at, printed_at, customer_notified_at,
	notify_lease_owner, notify_lease_expires_at`

const itemColumns = `id, order_id, product_id, product_name, quantity, unit_price_cents, options, notes`

const printJobColumns = `id, store_id, type, status, order_id, table_ref, session_ref,
	payload, failure_reason, retry_of, created_at, updated_at`

const settingsColumns = `store_id, name, messaging_enabled, messaging_ref,
	confirmation_template, receipt_base_url, pix_key, pix_holder_name`

// rowScanner is satisfied by *sql.Row, *sql.Rows, pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*api.Order, error) {
	var (
		o                           api.Order
		status, fulfillment, method string
		createdAt, leaseExpires     int64
		claimedAt, printedAt        *int64
		notifiedAt                  *int64
	)
	err := row.Scan(
		&o.ID, &o.StoreID, &o.Code, &status, &fulfillment, &method,
		&o.CashTenderedCents, &o.CustomerName, &o.CustomerPhone, &o.DeliveryAddress, &o.TableRef,
		&o.SubtotalCents, &o.DeliveryFeeCents, &o.TotalCents, &o.ReceiptToken, &createdAt,
		&claimedAt, &printedAt, &notifiedAt,
		&o.NotifyLeaseOwner, &leaseExpires,
	)
	if err != nil {
		return nil, err
	}
	o.Status = api.OrderStatus(status)
	o.FulfillmentType = api.FulfillmentType(fulfillment)
	o.PaymentMethod = api.PaymentMethod(method)
	o.CreatedAt = timeFromNanos(createdAt)
	o.PrintingClaimedAt = timePtrFromNanos(claimedAt)
	o.PrintedAt = timePtrFromNanos(printedAt)
	o.CustomerNotifiedAt = timePtrFromNanos(notifiedAt)
	if leaseExpires > 0 {
		o.NotifyLeaseExpiresAt = timeFromNanos(leaseExpires)
	}
	return &o, nil
}

func orderArgs(o *api.Order) []any {
	var leaseExpires int64
	if !o.NotifyLeaseExpiresAt.IsZero() {
		leaseExpires = o.NotifyLeaseExpiresAt.UnixNano()
	}
	return []any{
		o.ID, o.StoreID, o.Code, string(o.Status), string(o.FulfillmentType), string(o.PaymentMethod),
		o.CashTenderedCents, o.CustomerName, o.CustomerPhone, o.DeliveryAddress, o.TableRef,
		o.SubtotalCents, o.DeliveryFeeCents, o.TotalCents, o.ReceiptToken, o.CreatedAt.UnixNano(),
		nanosOrNull(o.PrintingClaimedAt), nanosOrNull(o.PrintedAt), nanosOrNull(o.CustomerNotifiedAt),
		o.NotifyLeaseOwner, leaseExpires,
	}
}

func scanItem(row rowScanner) (api.LineItem, error) {
	var (
		li      api.LineItem
		options []byte
	)
	if err := row.Scan(&li.ID, &li.OrderID, &li.ProductID, &li.ProductName, &li.Quantity, &li.UnitPriceCents, &options, &li.Notes); err != nil {
		return li, err
	}
	opts, err := DecodeOptions(options)
	if err != nil {
		return li, err
	}
	li.Options = opts
	return li, nil
}

func itemArgs(li api.LineItem) ([]any, error) {
	options, err := EncodeOptions(li.Options)
	if err != nil {
		return nil, err
	}
	return []any{li.ID, li.OrderID, li.ProductID, li.ProductName, li.Quantity, li.UnitPriceCents, options, li.Notes}, nil
}

func scanPrintJob(row rowScanner) (*api.PrintJob, error) {
	var (
		j                    api.PrintJob
		typ, status          string
		createdAt, updatedAt int64
	)
	err := row.Scan(&j.ID, &j.StoreID, &typ, &status, &j.OrderID, &j.TableRef, &j.SessionRef,
		&j.Payload, &j.FailureReason, &j.RetryOf, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	j.Type = api.PrintJobType(typ)
	j.Status = api.PrintJobStatus(status)
	j.CreatedAt = timeFromNanos(createdAt)
	j.UpdatedAt = timeFromNanos(updatedAt)
	return &j, nil
}

func printJobArgs(j *api.PrintJob) []any {
	return []any{j.ID, j.StoreID, string(j.Type), string(j.Status), j.OrderID, j.TableRef, j.SessionRef,
		j.Payload, j.FailureReason, j.RetryOf, j.CreatedAt.UnixNano(), j.UpdatedAt.UnixNano()}
}

func scanSettings(row rowScanner) (*api.StoreSettings, error) {
	var s api.StoreSettings
	err := row.Scan(&s.StoreID, &s.Name, &s.MessagingEnabled, &s.MessagingRef,
		&s.ConfirmationTemplate, &s.ReceiptBaseURL, &s.PixKey, &s.PixHolderName)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func settingsArgs(s api.StoreSettings) []any {
	return []any{s.StoreID, s.Name, s.MessagingEnabled, s.MessagingRef,
		s.ConfirmationTemplate, s.ReceiptBaseURL, s.PixKey, s.PixHolderName}
}

// placeholderFunc renders the n-th (1-based) bind parameter.
type placeholderFunc func(n int) string

func questionMark(int) string { return "?" }

func dollarN(n int) string { return fmt.Sprintf("$%d", n) }

func placeholders(ph placeholderFunc, from, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = ph(from + i)
	}
	return strings.Join(parts, ", ")
}

// buildOrderQuery renders the SELECT for an OrderFilter.
func buildOrderQuery(filter OrderFilter, ph placeholderFunc) (string, []any) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var (
		args    []any
		clauses []string
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, ph(len(args))))
	}

	if filter.StoreID != "" {
		add("store_id = %s", filter.StoreID)
	}
	if filter.Status != "" {
		add("status = %s", string(filter.Status))
	}
	if !filter.CreatedAfter.IsZero() {
		add("created_at > %s", filter.CreatedAfter.UnixNano())
	}
	if !filter.CreatedAtOrBefore.IsZero() {
		add("created_at <= %s", filter.CreatedAtOrBefore.UnixNano())
	}
	if filter.Unnotified {
		clauses = append(clauses, "customer_notified_at IS NULL")
	}
	if filter.WithPhone {
		clauses = append(clauses, "customer_phone <> ''")
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	if filter.NewestFirst {
		query += " ORDER BY created_at DESC, id"
	} else {
		query += " ORDER BY created_at, id"
	}
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT " + ph(len(args))
	}
	return query, args
}

func buildPrintJobQuery(filter PrintJobFilter, ph placeholderFunc) (string, []any) {
	query := `SELECT ` + printJobColumns + ` FROM print_jobs`
	var (
		args    []any
		clauses []string
	)
	add := func(clause string, arg any) {
		args = append(args, arg)
		clauses = append(clauses, fmt.Sprintf(clause, ph(len(args))))
	}

	if filter.StoreID != "" {
		add("store_id = %s", filter.StoreID)
	}
	if filter.Status != "" {
		add("status = %s", string(filter.Status))
	}
	if filter.OrderID != "" {
		add("order_id = %s", filter.OrderID)
	}

	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, id"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += " LIMIT " + ph(len(args))
	}
	return query, args
}

// attachItems distributes items onto their orders, preserving item order.
func attachItems(orders []*api.Order, items []api.LineItem) {
	byID := make(map[string]*api.Order, len(orders))
	for _, o := range orders {
		byID[o.ID] = o
	}
	for _, li := range items {
		if o, ok := byID[li.OrderID]; ok {
			o.Items = append(o.Items, li)
		}
	}
}

func orderIDs(orders []*api.Order) []string {
	ids := make([]string, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	return ids
}
