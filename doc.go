// Package orderdesk provides the order-management core of a small-restaurant
// ordering platform: pricing, order fulfillment, print jobs, customer
// notifications and data retention.
//
// It is designed to be embedded in the service that receives public orders
// and talks to the in-store print agents. Every exclusive state change is a
// conditional update in the store, so any number of processes can share one
// database without extra locking infrastructure.
//
// # Core Concepts
//
//  1. Service
//  2. Pricing
//  3. Worker
//  4. LocalRunner
//
// # Service
//
// The Service persists orders and print jobs and exposes:
//   - CreateOrder, which prices every line and freezes the result
//   - ClaimOrder / ClaimNextOrders, the print agent's exactly-once claim
//   - MarkPrinted, which completes the order and may notify the customer
//   - the print job queue (enqueue, pending, printed, failed, retry)
//   - the sweeps: RecoverStuckOrders, NotifyPending and PurgeFulfilled
//
// Services can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite (embedded durability)
//   - Postgres
//
// # Pricing
//
// A product's unit price follows its rule. SUM adds every selected option,
// MAX_OPTION charges the most expensive flavor and HALF_SUM the mean of the
// selected flavors (rounded half up); add-on groups are always added on top.
// PriceLine exposes the engine for catalog previews.
//
// # Notifications
//
// Once an order is PRINTED the customer receives a confirmation through a
// MessagingGateway, rendered from the store's template. A short lease on the
// order guarantees at most one dispatcher sends at a time, and the order is
// marked notified only after the gateway accepted the message. PIX orders
// also get payment instructions when the store has a PIX key.
//
// # Worker
//
// The worker package schedules the sweeps on fixed intervals. Each sweep takes
// the current time from a Clock and can be re-run at any time.
//
// # LocalRunner
//
// LocalRunner bundles an in-memory Service and a Worker into a single,
// process-local helper useful for development and unit testing. It is
// intentionally **not crash-durable**; NewSQLiteBundle is the durable
// single-process equivalent.
//
// For a complete runnable program, see examples/local or the orderdesk CLI
// under cmd/orderdesk.
package orderdesk
