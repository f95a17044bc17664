// Package api contains the domain types and contracts of the orderdesk order
// core. It has no dependencies on storage or transport; engines, stores and
// gateways are built against the types defined here.
//
// Most users interact with the higher-level orderdesk package, which
// re-exports selected types and constructors from this package.
//
// # Concepts
//
//   - Catalog: Product, OptionGroup and OptionItem feed the pricing engine.
//   - Orders: Order moves NEW -> PRINTING -> PRINTED. The move out of NEW is a
//     claim won by exactly one caller.
//   - Print jobs: PrintJob moves QUEUED -> PRINTED or QUEUED -> FAILED,
//     independently of any order it references.
//   - Sweeps: stuck-order recovery, customer notification and retention
//     purge. Each takes the current time explicitly and is safe to re-run.
//
// # Errors and outcomes
//
// Lookups return the sentinel errors in this package (ErrOrderNotFound, ...).
// A transition whose precondition does not hold returns an
// *InvalidTransitionError, matched with errors.Is(err, ErrInvalidTransition).
// Lost races are not errors: they surface as ClaimAlreadyClaimed or
// NotifyInFlight.
//
// # Collaborators
//
// Service implementations depend on a MessagingGateway for customer
// messages, an optional PurgeArchiver and a Clock. Observer receives every
// lifecycle event and sweep result; LoggingObserver, BasicMetrics and
// CompositeObserver are ready-made implementations.
package api
