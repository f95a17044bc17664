package api

import "time"

// ClaimOutcome is the result of an agent's attempt to claim an order.
type ClaimOutcome string

const (
	ClaimWon            ClaimOutcome = "won"
	ClaimAlreadyClaimed ClaimOutcome = "already_claimed"
)

// NotifyOutcome is the result of one notification attempt. Only
// NotifyFailed represents a delivery failure; every other non-sent outcome
// is a legitimate "nothing to do".
type NotifyOutcome string

const (
	NotifySent              NotifyOutcome = "sent"
	NotifyNotFound          NotifyOutcome = "not_found"
	NotifyNotPrinted        NotifyOutcome = "not_printed"
	NotifyAlreadyNotified   NotifyOutcome = "already_notified"
	NotifyDineIn            NotifyOutcome = "dine_in"
	NotifyNoPhone           NotifyOutcome = "no_phone"
	NotifyMessagingDisabled NotifyOutcome = "messaging_disabled"
	NotifyInFlight          NotifyOutcome = "in_flight"
	NotifyFailed            NotifyOutcome = "failed"
)

// NotifyResult describes what happened to a single order.
type NotifyResult struct {
	OrderID string
	StoreID string
	Outcome NotifyOutcome
	// Err carries the gateway error for NotifyFailed.
	Err error
	// PaymentInstructionsErr is set when the confirmation went out but the
	// follow-up payment instructions did not.
	PaymentInstructionsErr error
}

// NotifyBatchResult summarises one notify sweep.
type NotifyBatchResult struct {
	Scanned int
	Sent    int
	Failed  int
	Skipped map[NotifyOutcome]int
	Since   time.Time
}

// RecoveryResult summarises one stuck-order recovery sweep.
type RecoveryResult struct {
	Recovered int
	Cutoff    time.Time
	Threshold time.Duration
}

// PurgeResult summarises one retention purge sweep.
type PurgeResult struct {
	Orders    int
	LineItems int
	Cutoff    time.Time
}
