package api

import "time"

// PrintJobType identifies what a print job renders.
type PrintJobType string

const (
	PrintKitchenOrder        PrintJobType = "KITCHEN_ORDER"
	PrintCashierTableSummary PrintJobType = "CASHIER_TABLE_SUMMARY"
)

// PrintJobStatus is the state of a print job. PRINTED and FAILED are terminal.
type PrintJobStatus string

const (
	PrintJobQueued  PrintJobStatus = "QUEUED"
	PrintJobPrinted PrintJobStatus = "PRINTED"
	PrintJobFailed  PrintJobStatus = "FAILED"
)

// Terminal reports whether no further transition is allowed.
func (s PrintJobStatus) Terminal() bool {
	return s == PrintJobPrinted || s == PrintJobFailed
}

// PrintJob is a discrete physical print task. Its lifecycle is independent
// from the order it may reference.
type PrintJob struct {
	ID            string
	StoreID       string
	Type          PrintJobType
	Status        PrintJobStatus
	OrderID       string
	TableRef      string
	SessionRef    string
	Payload       string
	FailureReason string
	RetryOf       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewPrintJob is the request to queue a print job.
type NewPrintJob struct {
	StoreID    string
	Type       PrintJobType
	OrderID    string
	TableRef   string
	SessionRef string
	Payload    string
}
