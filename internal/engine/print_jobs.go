package engine

import (
	"context"
	"fmt"

	"github.com/petrijr/orderdesk/internal/persistence"
	"github.com/petrijr/orderdesk/pkg/api"
)

func (e *engineImpl) EnqueuePrintJob(ctx context.Context, req api.NewPrintJob) (*api.PrintJob, error) {
	if req.StoreID == "" {
		return nil, fmt.Errorf("%w: store id is required", api.ErrInvalidPrintJob)
	}
	switch req.Type {
	case api.PrintKitchenOrder:
		if req.OrderID == "" {
			return nil, fmt.Errorf("%w: kitchen tickets need an order id", api.ErrInvalidPrintJob)
		}
	case api.PrintCashierTableSummary:
		if req.TableRef == "" && req.SessionRef == "" {
			return nil, fmt.Errorf("%w: cashier summaries need a table or session", api.ErrInvalidPrintJob)
		}
	default:
		return nil, fmt.Errorf("%w: unknown type %q", api.ErrInvalidPrintJob, req.Type)
	}

	now := e.clock.Now()
	job := &api.PrintJob{
		ID:         newID(),
		StoreID:    req.StoreID,
		Type:       req.Type,
		Status:     api.PrintJobQueued,
		OrderID:    req.OrderID,
		TableRef:   req.TableRef,
		SessionRef: req.SessionRef,
		Payload:    req.Payload,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return e.insertJob(ctx, job)
}

func (e *engineImpl) insertJob(ctx context.Context, job *api.PrintJob) (*api.PrintJob, error) {
	if err := e.printJobs.InsertPrintJob(ctx, job); err != nil {
		return nil, fmt.Errorf("insert print job: %w", err)
	}
	e.observer.OnPrintJobUpdated(ctx, job)
	return job, nil
}

func (e *engineImpl) PendingPrintJobs(ctx context.Context, storeID string, limit int) ([]*api.PrintJob, error) {
	return e.printJobs.ListPrintJobs(ctx, persistence.PrintJobFilter{
		StoreID: storeID,
		Status:  api.PrintJobQueued,
		Limit:   limit,
	})
}

func (e *engineImpl) MarkPrintJobPrinted(ctx context.Context, id string) (*api.PrintJob, error) {
	return e.finishJob(ctx, id, api.PrintJobPrinted, "")
}

func (e *engineImpl) MarkPrintJobFailed(ctx context.Context, id string, reason string) (*api.PrintJob, error) {
	return e.finishJob(ctx, id, api.PrintJobFailed, reason)
}

// finishJob moves a QUEUED job to a terminal status. Repeating the same
// terminal transition is a no-op; crossing terminals is an error.
func (e *engineImpl) finishJob(ctx context.Context, id string, to api.PrintJobStatus, reason string) (*api.PrintJob, error) {
	applied, err := e.printJobs.FinishPrintJob(ctx, id, to, reason, e.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("finish print job %s: %w", id, err)
	}

	job, err := e.printJobs.GetPrintJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applied {
		if job.Status == to {
			return job, nil
		}
		return nil, &api.InvalidTransitionError{
			Entity: "print_job", ID: id, From: string(job.Status), To: string(to),
		}
	}
	e.observer.OnPrintJobUpdated(ctx, job)
	return job, nil
}

func (e *engineImpl) RetryPrintJob(ctx context.Context, id string) (*api.PrintJob, error) {
	failed, err := e.printJobs.GetPrintJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if failed.Status != api.PrintJobFailed {
		return nil, &api.InvalidTransitionError{
			Entity: "print_job", ID: id, From: string(failed.Status), To: string(api.PrintJobQueued),
		}
	}

	now := e.clock.Now()
	job := *failed
	job.ID = newID()
	job.Status = api.PrintJobQueued
	job.FailureReason = ""
	job.RetryOf = failed.ID
	job.CreatedAt = now
	job.UpdatedAt = now
	return e.insertJob(ctx, &job)
}

func (e *engineImpl) SaveStoreSettings(ctx context.Context, settings api.StoreSettings) error {
	if settings.StoreID == "" {
		return fmt.Errorf("store settings: store id is required")
	}
	return e.settings.SaveStoreSettings(ctx, settings)
}

func (e *engineImpl) GetStoreSettings(ctx context.Context, storeID string) (*api.StoreSettings, error) {
	return e.settings.GetStoreSettings(ctx, storeID)
}
