package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/petrijr/orderdesk/internal/message"
	"github.com/petrijr/orderdesk/internal/persistence"
	"github.com/petrijr/orderdesk/pkg/api"
)

// NotifyCustomer runs the precondition checks in a fixed order, then sends
// under a notification lease so concurrent dispatchers send at most once.
func (e *engineImpl) NotifyCustomer(ctx context.Context, orderID string, now time.Time) (api.NotifyResult, error) {
	res, err := e.notifyCustomer(ctx, orderID, now)
	if err != nil {
		return res, err
	}
	e.observer.OnNotification(ctx, res)
	return res, nil
}

func (e *engineImpl) notifyCustomer(ctx context.Context, orderID string, now time.Time) (api.NotifyResult, error) {
	res := api.NotifyResult{OrderID: orderID}

	o, err := e.orders.GetOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, api.ErrOrderNotFound) {
			res.Outcome = api.NotifyNotFound
			return res, nil
		}
		return res, fmt.Errorf("load order %s: %w", orderID, err)
	}
	res.StoreID = o.StoreID

	if skip, ok := skipReason(o); ok {
		res.Outcome = skip
		return res, nil
	}
	phone, ok := message.NormalizePhone(o.CustomerPhone, e.defaultCountryCode)
	if !ok {
		res.Outcome = api.NotifyNoPhone
		return res, nil
	}

	settings, err := e.settings.GetStoreSettings(ctx, o.StoreID)
	if err != nil && !errors.Is(err, api.ErrStoreSettingsNotFound) {
		return res, fmt.Errorf("load settings for store %s: %w", o.StoreID, err)
	}
	if settings == nil || !settings.MessagingEnabled || e.gateway == nil {
		res.Outcome = api.NotifyMessagingDisabled
		return res, nil
	}

	// Every attempt holds its own token so two dispatches from this process
	// exclude each other too.
	token := e.ownerID + "/" + newID()
	acquired, err := e.orders.TryAcquireNotifyLease(ctx, o.ID, token, now, e.notifyLeaseTTL)
	if err != nil {
		return res, fmt.Errorf("acquire notify lease for %s: %w", o.ID, err)
	}
	if !acquired {
		// Lost to a concurrent dispatcher, which may have finished already.
		res.Outcome = api.NotifyInFlight
		if cur, err := e.orders.GetOrder(ctx, o.ID); err == nil && cur.CustomerNotifiedAt != nil {
			res.Outcome = api.NotifyAlreadyNotified
		}
		return res, nil
	}

	text := message.Confirmation(o, *settings)
	if err := e.gateway.SendText(ctx, settings.MessagingRef, phone, text); err != nil {
		if relErr := e.orders.ReleaseNotifyLease(ctx, o.ID, token); relErr != nil {
			err = errors.Join(err, fmt.Errorf("release notify lease: %w", relErr))
		}
		res.Outcome = api.NotifyFailed
		res.Err = fmt.Errorf("send confirmation for order %s via %s: %w", o.ID, settings.MessagingRef, err)
		return res, nil
	}

	res.Outcome = api.NotifySent
	if err := e.markNotified(ctx, o.ID, now); err != nil {
		// The lease is kept so no dispatcher resends before it expires.
		return res, fmt.Errorf("mark order %s notified: %w", o.ID, err)
	}

	if instructions, ok := message.PaymentInstructions(o, *settings); ok {
		if err := e.gateway.SendText(ctx, settings.MessagingRef, phone, instructions); err != nil {
			res.PaymentInstructionsErr = fmt.Errorf("send payment instructions for order %s: %w", o.ID, err)
		}
	}
	return res, nil
}

// markNotified records a delivered confirmation. The message is already out,
// so the write outlives the caller's cancellation and is retried with backoff.
func (e *engineImpl) markNotified(ctx context.Context, id string, now time.Time) error {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 0; attempt < markNotifiedAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(markNotifiedBackoff << (attempt - 1))
		}
		if _, err = e.orders.MarkNotified(ctx, id, now); err == nil {
			return nil
		}
	}
	return err
}

// skipReason reports the order-level reasons not to notify, in check order.
func skipReason(o *api.Order) (api.NotifyOutcome, bool) {
	switch {
	case o.Status != api.OrderPrinted:
		return api.NotifyNotPrinted, true
	case o.CustomerNotifiedAt != nil:
		return api.NotifyAlreadyNotified, true
	case o.FulfillmentType == api.FulfillmentDineIn:
		return api.NotifyDineIn, true
	}
	return "", false
}

// NotifyPending dispatches the newest page of printed, unnotified orders
// within the lookback window. One order's failure never stops the batch.
func (e *engineImpl) NotifyPending(ctx context.Context, now time.Time) (api.NotifyBatchResult, error) {
	batch := api.NotifyBatchResult{
		Since:   now.Add(-e.notifyLookback),
		Skipped: make(map[api.NotifyOutcome]int),
	}

	orders, err := e.orders.ListOrders(ctx, persistence.OrderFilter{
		Status:       api.OrderPrinted,
		CreatedAfter: batch.Since,
		Unnotified:   true,
		WithPhone:    true,
		NewestFirst:  true,
		Limit:        e.notifyPageSize,
	})
	if err != nil {
		err = fmt.Errorf("list pending notifications: %w", err)
		e.observer.OnSweepFailed(ctx, SweepNotify, err)
		return batch, err
	}

	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return batch, err
		}
		batch.Scanned++

		res, err := e.NotifyCustomer(ctx, o.ID, now)
		if err != nil {
			// Store trouble on a single order; count it and move on.
			batch.Failed++
			e.observer.OnNotification(ctx, api.NotifyResult{
				OrderID: o.ID, StoreID: o.StoreID, Outcome: api.NotifyFailed, Err: err,
			})
			continue
		}
		switch res.Outcome {
		case api.NotifySent:
			batch.Sent++
		case api.NotifyFailed:
			batch.Failed++
		default:
			batch.Skipped[res.Outcome]++
		}
	}

	e.observer.OnNotifyBatch(ctx, batch)
	return batch, nil
}
