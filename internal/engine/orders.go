package engine

import (
	"context"
	"fmt"

	"github.com/petrijr/orderdesk/internal/persistence"
	"github.com/petrijr/orderdesk/pkg/api"
	"github.com/petrijr/orderdesk/pkg/pricing"
)

func (e *engineImpl) CreateOrder(ctx context.Context, req api.NewOrder) (*api.Order, error) {
	if err := validateNewOrder(req); err != nil {
		return nil, err
	}

	now := e.clock.Now()
	o := &api.Order{
		ID:                newID(),
		StoreID:           req.StoreID,
		Code:              newOrderCode(),
		Status:            api.OrderNew,
		FulfillmentType:   req.FulfillmentType,
		PaymentMethod:     req.PaymentMethod,
		CashTenderedCents: req.CashTenderedCents,
		CustomerName:      req.CustomerName,
		CustomerPhone:     req.CustomerPhone,
		DeliveryAddress:   req.DeliveryAddress,
		TableRef:          req.TableRef,
		ReceiptToken:      newReceiptToken(),
		CreatedAt:         now,
	}
	if req.FulfillmentType == api.FulfillmentDelivery {
		o.DeliveryFeeCents = req.DeliveryFeeCents
	}

	for i, line := range req.Items {
		res, err := pricing.Price(line.Product, line.Groups)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		li := api.LineItem{
			ID:             newID(),
			OrderID:        o.ID,
			ProductID:      line.Product.ID,
			ProductName:    line.Product.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: res.UnitPriceCents,
			Options:        snapshotOptions(line.Groups),
			Notes:          line.Notes,
		}
		o.Items = append(o.Items, li)
		o.SubtotalCents += li.TotalCents()
	}
	o.TotalCents = o.SubtotalCents + o.DeliveryFeeCents

	if err := e.orders.InsertOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	e.observer.OnOrderCreated(ctx, o)
	return o, nil
}

func validateNewOrder(req api.NewOrder) error {
	switch {
	case req.StoreID == "":
		return fmt.Errorf("%w: store id is required", api.ErrInvalidOrder)
	case len(req.Items) == 0:
		return fmt.Errorf("%w: order has no items", api.ErrInvalidOrder)
	case req.CashTenderedCents < 0 || req.DeliveryFeeCents < 0:
		return fmt.Errorf("%w: negative amount", api.ErrInvalidOrder)
	}

	switch req.FulfillmentType {
	case api.FulfillmentPickup, api.FulfillmentDelivery, api.FulfillmentDineIn:
	default:
		return fmt.Errorf("%w: unknown fulfillment type %q", api.ErrInvalidOrder, req.FulfillmentType)
	}
	switch req.PaymentMethod {
	case api.PaymentCash, api.PaymentCard, api.PaymentPix:
	default:
		return fmt.Errorf("%w: unknown payment method %q", api.ErrInvalidOrder, req.PaymentMethod)
	}

	for i, line := range req.Items {
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: line %d has quantity %d", api.ErrInvalidOrder, i+1, line.Quantity)
		}
	}
	return nil
}

// snapshotOptions freezes the selected options so later catalog edits never
// change a placed order.
func snapshotOptions(groups []api.OptionGroup) []api.LineOption {
	var out []api.LineOption
	for _, g := range groups {
		for _, it := range g.Items {
			out = append(out, api.LineOption{Group: g.Name, Name: it.Name, PriceDeltaCents: it.PriceDeltaCents})
		}
	}
	return out
}

func (e *engineImpl) GetOrder(ctx context.Context, id string) (*api.Order, error) {
	return e.orders.GetOrder(ctx, id)
}

func (e *engineImpl) GetOrderByReceiptToken(ctx context.Context, token string) (*api.Order, error) {
	if token == "" {
		return nil, api.ErrOrderNotFound
	}
	return e.orders.GetOrderByReceiptToken(ctx, token)
}

func (e *engineImpl) ClaimOrder(ctx context.Context, id string) (api.ClaimOutcome, error) {
	won, err := e.orders.ClaimOrder(ctx, id, e.clock.Now())
	if err != nil {
		return "", fmt.Errorf("claim order %s: %w", id, err)
	}
	if !won {
		// Zero rows: either someone else claimed it or it does not exist.
		if _, err := e.orders.GetOrder(ctx, id); err != nil {
			return "", err
		}
		e.observer.OnOrderClaimed(ctx, id, api.ClaimAlreadyClaimed)
		return api.ClaimAlreadyClaimed, nil
	}
	e.observer.OnOrderClaimed(ctx, id, api.ClaimWon)
	return api.ClaimWon, nil
}

func (e *engineImpl) ClaimNextOrders(ctx context.Context, storeID string, limit int) ([]*api.Order, error) {
	if limit <= 0 {
		limit = defaultClaimBatch
	}
	candidates, err := e.orders.ListOrders(ctx, persistence.OrderFilter{
		StoreID: storeID,
		Status:  api.OrderNew,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}

	var won []*api.Order
	for _, o := range candidates {
		now := e.clock.Now()
		ok, err := e.orders.ClaimOrder(ctx, o.ID, now)
		if err != nil {
			return won, fmt.Errorf("claim order %s: %w", o.ID, err)
		}
		if !ok {
			e.observer.OnOrderClaimed(ctx, o.ID, api.ClaimAlreadyClaimed)
			continue
		}
		o.Status = api.OrderPrinting
		o.PrintingClaimedAt = &now
		e.observer.OnOrderClaimed(ctx, o.ID, api.ClaimWon)
		won = append(won, o)
	}
	return won, nil
}

func (e *engineImpl) MarkPrinted(ctx context.Context, id string) (*api.Order, error) {
	applied, err := e.orders.MarkPrinted(ctx, id, e.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("mark order %s printed: %w", id, err)
	}

	o, err := e.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if !applied {
		if o.Status == api.OrderPrinted {
			return o, nil
		}
		return nil, &api.InvalidTransitionError{
			Entity: "order", ID: id, From: string(o.Status), To: string(api.OrderPrinted),
		}
	}

	e.observer.OnOrderPrinted(ctx, o)

	if e.notifyOnPrint {
		// The outcome is reported through the observer; it never fails the
		// print confirmation.
		res, err := e.NotifyCustomer(ctx, id, e.clock.Now())
		if err != nil {
			e.observer.OnSweepFailed(ctx, "notify_on_print", err)
		} else if res.Outcome == api.NotifySent {
			if fresh, err := e.orders.GetOrder(ctx, id); err == nil {
				o = fresh
			}
		}
	}
	return o, nil
}
