package api

import "time"

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	OrderNew      OrderStatus = "NEW"
	OrderPrinting OrderStatus = "PRINTING"
	OrderPrinted  OrderStatus = "PRINTED"
)

// FulfillmentType describes how the customer receives the order.
type FulfillmentType string

const (
	FulfillmentPickup   FulfillmentType = "PICKUP"
	FulfillmentDelivery FulfillmentType = "DELIVERY"
	FulfillmentDineIn   FulfillmentType = "DINE_IN"
)

// PaymentMethod is how the customer pays on fulfillment.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
	PaymentPix  PaymentMethod = "PIX"
)

// LineOption is the frozen copy of one selected option on a line item.
type LineOption struct {
	Group           string
	Name            string
	PriceDeltaCents int64
}

// LineItem is an ordered product with the options chosen at order time.
type LineItem struct {
	ID             string
	OrderID        string
	ProductID      string
	ProductName    string
	Quantity       int
	UnitPriceCents int64
	Options        []LineOption
	Notes          string
}

// TotalCents returns the line total.
func (li LineItem) TotalCents() int64 {
	return li.UnitPriceCents * int64(li.Quantity)
}

// Order is a customer order as persisted by the store.
//
// PrintingClaimedAt is non-nil only once the order left NEW, and
// CustomerNotifiedAt is non-nil only for PRINTED orders.
type Order struct {
	ID      string
	StoreID string
	Code    string
	Status  OrderStatus

	FulfillmentType   FulfillmentType
	PaymentMethod     PaymentMethod
	CashTenderedCents int64

	CustomerName    string
	CustomerPhone   string
	DeliveryAddress string
	TableRef        string

	Items            []LineItem
	SubtotalCents    int64
	DeliveryFeeCents int64
	TotalCents       int64

	ReceiptToken string

	CreatedAt          time.Time
	PrintingClaimedAt  *time.Time
	PrintedAt          *time.Time
	CustomerNotifiedAt *time.Time

	NotifyLeaseOwner     string
	NotifyLeaseExpiresAt time.Time
}

// Clone returns a deep copy so callers can never mutate store-owned state.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	c := *o
	c.Items = make([]LineItem, len(o.Items))
	for i, li := range o.Items {
		li.Options = append([]LineOption(nil), li.Options...)
		c.Items[i] = li
	}
	c.PrintingClaimedAt = cloneTime(o.PrintingClaimedAt)
	c.PrintedAt = cloneTime(o.PrintedAt)
	c.CustomerNotifiedAt = cloneTime(o.CustomerNotifiedAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// NewLineItem is one requested line of an incoming order.
type NewLineItem struct {
	Product  Product
	Quantity int
	Groups   []OptionGroup
	Notes    string
}

// NewOrder is the payload of the public ordering path.
type NewOrder struct {
	StoreID           string
	FulfillmentType   FulfillmentType
	PaymentMethod     PaymentMethod
	CashTenderedCents int64
	CustomerName      string
	CustomerPhone     string
	DeliveryAddress   string
	TableRef          string
	DeliveryFeeCents  int64
	Items             []NewLineItem
}

// StoreSettings carries the per-store messaging and payment configuration.
type StoreSettings struct {
	StoreID              string
	Name                 string
	MessagingEnabled     bool
	MessagingRef         string
	ConfirmationTemplate string
	ReceiptBaseURL       string
	PixKey               string
	PixHolderName        string
}
