package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/petrijr/orderdesk/internal/persistence"
	"github.com/petrijr/orderdesk/pkg/api"
)

// testClock is a settable api.Clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(t time.Time) *testClock { return &testClock{t: t} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

type sentMessage struct {
	StoreRef string
	Phone    string
	Text     string
}

// fakeGateway records sent messages. failures lists errors returned by the
// next calls, in order; a nil entry means success. When hold is set every
// call signals entered and blocks until hold is closed.
type fakeGateway struct {
	mu       sync.Mutex
	sent     []sentMessage
	failures []error

	entered chan struct{}
	hold    chan struct{}
}

func (g *fakeGateway) SendText(ctx context.Context, storeRef, phone, text string) error {
	if g.hold != nil {
		g.entered <- struct{}{}
		<-g.hold
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.failures) > 0 {
		err := g.failures[0]
		g.failures = g.failures[1:]
		if err != nil {
			return err
		}
	}
	g.sent = append(g.sent, sentMessage{StoreRef: storeRef, Phone: phone, Text: text})
	return nil
}

func (g *fakeGateway) failNext(errs ...error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failures = append(g.failures, errs...)
}

func (g *fakeGateway) messages() []sentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]sentMessage(nil), g.sent...)
}

type fakeArchiver struct {
	mu       sync.Mutex
	archived []string
	err      error
}

func (a *fakeArchiver) Archive(ctx context.Context, orders []*api.Order) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return a.err
	}
	for _, o := range orders {
		a.archived = append(a.archived, o.ID)
	}
	return nil
}

// flakyOrders fails the next MarkNotified calls with errStoreDown.
type flakyOrders struct {
	persistence.OrderStore

	mu    sync.Mutex
	fails int
}

func (f *flakyOrders) failMarkNotified(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fails = n
}

func (f *flakyOrders) MarkNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	f.mu.Lock()
	if f.fails > 0 {
		f.fails--
		f.mu.Unlock()
		return false, errStoreDown
	}
	f.mu.Unlock()
	return f.OrderStore.MarkNotified(ctx, id, now)
}

// recordingObserver captures the callbacks the tests assert on.
type recordingObserver struct {
	api.NoopObserver

	mu            sync.Mutex
	notifications []api.NotifyResult
	batches       []api.NotifyBatchResult
	recoveries    []api.RecoveryResult
	purges        []api.PurgeResult
	sweepFailures []string
}

func (o *recordingObserver) OnNotification(ctx context.Context, res api.NotifyResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.notifications = append(o.notifications, res)
}

func (o *recordingObserver) OnNotifyBatch(ctx context.Context, res api.NotifyBatchResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.batches = append(o.batches, res)
}

func (o *recordingObserver) OnRecoverySweep(ctx context.Context, res api.RecoveryResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.recoveries = append(o.recoveries, res)
}

func (o *recordingObserver) OnPurgeSweep(ctx context.Context, res api.PurgeResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.purges = append(o.purges, res)
}

func (o *recordingObserver) OnSweepFailed(ctx context.Context, sweep string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sweepFailures = append(o.sweepFailures, sweep)
}

var (
	errGatewayDown = errors.New("gateway down")
	errStoreDown   = errors.New("store down")
)

var (
	pizza = api.Product{ID: "p-pizza", Name: "Pizza G", PricingRule: api.PricingHalfSum}
	soda  = api.Product{ID: "p-soda", Name: "Soda", PricingRule: api.PricingSum, BasePriceCents: 600}
)

func flavors(deltas ...int64) api.OptionGroup {
	g := api.OptionGroup{Name: "Sabores", Role: api.RoleFlavor}
	for i, d := range deltas {
		g.Items = append(g.Items, api.OptionItem{ID: string(rune('a' + i)), Name: "Flavor " + string(rune('A'+i)), PriceDeltaCents: d})
	}
	return g
}

func addons(deltas ...int64) api.OptionGroup {
	g := api.OptionGroup{Name: "Borda", Role: api.RoleAddon}
	for i, d := range deltas {
		g.Items = append(g.Items, api.OptionItem{ID: string(rune('x' + i)), Name: "Addon", PriceDeltaCents: d})
	}
	return g
}

func deliveryOrder(storeID, phone string) api.NewOrder {
	return api.NewOrder{
		StoreID:          storeID,
		FulfillmentType:  api.FulfillmentDelivery,
		PaymentMethod:    api.PaymentCard,
		CustomerName:     "Ana",
		CustomerPhone:    phone,
		DeliveryAddress:  "Rua A, 10",
		DeliveryFeeCents: 500,
		Items: []api.NewLineItem{
			{Product: pizza, Quantity: 1, Groups: []api.OptionGroup{flavors(4000, 2600), addons(200)}},
			{Product: soda, Quantity: 2},
		},
	}
}
