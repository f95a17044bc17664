package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/orderdesk/pkg/api"
)

// contractStore is every store interface implemented by one backend.
type contractStore interface {
	OrderStore
	PrintJobStore
	SettingsStore
}

var baseTime = time.Date(2026, 3, 10, 18, 0, 0, 0, time.UTC)

func sampleOrder(id string, createdAt time.Time) *api.Order {
	return &api.Order{
		ID:              id,
		StoreID:         "store-1",
		Code:            "CODE-" + id,
		Status:          api.OrderNew,
		FulfillmentType: api.FulfillmentDelivery,
		PaymentMethod:   api.PaymentCash,
		CustomerName:    "Ana",
		CustomerPhone:   "11987654321",
		DeliveryAddress: "Rua A, 10",
		Items: []api.LineItem{
			{
				ID: id + "-i1", OrderID: id, ProductID: "p-pizza", ProductName: "Pizza G",
				Quantity: 1, UnitPriceCents: 4000,
				Options: []api.LineOption{
					{Group: "Sabores", Name: "Calabresa", PriceDeltaCents: 4000},
					{Group: "Sabores", Name: "Margherita", PriceDeltaCents: 2600},
				},
			},
			{
				ID: id + "-i2", OrderID: id, ProductID: "p-soda", ProductName: "Soda",
				Quantity: 2, UnitPriceCents: 600, Notes: "cold",
			},
		},
		SubtotalCents:    5200,
		DeliveryFeeCents: 500,
		TotalCents:       5700,
		ReceiptToken:     "tok-" + id,
		CreatedAt:        createdAt,
	}
}

// runStoreContract exercises the behavior every backend must share. The
// factory must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) contractStore) {
	ctx := context.Background()

	t.Run("InsertAndGetOrder", func(t *testing.T) {
		s := newStore(t)
		o := sampleOrder("o1", baseTime)
		require.NoError(t, s.InsertOrder(ctx, o))

		got, err := s.GetOrder(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, api.OrderNew, got.Status)
		require.Equal(t, int64(5700), got.TotalCents)
		require.True(t, got.CreatedAt.Equal(baseTime))
		require.Nil(t, got.PrintingClaimedAt)
		require.Nil(t, got.CustomerNotifiedAt)
		require.Len(t, got.Items, 2)
		require.Equal(t, "o1-i1", got.Items[0].ID)
		require.Equal(t, o.Items[0].Options, got.Items[0].Options)
		require.Empty(t, got.Items[1].Options)
		require.Equal(t, "cold", got.Items[1].Notes)

		byTok, err := s.GetOrderByReceiptToken(ctx, "tok-o1")
		require.NoError(t, err)
		require.Equal(t, "o1", byTok.ID)

		_, err = s.GetOrder(ctx, "missing")
		require.True(t, errors.Is(err, ErrOrderNotFound))
		_, err = s.GetOrderByReceiptToken(ctx, "missing")
		require.True(t, errors.Is(err, ErrOrderNotFound))
	})

	t.Run("ClaimIsConditional", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertOrder(ctx, sampleOrder("o1", baseTime)))

		now := baseTime.Add(time.Minute)
		ok, err := s.ClaimOrder(ctx, "o1", now)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.ClaimOrder(ctx, "o1", now.Add(time.Second))
		require.NoError(t, err)
		require.False(t, ok)

		got, err := s.GetOrder(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, api.OrderPrinting, got.Status)
		require.NotNil(t, got.PrintingClaimedAt)
		require.True(t, got.PrintingClaimedAt.Equal(now))

		ok, err = s.ClaimOrder(ctx, "missing", now)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("MarkPrintedRequiresPrinting", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertOrder(ctx, sampleOrder("o1", baseTime)))

		ok, err := s.MarkPrinted(ctx, "o1", baseTime)
		require.NoError(t, err)
		require.False(t, ok, "NEW order must not jump to PRINTED")

		_, err = s.ClaimOrder(ctx, "o1", baseTime)
		require.NoError(t, err)
		ok, err = s.MarkPrinted(ctx, "o1", baseTime.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.MarkPrinted(ctx, "o1", baseTime.Add(2*time.Minute))
		require.NoError(t, err)
		require.False(t, ok)

		got, err := s.GetOrder(ctx, "o1")
		require.NoError(t, err)
		require.Equal(t, api.OrderPrinted, got.Status)
		require.NotNil(t, got.PrintedAt)
	})

	t.Run("RecoverUnclaimedCutoffIsInclusive", func(t *testing.T) {
		s := newStore(t)
		cutoff := baseTime
		require.NoError(t, s.InsertOrder(ctx, sampleOrder("old", cutoff.Add(-time.Minute))))
		require.NoError(t, s.InsertOrder(ctx, sampleOrder("edge", cutoff)))
		require.NoError(t, s.InsertOrder(ctx, sampleOrder("fresh", cutoff.Add(time.Second))))
		require.NoError(t, s.InsertOrder(ctx, sampleOrder("claimed", cutoff.Add(-time.Hour))))
		_, err := s.ClaimOrder(ctx, "claimed", cutoff)
		require.NoError(t, err)

		n, err := s.RecoverUnclaimed(ctx, cutoff, cutoff.Add(time.Hour))
		require.NoError(t, err)
		require.Equal(t, 2, n)

		for id, want := range map[string]api.OrderStatus{
			"old": api.OrderPrinting, "edge": api.OrderPrinting,
			"fresh": api.OrderNew, "claimed": api.OrderPrinting,
		} {
			got, err := s.GetOrder(ctx, id)
			require.NoError(t, err)
			require.Equal(t, want, got.Status, id)
		}

		n, err = s.RecoverUnclaimed(ctx, cutoff, cutoff.Add(time.Hour))
		require.NoError(t, err)
		require.Zero(t, n)
	})

	t.Run("ListOrdersFilters", func(t *testing.T) {
		s := newStore(t)
		for i := 0; i < 4; i++ {
			o := sampleOrder(fmt.Sprintf("o%d", i), baseTime.Add(time.Duration(i)*time.Minute))
			if i == 3 {
				o.StoreID = "store-2"
				o.CustomerPhone = ""
			}
			require.NoError(t, s.InsertOrder(ctx, o))
		}

		all, err := s.ListOrders(ctx, OrderFilter{StoreID: "store-1"})
		require.NoError(t, err)
		require.Len(t, all, 3)
		require.Equal(t, "o0", all[0].ID)
		require.Len(t, all[2].Items, 2)

		newest, err := s.ListOrders(ctx, OrderFilter{NewestFirst: true, Limit: 2})
		require.NoError(t, err)
		require.Len(t, newest, 2)
		require.Equal(t, "o3", newest[0].ID)
		require.Equal(t, "o2", newest[1].ID)

		after, err := s.ListOrders(ctx, OrderFilter{CreatedAfter: baseTime.Add(time.Minute), WithPhone: true})
		require.NoError(t, err)
		require.Len(t, after, 1)
		require.Equal(t, "o2", after[0].ID)

		upTo, err := s.ListOrders(ctx, OrderFilter{CreatedAtOrBefore: baseTime.Add(time.Minute)})
		require.NoError(t, err)
		require.Len(t, upTo, 2)

		_, err = s.ClaimOrder(ctx, "o1", baseTime)
		require.NoError(t, err)
		printing, err := s.ListOrders(ctx, OrderFilter{Status: api.OrderPrinting})
		require.NoError(t, err)
		require.Len(t, printing, 1)
		require.Equal(t, "o1", printing[0].ID)
	})

	t.Run("NotifyLease", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertOrder(ctx, sampleOrder("o1", baseTime)))

		now := baseTime.Add(time.Hour)
		ok, err := s.TryAcquireNotifyLease(ctx, "o1", "a", now, time.Minute)
		require.NoError(t, err)
		require.False(t, ok, "lease needs a PRINTED order")

		_, err = s.ClaimOrder(ctx, "o1", now)
		require.NoError(t, err)
		_, err = s.MarkPrinted(ctx, "o1", now)
		require.NoError(t, err)

		ok, err = s.TryAcquireNotifyLease(ctx, "o1", "a", now, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.TryAcquireNotifyLease(ctx, "o1", "b", now.Add(30*time.Second), time.Minute)
		require.NoError(t, err)
		require.False(t, ok, "lease held by a")

		ok, err = s.TryAcquireNotifyLease(ctx, "o1", "a", now.Add(30*time.Second), time.Minute)
		require.NoError(t, err)
		require.False(t, ok, "a live lease is not re-entrant")

		ok, err = s.TryAcquireNotifyLease(ctx, "o1", "b", now.Add(2*time.Minute), time.Minute)
		require.NoError(t, err)
		require.True(t, ok, "expired lease can be taken over")

		require.NoError(t, s.ReleaseNotifyLease(ctx, "o1", "a"), "releasing a lost lease is a no-op")
		ok, err = s.TryAcquireNotifyLease(ctx, "o1", "c", now.Add(2*time.Minute), time.Minute)
		require.NoError(t, err)
		require.False(t, ok, "b still holds the lease")

		require.NoError(t, s.ReleaseNotifyLease(ctx, "o1", "b"))
		ok, err = s.TryAcquireNotifyLease(ctx, "o1", "c", now.Add(2*time.Minute), time.Minute)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.MarkNotified(ctx, "o1", now.Add(3*time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.MarkNotified(ctx, "o1", now.Add(4*time.Minute))
		require.NoError(t, err)
		require.False(t, ok)

		got, err := s.GetOrder(ctx, "o1")
		require.NoError(t, err)
		require.NotNil(t, got.CustomerNotifiedAt)
		require.Empty(t, got.NotifyLeaseOwner)

		ok, err = s.TryAcquireNotifyLease(ctx, "o1", "d", now.Add(time.Hour), time.Minute)
		require.NoError(t, err)
		require.False(t, ok, "notified orders never lease again")

		unnotified, err := s.ListOrders(ctx, OrderFilter{Unnotified: true})
		require.NoError(t, err)
		require.Empty(t, unnotified)
	})

	t.Run("PurgePrinted", func(t *testing.T) {
		s := newStore(t)
		cutoff := baseTime
		printed := func(id string, created time.Time) {
			require.NoError(t, s.InsertOrder(ctx, sampleOrder(id, created)))
			_, err := s.ClaimOrder(ctx, id, created)
			require.NoError(t, err)
			_, err = s.MarkPrinted(ctx, id, created)
			require.NoError(t, err)
		}
		printed("old", cutoff.Add(-48*time.Hour))
		printed("edge", cutoff)
		require.NoError(t, s.InsertOrder(ctx, sampleOrder("stale-new", cutoff.Add(-72*time.Hour))))

		var archived []string
		counts, err := s.PurgePrinted(ctx, cutoff, func(_ context.Context, orders []*api.Order) error {
			for _, o := range orders {
				archived = append(archived, o.ID)
				require.Len(t, o.Items, 2)
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, PurgeCounts{Orders: 1, LineItems: 2}, counts)
		require.Equal(t, []string{"old"}, archived)

		_, err = s.GetOrder(ctx, "old")
		require.True(t, errors.Is(err, ErrOrderNotFound))
		_, err = s.GetOrderByReceiptToken(ctx, "tok-old")
		require.True(t, errors.Is(err, ErrOrderNotFound))
		_, err = s.GetOrder(ctx, "edge")
		require.NoError(t, err)
		_, err = s.GetOrder(ctx, "stale-new")
		require.NoError(t, err)

		counts, err = s.PurgePrinted(ctx, cutoff, nil)
		require.NoError(t, err)
		require.Zero(t, counts.Orders)
	})

	t.Run("PurgeRollsBackWhenHookFails", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.InsertOrder(ctx, sampleOrder("o1", baseTime.Add(-time.Hour))))
		_, err := s.ClaimOrder(ctx, "o1", baseTime)
		require.NoError(t, err)
		_, err = s.MarkPrinted(ctx, "o1", baseTime)
		require.NoError(t, err)

		boom := errors.New("archive down")
		_, err = s.PurgePrinted(ctx, baseTime, func(context.Context, []*api.Order) error { return boom })
		require.ErrorIs(t, err, boom)

		got, err := s.GetOrder(ctx, "o1")
		require.NoError(t, err)
		require.Len(t, got.Items, 2)
	})

	t.Run("PurgePrintedInPages", func(t *testing.T) {
		prev := purgePageSize
		purgePageSize = 3
		t.Cleanup(func() { purgePageSize = prev })

		s := newStore(t)
		for i := 0; i < 7; i++ {
			id := fmt.Sprintf("old-%d", i)
			created := baseTime.Add(-time.Duration(10-i) * time.Hour)
			require.NoError(t, s.InsertOrder(ctx, sampleOrder(id, created)))
			_, err := s.ClaimOrder(ctx, id, created)
			require.NoError(t, err)
			_, err = s.MarkPrinted(ctx, id, created)
			require.NoError(t, err)
		}

		var pages [][]string
		record := func(_ context.Context, orders []*api.Order) error {
			var ids []string
			for _, o := range orders {
				ids = append(ids, o.ID)
			}
			pages = append(pages, ids)
			if len(pages) == 2 {
				return errors.New("archive down")
			}
			return nil
		}

		counts, err := s.PurgePrinted(ctx, baseTime, record)
		require.Error(t, err)
		require.Equal(t, PurgeCounts{Orders: 3, LineItems: 6}, counts, "first page stays purged")
		require.Equal(t, []string{"old-0", "old-1", "old-2"}, pages[0])

		_, err = s.GetOrder(ctx, "old-2")
		require.True(t, errors.Is(err, ErrOrderNotFound))
		_, err = s.GetOrder(ctx, "old-3")
		require.NoError(t, err, "failed page is rolled back")

		pages = nil
		counts, err = s.PurgePrinted(ctx, baseTime, func(_ context.Context, orders []*api.Order) error {
			pages = append(pages, orderIDs(orders))
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, PurgeCounts{Orders: 4, LineItems: 8}, counts)
		require.Equal(t, [][]string{{"old-3", "old-4", "old-5"}, {"old-6"}}, pages)

		left, err := s.ListOrders(ctx, OrderFilter{})
		require.NoError(t, err)
		require.Empty(t, left)
	})

	t.Run("PrintJobs", func(t *testing.T) {
		s := newStore(t)
		for i, typ := range []api.PrintJobType{api.PrintKitchenOrder, api.PrintCashierTableSummary} {
			require.NoError(t, s.InsertPrintJob(ctx, &api.PrintJob{
				ID: fmt.Sprintf("j%d", i), StoreID: "store-1", Type: typ, Status: api.PrintJobQueued,
				OrderID: "o1", Payload: "ticket", CreatedAt: baseTime.Add(time.Duration(i) * time.Second),
				UpdatedAt: baseTime,
			}))
		}

		queued, err := s.ListPrintJobs(ctx, PrintJobFilter{StoreID: "store-1", Status: api.PrintJobQueued})
		require.NoError(t, err)
		require.Len(t, queued, 2)
		require.Equal(t, "j0", queued[0].ID)

		ok, err := s.FinishPrintJob(ctx, "j0", api.PrintJobFailed, "paper jam", baseTime.Add(time.Minute))
		require.NoError(t, err)
		require.True(t, ok)
		ok, err = s.FinishPrintJob(ctx, "j0", api.PrintJobPrinted, "", baseTime.Add(2*time.Minute))
		require.NoError(t, err)
		require.False(t, ok, "terminal jobs never move again")

		got, err := s.GetPrintJob(ctx, "j0")
		require.NoError(t, err)
		require.Equal(t, api.PrintJobFailed, got.Status)
		require.Equal(t, "paper jam", got.FailureReason)
		require.True(t, got.UpdatedAt.Equal(baseTime.Add(time.Minute)))

		_, err = s.GetPrintJob(ctx, "missing")
		require.True(t, errors.Is(err, ErrPrintJobNotFound))

		byOrder, err := s.ListPrintJobs(ctx, PrintJobFilter{OrderID: "o1", Limit: 1})
		require.NoError(t, err)
		require.Len(t, byOrder, 1)
	})

	t.Run("StoreSettings", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetStoreSettings(ctx, "store-1")
		require.True(t, errors.Is(err, ErrStoreSettingsNotFound))

		in := api.StoreSettings{StoreID: "store-1", Name: "Pizzaria", MessagingEnabled: true, MessagingRef: "inst-1"}
		require.NoError(t, s.SaveStoreSettings(ctx, in))
		in.PixKey = "pix@example.com"
		require.NoError(t, s.SaveStoreSettings(ctx, in))

		got, err := s.GetStoreSettings(ctx, "store-1")
		require.NoError(t, err)
		require.Equal(t, in, *got)
	})
}

// runConcurrentClaim races many claimers on each order and checks exactly one
// wins per order.
func runConcurrentClaim(t *testing.T, s contractStore) {
	ctx := context.Background()
	const orders, claimers = 5, 8

	for i := 0; i < orders; i++ {
		require.NoError(t, s.InsertOrder(ctx, sampleOrder(fmt.Sprintf("race-%d", i), baseTime)))
	}

	wins := make([]atomic.Int32, orders)
	var wg sync.WaitGroup
	for i := 0; i < orders; i++ {
		for c := 0; c < claimers; c++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				ok, err := s.ClaimOrder(ctx, fmt.Sprintf("race-%d", i), baseTime)
				if err == nil && ok {
					wins[i].Add(1)
				}
			}(i)
		}
	}
	wg.Wait()

	for i := range wins {
		require.EqualValues(t, 1, wins[i].Load(), "order race-%d", i)
	}
}
