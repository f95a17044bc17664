package persistence

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/petrijr/orderdesk/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe implementation of OrderStore,
// PrintJobStore and SettingsStore backed by maps. A single mutex makes every
// conditional update atomic.
type InMemoryStore struct {
	mu        sync.RWMutex
	orders    map[string]*api.Order
	byToken   map[string]string
	printJobs map[string]*api.PrintJob
	settings  map[string]api.StoreSettings
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		orders:    make(map[string]*api.Order),
		byToken:   make(map[string]string),
		printJobs: make(map[string]*api.PrintJob),
		settings:  make(map[string]api.StoreSettings),
	}
}

// Ensure InMemoryStore implements the interfaces.
var (
	_ OrderStore    = (*InMemoryStore)(nil)
	_ PrintJobStore = (*InMemoryStore)(nil)
	_ SettingsStore = (*InMemoryStore)(nil)
)

func (s *InMemoryStore) InsertOrder(ctx context.Context, order *api.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orders[order.ID]; ok {
		return fmt.Errorf("order %s already exists", order.ID)
	}
	if _, ok := s.byToken[order.ReceiptToken]; ok {
		return fmt.Errorf("receipt token already in use")
	}
	s.orders[order.ID] = order.Clone()
	s.byToken[order.ReceiptToken] = order.ID
	return nil
}

func (s *InMemoryStore) GetOrder(ctx context.Context, id string) (*api.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o.Clone(), nil
}

func (s *InMemoryStore) GetOrderByReceiptToken(ctx context.Context, token string) (*api.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byToken[token]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return s.orders[id].Clone(), nil
}

func (s *InMemoryStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*api.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.Order
	for _, o := range s.orders {
		if matchOrder(o, filter) {
			result = append(result, o.Clone())
		}
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if filter.NewestFirst {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func matchOrder(o *api.Order, f OrderFilter) bool {
	if f.StoreID != "" && o.StoreID != f.StoreID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	if !f.CreatedAfter.IsZero() && !o.CreatedAt.After(f.CreatedAfter) {
		return false
	}
	if !f.CreatedAtOrBefore.IsZero() && o.CreatedAt.After(f.CreatedAtOrBefore) {
		return false
	}
	if f.Unnotified && o.CustomerNotifiedAt != nil {
		return false
	}
	if f.WithPhone && o.CustomerPhone == "" {
		return false
	}
	return true
}

func (s *InMemoryStore) ClaimOrder(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Status != api.OrderNew {
		return false, nil
	}
	o.Status = api.OrderPrinting
	o.PrintingClaimedAt = &now
	return true, nil
}

func (s *InMemoryStore) MarkPrinted(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Status != api.OrderPrinting {
		return false, nil
	}
	o.Status = api.OrderPrinted
	o.PrintedAt = &now
	return true, nil
}

func (s *InMemoryStore) RecoverUnclaimed(ctx context.Context, cutoff, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, o := range s.orders {
		if o.Status != api.OrderNew || o.PrintingClaimedAt != nil || o.CreatedAt.After(cutoff) {
			continue
		}
		claimedAt := now
		o.Status = api.OrderPrinting
		o.PrintingClaimedAt = &claimedAt
		n++
	}
	return n, nil
}

func (s *InMemoryStore) TryAcquireNotifyLease(ctx context.Context, id, owner string, now time.Time, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Status != api.OrderPrinted || o.CustomerNotifiedAt != nil {
		return false, nil
	}
	if o.NotifyLeaseOwner != "" && o.NotifyLeaseExpiresAt.After(now) {
		return false, nil
	}
	o.NotifyLeaseOwner = owner
	o.NotifyLeaseExpiresAt = now.Add(ttl)
	return true, nil
}

func (s *InMemoryStore) ReleaseNotifyLease(ctx context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if o, ok := s.orders[id]; ok && o.NotifyLeaseOwner == owner {
		o.NotifyLeaseOwner = ""
		o.NotifyLeaseExpiresAt = time.Time{}
	}
	return nil
}

func (s *InMemoryStore) MarkNotified(ctx context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok || o.Status != api.OrderPrinted || o.CustomerNotifiedAt != nil {
		return false, nil
	}
	o.CustomerNotifiedAt = &now
	o.NotifyLeaseOwner = ""
	o.NotifyLeaseExpiresAt = time.Time{}
	return true, nil
}

func (s *InMemoryStore) PurgePrinted(ctx context.Context, cutoff time.Time, before BeforePurgeFunc) (PurgeCounts, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var victims []*api.Order
	for _, o := range s.orders {
		if o.Status == api.OrderPrinted && o.CreatedAt.Before(cutoff) {
			victims = append(victims, o)
		}
	}
	sort.Slice(victims, func(i, j int) bool {
		if !victims[i].CreatedAt.Equal(victims[j].CreatedAt) {
			return victims[i].CreatedAt.Before(victims[j].CreatedAt)
		}
		return victims[i].ID < victims[j].ID
	})

	var total PurgeCounts
	for len(victims) > 0 {
		page := victims[:min(purgePageSize, len(victims))]
		victims = victims[len(page):]

		if before != nil {
			snapshot := make([]*api.Order, len(page))
			for i, o := range page {
				snapshot[i] = o.Clone()
			}
			if err := before(ctx, snapshot); err != nil {
				return total, err
			}
		}
		for _, o := range page {
			total.LineItems += len(o.Items)
			total.Orders++
			delete(s.byToken, o.ReceiptToken)
			delete(s.orders, o.ID)
		}
	}
	return total, nil
}

func (s *InMemoryStore) InsertPrintJob(ctx context.Context, job *api.PrintJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.printJobs[job.ID]; ok {
		return fmt.Errorf("print job %s already exists", job.ID)
	}
	cp := *job
	s.printJobs[job.ID] = &cp
	return nil
}

func (s *InMemoryStore) GetPrintJob(ctx context.Context, id string) (*api.PrintJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	j, ok := s.printJobs[id]
	if !ok {
		return nil, ErrPrintJobNotFound
	}
	cp := *j
	return &cp, nil
}

func (s *InMemoryStore) ListPrintJobs(ctx context.Context, filter PrintJobFilter) ([]*api.PrintJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*api.PrintJob
	for _, j := range s.printJobs {
		if filter.StoreID != "" && j.StoreID != filter.StoreID {
			continue
		}
		if filter.Status != "" && j.Status != filter.Status {
			continue
		}
		if filter.OrderID != "" && j.OrderID != filter.OrderID {
			continue
		}
		cp := *j
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, k int) bool {
		if !result[i].CreatedAt.Equal(result[k].CreatedAt) {
			return result[i].CreatedAt.Before(result[k].CreatedAt)
		}
		return result[i].ID < result[k].ID
	})

	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *InMemoryStore) FinishPrintJob(ctx context.Context, id string, to api.PrintJobStatus, reason string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.printJobs[id]
	if !ok || j.Status != api.PrintJobQueued {
		return false, nil
	}
	j.Status = to
	j.FailureReason = reason
	j.UpdatedAt = now
	return true, nil
}

func (s *InMemoryStore) SaveStoreSettings(ctx context.Context, settings api.StoreSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.settings[settings.StoreID] = settings
	return nil
}

func (s *InMemoryStore) GetStoreSettings(ctx context.Context, storeID string) (*api.StoreSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.settings[storeID]
	if !ok {
		return nil, ErrStoreSettingsNotFound
	}
	return &st, nil
}
