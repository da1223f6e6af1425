// Package memory implements the domain store interfaces with mutex-guarded
// maps. It backs unit tests and local development; the settlement path
// commits both orders under one lock so no caller observes a half-updated
// pair.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/probmarket/ledger/internal/domain"
)

// MarketStore is an in-memory domain.MarketStore.
type MarketStore struct {
	mu      sync.RWMutex
	markets map[string]domain.Market
}

// NewMarketStore creates an empty MarketStore.
func NewMarketStore() *MarketStore {
	return &MarketStore{markets: make(map[string]domain.Market)}
}

// Create inserts a market, failing if the ID is already taken.
func (s *MarketStore) Create(_ context.Context, m domain.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.markets[m.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.markets[m.ID] = m
	return nil
}

// Get returns a market by ID.
func (s *MarketStore) Get(_ context.Context, id string) (domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

// List returns markets ordered by creation time.
func (s *MarketStore) List(_ context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Market, 0, len(s.markets))
	for _, m := range s.markets {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, opts), nil
}

// Resolve performs the one-way resolution transition.
func (s *MarketStore) Resolve(_ context.Context, id string, outcome bool, at time.Time) (domain.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	if m.IsResolved {
		return domain.Market{}, domain.ErrAlreadyResolved
	}
	m.IsResolved = true
	m.Resolution = &outcome
	m.ResolvedAt = &at
	s.markets[id] = m
	return m, nil
}

// OrderStore is an in-memory domain.OrderStore.
type OrderStore struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

// NewOrderStore creates an empty OrderStore.
func NewOrderStore() *OrderStore {
	return &OrderStore{orders: make(map[string]domain.Order)}
}

// Create inserts an order, failing if the (market, user) key is taken.
func (s *OrderStore) Create(_ context.Context, o domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[o.ID]; ok {
		return domain.ErrAlreadyExists
	}
	s.orders[o.ID] = o
	return nil
}

// Get returns an order by ID.
func (s *OrderStore) Get(_ context.Context, id string) (domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrNotFound
	}
	return o, nil
}

// ListByMarket returns a market's orders ordered by creation time.
func (s *OrderStore) ListByMarket(_ context.Context, marketID string, opts domain.ListOpts) ([]domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Order
	for _, o := range s.orders {
		if o.MarketID == marketID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return paginate(out, opts), nil
}

// SettleFill applies a fill to both orders under one lock. The pair
// invariants are re-checked against the stored records; on any violation
// neither record changes.
func (s *OrderStore) SettleFill(_ context.Context, buyID, sellID string, fillSize, fillPrice int64, at time.Time) (domain.FillResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buy, ok := s.orders[buyID]
	if !ok {
		return domain.FillResult{}, domain.ErrNotFound
	}
	sell, ok := s.orders[sellID]
	if !ok {
		return domain.FillResult{}, domain.ErrNotFound
	}

	updatedBuy, updatedSell, err := domain.ApplyFill(buy, sell, fillSize, fillPrice, at)
	if err != nil {
		return domain.FillResult{}, err
	}

	s.orders[buyID] = updatedBuy
	s.orders[sellID] = updatedSell
	return domain.FillResult{Buy: updatedBuy, Sell: updatedSell}, nil
}

// AuditStore is an in-memory append-only audit log.
type AuditStore struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
	nextID  int64
}

// NewAuditStore creates an empty AuditStore.
func NewAuditStore() *AuditStore {
	return &AuditStore{nextID: 1}
}

// Log appends an audit entry.
func (s *AuditStore) Log(_ context.Context, event string, detail map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, domain.AuditEntry{
		ID:        s.nextID,
		Event:     event,
		Detail:    detail,
		CreatedAt: time.Now().UTC(),
	})
	s.nextID++
	return nil
}

// List returns audit entries in insertion order.
func (s *AuditStore) List(_ context.Context, opts domain.ListOpts) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AuditEntry, len(s.entries))
	copy(out, s.entries)
	if opts.Since != nil {
		filtered := out[:0]
		for _, e := range out {
			if !e.CreatedAt.Before(*opts.Since) {
				filtered = append(filtered, e)
			}
		}
		out = filtered
	}
	return paginate(out, opts), nil
}

func paginate[T any](in []T, opts domain.ListOpts) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(in) {
			return nil
		}
		in = in[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(in) {
		in = in[:opts.Limit]
	}
	return in
}

// Compile-time interface checks.
var (
	_ domain.MarketStore = (*MarketStore)(nil)
	_ domain.OrderStore  = (*OrderStore)(nil)
	_ domain.AuditStore  = (*AuditStore)(nil)
)
