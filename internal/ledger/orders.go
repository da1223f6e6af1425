package ledger

import (
	"context"
	"log/slog"

	"github.com/probmarket/ledger/internal/domain"
)

// PlaceOrderParams are the inputs to order placement. User is the
// authenticated placer.
type PlaceOrderParams struct {
	MarketID  string
	User      string
	Side      domain.Side
	OrderType domain.OrderType
	Price     int64
	Size      int64
}

// PlaceOrder allocates a new order keyed by (market, user) with filled=0 and
// status pending, then emits OrderPlaced — the only way the off-chain
// matcher learns of new liquidity. A second order at the same (market, user)
// key fails with ErrAlreadyExists rather than overwriting.
func (s *Service) PlaceOrder(ctx context.Context, p PlaceOrderParams) (domain.Order, error) {
	user := domain.NormalizeAddress(p.User)
	if user == "" {
		return domain.Order{}, opErr("place order", domain.ErrValidation)
	}
	if p.Side != domain.SideYes && p.Side != domain.SideNo {
		return domain.Order{}, opErr("place order", domain.ErrValidation)
	}
	if p.OrderType != domain.OrderTypeMarket && p.OrderType != domain.OrderTypeLimit {
		return domain.Order{}, opErr("place order", domain.ErrValidation)
	}
	if p.Price < domain.MinPriceBps || p.Price > domain.MaxPriceBps {
		return domain.Order{}, opErr("place order", domain.ErrInvalidPrice)
	}
	if p.Size <= 0 {
		return domain.Order{}, opErr("place order", domain.ErrValidation)
	}

	m, err := s.markets.Get(ctx, p.MarketID)
	if err != nil {
		return domain.Order{}, opErr("place order", err)
	}
	if !m.IsActive || m.IsResolved {
		return domain.Order{}, opErr("place order", domain.ErrMarketNotActive)
	}

	now := s.now()
	o := domain.Order{
		ID:        domain.OrderID(m.ID, user),
		MarketID:  m.ID,
		User:      user,
		Side:      p.Side,
		Type:      p.OrderType,
		Price:     p.Price,
		Size:      p.Size,
		Filled:    0,
		Status:    domain.OrderStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.orders.Create(ctx, o); err != nil {
		return domain.Order{}, opErr("place order", err)
	}

	s.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", o.ID),
		slog.String("market_id", o.MarketID),
		slog.String("user", o.User),
		slog.String("side", string(o.Side)),
		slog.Int64("price", o.Price),
		slog.Int64("size", o.Size),
	)
	s.record(ctx, "order_placed", map[string]any{
		"order_id":  o.ID,
		"market_id": o.MarketID,
		"user":      o.User,
	})
	s.emit(ctx, domain.ChannelOrders, domain.EventOrderPlaced, domain.OrderPlaced{
		OrderID:   o.ID,
		MarketID:  o.MarketID,
		User:      o.User,
		Side:      o.Side,
		OrderType: o.Type,
		Price:     o.Price,
		Size:      o.Size,
	})
	return o, nil
}

// GetOrder returns an order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return domain.Order{}, opErr("get order", err)
	}
	return o, nil
}

// ListOrders returns a market's orders ordered by creation time.
func (s *Service) ListOrders(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Order, error) {
	os, err := s.orders.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, opErr("list orders", err)
	}
	return os, nil
}
