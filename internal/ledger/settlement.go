package ledger

import (
	"context"
	"log/slog"

	"github.com/probmarket/ledger/internal/domain"
)

// SettleFillParams are the inputs to fill settlement. Caller must be the
// settlement authority; the two order IDs come from the off-chain matcher,
// which is trusted to have determined a legitimate cross.
type SettleFillParams struct {
	Caller      string
	BuyOrderID  string
	SellOrderID string
	FillSize    int64
	FillPrice   int64
}

// SettleFill applies an externally matched fill to both orders as one atomic
// unit: either both records carry the fill and FillSettled is emitted, or
// neither changes and a fault is reported. Fill bounds use overflow-checked
// arithmetic; exceeding an order's size is an arithmetic fault, never a
// clamp. The authority check is a capability check, distinct from either
// order's owner.
func (s *Service) SettleFill(ctx context.Context, p SettleFillParams) (domain.FillResult, error) {
	if !domain.SameIdentity(p.Caller, s.authority) {
		return domain.FillResult{}, opErr("settle fill", domain.ErrUnauthorized)
	}
	if p.FillSize <= 0 {
		return domain.FillResult{}, opErr("settle fill", domain.ErrValidation)
	}
	if p.FillPrice < domain.MinPriceBps || p.FillPrice > domain.MaxPriceBps {
		return domain.FillResult{}, opErr("settle fill", domain.ErrInvalidPrice)
	}
	if p.BuyOrderID == p.SellOrderID {
		return domain.FillResult{}, opErr("settle fill", domain.ErrValidation)
	}

	// The store re-checks the pair invariants (same market, opposite sides,
	// fill bounds) against committed state inside its transaction.
	res, err := s.orders.SettleFill(ctx, p.BuyOrderID, p.SellOrderID, p.FillSize, p.FillPrice, s.now())
	if err != nil {
		return domain.FillResult{}, opErr("settle fill", err)
	}

	s.logger.InfoContext(ctx, "fill settled",
		slog.String("buy_order_id", res.Buy.ID),
		slog.String("sell_order_id", res.Sell.ID),
		slog.String("market_id", res.Buy.MarketID),
		slog.Int64("fill_size", p.FillSize),
		slog.Int64("fill_price", p.FillPrice),
	)
	s.record(ctx, "fill_settled", map[string]any{
		"buy_order_id":  res.Buy.ID,
		"sell_order_id": res.Sell.ID,
		"market_id":     res.Buy.MarketID,
		"fill_size":     p.FillSize,
		"fill_price":    p.FillPrice,
	})
	s.emit(ctx, domain.ChannelFills, domain.EventFillSettled, domain.FillSettled{
		BuyOrderID:  res.Buy.ID,
		SellOrderID: res.Sell.ID,
		MarketID:    res.Buy.MarketID,
		FillSize:    p.FillSize,
		FillPrice:   p.FillPrice,
	})
	return res, nil
}
