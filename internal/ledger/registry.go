package ledger

import (
	"context"
	"log/slog"
	"strings"

	"github.com/probmarket/ledger/internal/domain"
)

// CreateMarketParams are the inputs to market creation. Creator is the
// authenticated caller; it becomes the only identity allowed to resolve the
// market.
type CreateMarketParams struct {
	Creator         string
	Title           string
	Description     string
	ExpiryTimestamp int64
}

// CreateMarket allocates a new market record keyed by (creator, title).
// Title and description bounds are validated explicitly; oversized text is
// rejected, never truncated. No event is emitted: unlike orders, markets are
// discoverable by querying the registry directly.
func (s *Service) CreateMarket(ctx context.Context, p CreateMarketParams) (domain.Market, error) {
	creator := domain.NormalizeAddress(p.Creator)
	if creator == "" {
		return domain.Market{}, opErr("create market", domain.ErrValidation)
	}
	title := strings.TrimSpace(p.Title)
	if title == "" || len(title) > domain.MaxTitleBytes {
		return domain.Market{}, opErr("create market", domain.ErrValidation)
	}
	if len(p.Description) > domain.MaxDescriptionBytes {
		return domain.Market{}, opErr("create market", domain.ErrValidation)
	}

	now := s.now()
	m := domain.Market{
		ID:              domain.MarketID(creator, title),
		Creator:         creator,
		Title:           title,
		Description:     p.Description,
		ExpiryTimestamp: p.ExpiryTimestamp,
		IsActive:        true,
		IsResolved:      false,
		CreatedAt:       now,
	}

	if err := s.markets.Create(ctx, m); err != nil {
		return domain.Market{}, opErr("create market", err)
	}

	s.logger.InfoContext(ctx, "market created",
		slog.String("market_id", m.ID),
		slog.String("creator", m.Creator),
		slog.Int64("expiry", m.ExpiryTimestamp),
	)
	s.record(ctx, "market_created", map[string]any{
		"market_id": m.ID,
		"creator":   m.Creator,
		"title":     m.Title,
		"expiry":    m.ExpiryTimestamp,
	})
	return m, nil
}

// GetMarket returns a market by ID.
func (s *Service) GetMarket(ctx context.Context, id string) (domain.Market, error) {
	m, err := s.markets.Get(ctx, id)
	if err != nil {
		return domain.Market{}, opErr("get market", err)
	}
	return m, nil
}

// ListMarkets returns markets ordered by creation time.
func (s *Service) ListMarkets(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	ms, err := s.markets.List(ctx, opts)
	if err != nil {
		return nil, opErr("list markets", err)
	}
	return ms, nil
}
