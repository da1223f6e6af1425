package ledger

import (
	"context"
	"log/slog"

	"github.com/probmarket/ledger/internal/domain"
)

// Resolve finalizes a market's binary outcome. The transition is one-way:
// a repeat call fails with ErrAlreadyResolved regardless of the outcome
// requested. Gating order: already-resolved, then expiry, then creator —
// resolution before expiry fails ErrMarketNotExpired no matter who calls.
func (s *Service) Resolve(ctx context.Context, marketID, caller string, outcome bool) (domain.Market, error) {
	m, err := s.markets.Get(ctx, marketID)
	if err != nil {
		return domain.Market{}, opErr("resolve", err)
	}
	if m.IsResolved {
		return domain.Market{}, opErr("resolve", domain.ErrAlreadyResolved)
	}
	now := s.now()
	if !m.Expired(now) {
		return domain.Market{}, opErr("resolve", domain.ErrMarketNotExpired)
	}
	if !domain.SameIdentity(caller, m.Creator) {
		return domain.Market{}, opErr("resolve", domain.ErrUnauthorized)
	}

	// The store guards the transition again against committed state, so two
	// racing resolve calls cannot both stamp an outcome.
	resolved, err := s.markets.Resolve(ctx, m.ID, outcome, now)
	if err != nil {
		return domain.Market{}, opErr("resolve", err)
	}

	s.logger.InfoContext(ctx, "market resolved",
		slog.String("market_id", resolved.ID),
		slog.Bool("outcome", outcome),
	)
	s.record(ctx, "market_resolved", map[string]any{
		"market_id": resolved.ID,
		"outcome":   outcome,
	})
	s.emit(ctx, domain.ChannelResolutions, domain.EventMarketResolved, domain.MarketResolved{
		MarketID: resolved.ID,
		Outcome:  outcome,
	})
	return resolved, nil
}
