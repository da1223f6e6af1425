package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
}

// MarketStore persists market records. Create and Resolve are the only
// writes; resolution fields are never touched by any other path.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	Get(ctx context.Context, id string) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)

	// Resolve performs the one-way resolution transition against committed
	// state: it must fail with ErrAlreadyResolved if the record is already
	// resolved, and return the updated record on success.
	Resolve(ctx context.Context, id string, outcome bool, at time.Time) (Market, error)
}

// FillResult bundles the two orders updated by a settlement, committed
// together or not at all.
type FillResult struct {
	Buy  Order
	Sell Order
}

// OrderStore persists order records.
type OrderStore interface {
	Create(ctx context.Context, o Order) error
	Get(ctx context.Context, id string) (Order, error)
	ListByMarket(ctx context.Context, marketID string, opts ListOpts) ([]Order, error)

	// SettleFill applies a fill to both orders as a single atomic unit. The
	// implementation must re-check the settlement invariants (via ApplyFill)
	// against committed state inside its own transaction scope, and must not
	// expose or persist a half-updated pair.
	SettleFill(ctx context.Context, buyID, sellID string, fillSize, fillPrice int64, at time.Time) (FillResult, error)
}

// AuditEntry is a single append-only audit row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only log of committed transitions, the
// source the archiver drains for off-ledger reconciliation.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// RateLimiter guards the public API surface.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
