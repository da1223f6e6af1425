package domain

import "time"

// Bounds enforced on market creation. Records are fixed-shape; text that does
// not fit is rejected, never truncated.
const (
	MaxTitleBytes       = 256
	MaxDescriptionBytes = 512
)

// Market represents a single binary-outcome prediction question. A market is
// uniquely addressed by (creator, title); creating the same pair twice fails.
type Market struct {
	ID              string
	Creator         string // hex address authorized to resolve this market
	Title           string
	Description     string
	ExpiryTimestamp int64 // epoch seconds; resolution is gated on this instant
	IsActive        bool
	IsResolved      bool
	Resolution      *bool // nil until resolved; set exactly once

	// Reserved for the token/collateral collaborator. No ledger operation
	// transitions these.
	YesTokenSupply int64
	NoTokenSupply  int64

	CreatedAt  time.Time
	ResolvedAt *time.Time
}

// Resolved reports whether the market has a terminal outcome.
func (m Market) Resolved() bool {
	return m.IsResolved && m.Resolution != nil
}

// Expired reports whether the market's expiry has passed at the given time.
func (m Market) Expired(now time.Time) bool {
	return now.Unix() >= m.ExpiryTimestamp
}
