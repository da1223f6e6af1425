package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Bus channels. The off-chain matcher subscribes to ChannelOrders; the token
// collaborator consumes ChannelFills and ChannelResolutions.
const (
	ChannelOrders      = "orders"
	ChannelFills       = "fills"
	ChannelResolutions = "resolutions"
)

// EventType discriminates envelope payloads.
type EventType string

const (
	EventOrderPlaced    EventType = "order_placed"
	EventFillSettled    EventType = "fill_settled"
	EventMarketResolved EventType = "market_resolved"
)

// Envelope wraps an event payload with its identity and emission time.
// Delivery is at-least-once; consumers deduplicate by event ID (or by the
// order identity the payload carries).
type Envelope struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	EmittedAt time.Time       `json:"emitted_at"`
	Data      json.RawMessage `json:"data"`
}

// OrderPlaced is the sole mechanism by which the off-chain matcher learns of
// new liquidity; it carries the full order content.
type OrderPlaced struct {
	OrderID   string    `json:"order_id"`
	MarketID  string    `json:"market_id"`
	User      string    `json:"user"`
	Side      Side      `json:"side"`
	OrderType OrderType `json:"order_type"`
	Price     int64     `json:"price"`
	Size      int64     `json:"size"`
}

// FillSettled is the audit record for an applied fill, consumed off-ledger
// for reconciliation and token transfers.
type FillSettled struct {
	BuyOrderID  string `json:"buy_order_id"`
	SellOrderID string `json:"sell_order_id"`
	MarketID    string `json:"market_id"`
	FillSize    int64  `json:"fill_size"`
	FillPrice   int64  `json:"fill_price"`
}

// MarketResolved carries a market's final outcome for downstream redemption.
type MarketResolved struct {
	MarketID string `json:"market_id"`
	Outcome  bool   `json:"outcome"`
}

// StreamMessage is a single durable bus entry.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// EventBus transports committed-state notifications to off-ledger consumers.
// Publish is ephemeral pub/sub; StreamAppend/StreamRead provide the durable,
// resumable path that makes delivery at-least-once.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
