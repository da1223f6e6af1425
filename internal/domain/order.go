package domain

import (
	"math"
	"time"
)

// Prices are integer basis points: 10000 = probability 1.0.
const (
	MinPriceBps int64 = 0
	MaxPriceBps int64 = 10000
)

// Side indicates which outcome token the order concerns.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// Opposite returns the other side of a binary market.
func (s Side) Opposite() Side {
	if s == SideYes {
		return SideNo
	}
	return SideYes
}

// OrderType is recorded for the off-chain matcher; the ledger itself does not
// interpret it.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderStatus tracks the order lifecycle. Cancelled is reserved; no ledger
// operation currently sets it.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPartial   OrderStatus = "partial"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Order is a participant's resting trade intent for one side of a market.
// An order is uniquely addressed by (market, user); a participant holds at
// most one resting order per market.
type Order struct {
	ID        string
	MarketID  string
	User      string // hex address of the order's owner
	Side      Side
	Type      OrderType
	Price     int64 // basis points, [0, 10000]
	Size      int64 // total requested quantity, > 0
	Filled    int64 // cumulative matched quantity; Filled <= Size always
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Remaining returns the unfilled quantity.
func (o Order) Remaining() int64 {
	return o.Size - o.Filled
}

// statusForFilled derives the post-fill status. filled == 0 is unreachable
// after a fill has been applied.
func statusForFilled(filled, size int64) OrderStatus {
	if filled >= size {
		return OrderStatusFilled
	}
	return OrderStatusPartial
}

// ApplyFill applies a matched fill to a buy/sell order pair and returns the
// updated pair. It re-checks every settlement invariant against the records
// as passed in, so stores can call it inside their own transaction against
// committed state:
//
//   - fillSize > 0 and fillPrice within [0, 10000]
//   - the two orders are distinct records on the same market
//   - the orders sit on opposite sides
//   - filled + fillSize <= size on both, with overflow-checked addition
//
// Either both returned orders carry the fill or an error is returned and
// neither input is to be persisted. Whether the two prices actually cross is
// deliberately not checked here; that trust is placed in the off-chain
// matcher and the settlement authority.
func ApplyFill(buy, sell Order, fillSize, fillPrice int64, at time.Time) (Order, Order, error) {
	if fillSize <= 0 {
		return Order{}, Order{}, ErrValidation
	}
	if fillPrice < MinPriceBps || fillPrice > MaxPriceBps {
		return Order{}, Order{}, ErrInvalidPrice
	}
	if buy.ID == sell.ID {
		return Order{}, Order{}, ErrValidation
	}
	if buy.MarketID != sell.MarketID {
		return Order{}, Order{}, ErrValidation
	}
	if buy.Side == sell.Side {
		return Order{}, Order{}, ErrValidation
	}

	buyFilled, err := checkedAdd(buy.Filled, fillSize)
	if err != nil {
		return Order{}, Order{}, err
	}
	sellFilled, err := checkedAdd(sell.Filled, fillSize)
	if err != nil {
		return Order{}, Order{}, err
	}
	if buyFilled > buy.Size || sellFilled > sell.Size {
		return Order{}, Order{}, ErrArithmeticFault
	}

	buy.Filled = buyFilled
	buy.Status = statusForFilled(buyFilled, buy.Size)
	buy.UpdatedAt = at
	sell.Filled = sellFilled
	sell.Status = statusForFilled(sellFilled, sell.Size)
	sell.UpdatedAt = at
	return buy, sell, nil
}

// checkedAdd adds two non-negative quantities, trapping overflow instead of
// wrapping.
func checkedAdd(a, b int64) (int64, error) {
	if a > math.MaxInt64-b {
		return 0, ErrArithmeticFault
	}
	return a + b, nil
}
