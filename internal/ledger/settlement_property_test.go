package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/probmarket/ledger/internal/domain"
)

// Under any sequence of fills, filled never exceeds size on either order,
// both legs advance in lockstep, and a rejected fill leaves both orders
// exactly as they were.
func TestSettleFillNeverOverfills(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		f := newFixture(t)
		buySize := rapid.Int64Range(1, 1_000).Draw(rt, "buySize")
		sellSize := rapid.Int64Range(1, 1_000).Draw(rt, "sellSize")

		m := f.createMarket(t)
		buy := f.placeOrder(t, m.ID, testAlice, domain.SideYes, 6000, buySize)
		sell := f.placeOrder(t, m.ID, testBob, domain.SideNo, 4000, sellSize)
		ctx := context.Background()

		var filled int64
		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			fillSize := rapid.Int64Range(1, 1_200).Draw(rt, "fillSize")
			fillPrice := rapid.Int64Range(domain.MinPriceBps, domain.MaxPriceBps).Draw(rt, "fillPrice")

			res, err := f.svc.SettleFill(ctx, settleParams(buy, sell, fillSize, fillPrice))
			if err != nil {
				require.True(rt, errors.Is(err, domain.ErrArithmeticFault), "unexpected error: %v", err)
				require.Greater(rt, filled+fillSize, min(buySize, sellSize))
			} else {
				filled += fillSize
				require.Equal(rt, filled, res.Buy.Filled)
				require.Equal(rt, filled, res.Sell.Filled)
			}

			gotBuy, err := f.svc.GetOrder(ctx, buy.ID)
			require.NoError(rt, err)
			gotSell, err := f.svc.GetOrder(ctx, sell.ID)
			require.NoError(rt, err)

			require.Equal(rt, filled, gotBuy.Filled)
			require.Equal(rt, filled, gotSell.Filled)
			require.LessOrEqual(rt, gotBuy.Filled, buySize)
			require.LessOrEqual(rt, gotSell.Filled, sellSize)
			requireStatusMatchesFill(rt, gotBuy)
			requireStatusMatchesFill(rt, gotSell)
		}
	})
}

func requireStatusMatchesFill(rt *rapid.T, o domain.Order) {
	switch {
	case o.Filled == 0:
		require.Equal(rt, domain.OrderStatusPending, o.Status)
	case o.Filled < o.Size:
		require.Equal(rt, domain.OrderStatusPartial, o.Status)
	default:
		require.Equal(rt, domain.OrderStatusFilled, o.Status)
	}
}
