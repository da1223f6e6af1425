package ledger

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probmarket/ledger/internal/domain"
)

// settleParams builds valid settlement params for the given pair.
func settleParams(buy, sell domain.Order, size, price int64) SettleFillParams {
	return SettleFillParams{
		Caller:      testAuthority,
		BuyOrderID:  buy.ID,
		SellOrderID: sell.ID,
		FillSize:    size,
		FillPrice:   price,
	}
}

func TestSettleFillLifecycle(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	a := f.placeOrder(t, m.ID, testAlice, domain.SideYes, 6000, 100)
	b := f.placeOrder(t, m.ID, testBob, domain.SideNo, 4000, 100)
	ctx := context.Background()

	res, err := f.svc.SettleFill(ctx, settleParams(a, b, 40, 6000))
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.Buy.Filled)
	assert.Equal(t, domain.OrderStatusPartial, res.Buy.Status)
	assert.Equal(t, int64(40), res.Sell.Filled)
	assert.Equal(t, domain.OrderStatusPartial, res.Sell.Status)

	res, err = f.svc.SettleFill(ctx, settleParams(a, b, 60, 6000))
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Buy.Filled)
	assert.Equal(t, domain.OrderStatusFilled, res.Buy.Status)
	assert.Equal(t, int64(100), res.Sell.Filled)
	assert.Equal(t, domain.OrderStatusFilled, res.Sell.Status)

	// Both orders are fully filled; any further settlement is a fault.
	_, err = f.svc.SettleFill(ctx, settleParams(a, b, 1, 6000))
	assert.ErrorIs(t, err, domain.ErrArithmeticFault)
}

func TestSettleFillRequiresAuthority(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	a := f.placeOrder(t, m.ID, testAlice, domain.SideYes, 6000, 100)
	b := f.placeOrder(t, m.ID, testBob, domain.SideNo, 4000, 100)

	p := settleParams(a, b, 40, 6000)
	p.Caller = testAlice // an order owner cannot self-settle
	_, err := f.svc.SettleFill(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	p.Caller = ""
	_, err = f.svc.SettleFill(context.Background(), p)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestSettleFillPreconditions(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	a := f.placeOrder(t, m.ID, testAlice, domain.SideYes, 6000, 100)
	b := f.placeOrder(t, m.ID, testBob, domain.SideNo, 4000, 100)
	ctx := context.Background()

	t.Run("zero fill size", func(t *testing.T) {
		_, err := f.svc.SettleFill(ctx, settleParams(a, b, 0, 6000))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("price out of range", func(t *testing.T) {
		_, err := f.svc.SettleFill(ctx, settleParams(a, b, 10, 10001))
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	})

	t.Run("same order on both legs", func(t *testing.T) {
		p := settleParams(a, a, 10, 6000)
		_, err := f.svc.SettleFill(ctx, p)
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("unknown order", func(t *testing.T) {
		p := settleParams(a, b, 10, 6000)
		p.SellOrderID = "no-such-order"
		_, err := f.svc.SettleFill(ctx, p)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("orders on different markets", func(t *testing.T) {
		m2, err := f.svc.CreateMarket(ctx, CreateMarketParams{
			Creator:         testCreator,
			Title:           "Another question",
			ExpiryTimestamp: f.now.Add(time.Hour).Unix(),
		})
		require.NoError(t, err)
		c := f.placeOrder(t, m2.ID, testBob, domain.SideNo, 4000, 100)

		_, err = f.svc.SettleFill(ctx, settleParams(a, c, 10, 6000))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})

	t.Run("orders on the same side", func(t *testing.T) {
		m3, err := f.svc.CreateMarket(ctx, CreateMarketParams{
			Creator:         testCreator,
			Title:           "Same side question",
			ExpiryTimestamp: f.now.Add(time.Hour).Unix(),
		})
		require.NoError(t, err)
		x := f.placeOrder(t, m3.ID, testAlice, domain.SideYes, 6000, 100)
		y := f.placeOrder(t, m3.ID, testBob, domain.SideYes, 6500, 100)

		_, err = f.svc.SettleFill(ctx, settleParams(x, y, 10, 6000))
		assert.ErrorIs(t, err, domain.ErrValidation)
	})
}

func TestSettleFillAtomicOnFailure(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	a := f.placeOrder(t, m.ID, testAlice, domain.SideYes, 6000, 100)
	b := f.placeOrder(t, m.ID, testBob, domain.SideNo, 4000, 30)
	ctx := context.Background()

	// The fill fits the buy order but exceeds the sell order; neither may
	// change.
	_, err := f.svc.SettleFill(ctx, settleParams(a, b, 50, 6000))
	require.ErrorIs(t, err, domain.ErrArithmeticFault)

	gotA, err := f.svc.GetOrder(ctx, a.ID)
	require.NoError(t, err)
	gotB, err := f.svc.GetOrder(ctx, b.ID)
	require.NoError(t, err)
	assert.Zero(t, gotA.Filled)
	assert.Equal(t, domain.OrderStatusPending, gotA.Status)
	assert.Zero(t, gotB.Filled)
	assert.Equal(t, domain.OrderStatusPending, gotB.Status)

	// No event escaped the failed settlement.
	assert.Empty(t, f.streamEvents(t, domain.ChannelFills))
}

func TestSettleFillEmitsFillSettled(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	a := f.placeOrder(t, m.ID, testAlice, domain.SideYes, 6000, 100)
	b := f.placeOrder(t, m.ID, testBob, domain.SideNo, 4000, 100)

	_, err := f.svc.SettleFill(context.Background(), settleParams(a, b, 40, 6000))
	require.NoError(t, err)

	envs := f.streamEvents(t, domain.ChannelFills)
	require.Len(t, envs, 1)
	assert.Equal(t, domain.EventFillSettled, envs[0].Type)

	var ev domain.FillSettled
	require.NoError(t, json.Unmarshal(envs[0].Data, &ev))
	assert.Equal(t, domain.FillSettled{
		BuyOrderID:  a.ID,
		SellOrderID: b.ID,
		MarketID:    m.ID,
		FillSize:    40,
		FillPrice:   6000,
	}, ev)
}
