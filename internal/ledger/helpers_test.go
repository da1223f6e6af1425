package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/probmarket/ledger/internal/domain"
	"github.com/probmarket/ledger/internal/events"
	"github.com/probmarket/ledger/internal/store/memory"
)

const (
	testAuthority = "0x00000000000000000000000000000000000000aa"
	testCreator   = "0x00000000000000000000000000000000000000cc"
	testAlice     = "0x0000000000000000000000000000000000000001"
	testBob       = "0x0000000000000000000000000000000000000002"
)

// fixture bundles a Service over in-memory dependencies with a controllable
// clock.
type fixture struct {
	svc    *Service
	orders *memory.OrderStore
	audit  *memory.AuditStore
	bus    *events.MemoryBus
	now    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		orders: memory.NewOrderStore(),
		audit:  memory.NewAuditStore(),
		bus:    events.NewMemoryBus(),
		now:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := slog.New(slog.DiscardHandler)
	f.svc = New(memory.NewMarketStore(), f.orders, f.audit, f.bus, testAuthority, logger).
		WithClock(func() time.Time { return f.now })
	return f
}

// advance moves the fixture clock forward.
func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// createMarket creates a market expiring one hour after the fixture clock.
func (f *fixture) createMarket(t *testing.T) domain.Market {
	t.Helper()
	m, err := f.svc.CreateMarket(context.Background(), CreateMarketParams{
		Creator:         testCreator,
		Title:           "Will the rocket launch this quarter?",
		Description:     "Resolves yes on any successful launch.",
		ExpiryTimestamp: f.now.Add(time.Hour).Unix(),
	})
	require.NoError(t, err)
	return m
}

// placeOrder places an order for user on the given market.
func (f *fixture) placeOrder(t *testing.T, marketID, user string, side domain.Side, price, size int64) domain.Order {
	t.Helper()
	o, err := f.svc.PlaceOrder(context.Background(), PlaceOrderParams{
		MarketID:  marketID,
		User:      user,
		Side:      side,
		OrderType: domain.OrderTypeLimit,
		Price:     price,
		Size:      size,
	})
	require.NoError(t, err)
	return o
}

// streamEvents decodes all envelopes appended to the given stream.
func (f *fixture) streamEvents(t *testing.T, channel string) []domain.Envelope {
	t.Helper()
	msgs, err := f.bus.StreamRead(context.Background(), channel, "0", 0)
	require.NoError(t, err)

	out := make([]domain.Envelope, 0, len(msgs))
	for _, m := range msgs {
		var env domain.Envelope
		require.NoError(t, json.Unmarshal(m.Payload, &env))
		out = append(out, env)
	}
	return out
}
