package ledger

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probmarket/ledger/internal/domain"
)

func TestResolveBeforeExpiryFails(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	ctx := context.Background()

	// Expiry gates before the creator check: even the creator cannot
	// resolve early, and a stranger gets the same error.
	_, err := f.svc.Resolve(ctx, m.ID, testCreator, true)
	assert.ErrorIs(t, err, domain.ErrMarketNotExpired)

	_, err = f.svc.Resolve(ctx, m.ID, testAlice, true)
	assert.ErrorIs(t, err, domain.ErrMarketNotExpired)
}

func TestResolveRequiresCreator(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	f.advance(2 * time.Hour)

	_, err := f.svc.Resolve(context.Background(), m.ID, testAlice, true)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestResolveStampsOutcome(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	f.advance(2 * time.Hour)
	ctx := context.Background()

	// Creator identity compares case-insensitively.
	resolved, err := f.svc.Resolve(ctx, m.ID, strings.ToUpper(testCreator), false)
	require.NoError(t, err)
	assert.True(t, resolved.IsResolved)
	require.NotNil(t, resolved.Resolution)
	assert.False(t, *resolved.Resolution)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, f.now, *resolved.ResolvedAt)

	got, err := f.svc.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, resolved, got)
}

func TestResolveIsOneWay(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	f.advance(2 * time.Hour)
	ctx := context.Background()

	_, err := f.svc.Resolve(ctx, m.ID, testCreator, true)
	require.NoError(t, err)

	// A repeat resolve fails first, before expiry or creator checks, and
	// cannot flip the outcome.
	_, err = f.svc.Resolve(ctx, m.ID, testCreator, false)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	_, err = f.svc.Resolve(ctx, m.ID, testAlice, false)
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)

	got, err := f.svc.GetMarket(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Resolution)
	assert.True(t, *got.Resolution)
}

func TestResolveUnknownMarket(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Resolve(context.Background(), "no-such-market", testCreator, true)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveEmitsMarketResolved(t *testing.T) {
	f := newFixture(t)
	m := f.createMarket(t)
	f.advance(2 * time.Hour)

	_, err := f.svc.Resolve(context.Background(), m.ID, testCreator, true)
	require.NoError(t, err)

	envs := f.streamEvents(t, domain.ChannelResolutions)
	require.Len(t, envs, 1)
	assert.Equal(t, domain.EventMarketResolved, envs[0].Type)

	var ev domain.MarketResolved
	require.NoError(t, json.Unmarshal(envs[0].Data, &ev))
	assert.Equal(t, domain.MarketResolved{MarketID: m.ID, Outcome: true}, ev)
}
