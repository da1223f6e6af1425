package ledger

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/probmarket/ledger/internal/domain"
)

func TestCreateMarketInitialState(t *testing.T) {
	f := newFixture(t)

	m := f.createMarket(t)

	assert.Equal(t, domain.MarketID(testCreator, m.Title), m.ID)
	assert.Equal(t, testCreator, m.Creator)
	assert.True(t, m.IsActive)
	assert.False(t, m.IsResolved)
	assert.Nil(t, m.Resolution)
	assert.Zero(t, m.YesTokenSupply)
	assert.Zero(t, m.NoTokenSupply)

	got, err := f.svc.GetMarket(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestCreateMarketDuplicateKeyFails(t *testing.T) {
	f := newFixture(t)

	m := f.createMarket(t)

	// Same (creator, title) addresses the same record regardless of expiry.
	_, err := f.svc.CreateMarket(context.Background(), CreateMarketParams{
		Creator:         strings.ToUpper(testCreator),
		Title:           m.Title,
		Description:     "different description",
		ExpiryTimestamp: f.now.Add(48 * time.Hour).Unix(),
	})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestCreateMarketValidation(t *testing.T) {
	f := newFixture(t)
	expiry := f.now.Add(time.Hour).Unix()

	tests := []struct {
		name   string
		params CreateMarketParams
	}{
		{"empty creator", CreateMarketParams{Title: "t", ExpiryTimestamp: expiry}},
		{"empty title", CreateMarketParams{Creator: testCreator, ExpiryTimestamp: expiry}},
		{"blank title", CreateMarketParams{Creator: testCreator, Title: "   ", ExpiryTimestamp: expiry}},
		{
			"title too long",
			CreateMarketParams{
				Creator:         testCreator,
				Title:           strings.Repeat("x", domain.MaxTitleBytes+1),
				ExpiryTimestamp: expiry,
			},
		},
		{
			"description too long",
			CreateMarketParams{
				Creator:         testCreator,
				Title:           "t",
				Description:     strings.Repeat("x", domain.MaxDescriptionBytes+1),
				ExpiryTimestamp: expiry,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateMarket(context.Background(), tc.params)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestCreateMarketEmitsNoEvent(t *testing.T) {
	f := newFixture(t)

	f.createMarket(t)

	// Markets are discoverable by querying the registry; only orders push
	// notifications.
	assert.Empty(t, f.streamEvents(t, domain.ChannelOrders))
	assert.Empty(t, f.streamEvents(t, domain.ChannelFills))
	assert.Empty(t, f.streamEvents(t, domain.ChannelResolutions))
}

func TestListMarkets(t *testing.T) {
	f := newFixture(t)

	m := f.createMarket(t)
	f.advance(time.Second)
	_, err := f.svc.CreateMarket(context.Background(), CreateMarketParams{
		Creator:         testCreator,
		Title:           "Second question",
		ExpiryTimestamp: f.now.Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	ms, err := f.svc.ListMarkets(context.Background(), domain.ListOpts{})
	require.NoError(t, err)
	require.Len(t, ms, 2)
	assert.Equal(t, m.ID, ms[0].ID)
}
