package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketIDDeterministic(t *testing.T) {
	a := MarketID("0xAbC", "Will it rain tomorrow?")
	b := MarketID("0xabc", "Will it rain tomorrow?")
	assert.Equal(t, a, b, "creator addresses compare case-insensitively")
	assert.Len(t, a, 64)

	c := MarketID("0xabc", "Will it snow tomorrow?")
	assert.NotEqual(t, a, c)

	d := MarketID("0xdef", "Will it rain tomorrow?")
	assert.NotEqual(t, a, d)
}

func TestOrderIDDeterministic(t *testing.T) {
	market := MarketID("0xabc", "title")
	a := OrderID(market, "0xAAA")
	b := OrderID(market, "0xaaa")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, OrderID(market, "0xbbb"))
}

func TestSeedSeparatorPreventsCollisions(t *testing.T) {
	// The NUL separator keeps ("ab", "c") distinct from ("a", "bc").
	assert.NotEqual(t, MarketID("0xab", "c"), MarketID("0xa", "bc"))
}

func TestSameIdentity(t *testing.T) {
	assert.True(t, SameIdentity("0xAbC", " 0xabc"))
	assert.False(t, SameIdentity("0xabc", "0xdef"))
	assert.False(t, SameIdentity("", ""))
}
