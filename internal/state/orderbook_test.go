package state

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/onyxlabs/pmengine/internal/domain"
)

func TestApplyBookDerivesBestBidAsk(t *testing.T) {
	var b OrderBook
	b.ApplyBook(domain.VenueBook{
		TsMs: 100,
		Side: domain.Up,
		Levels: []domain.PriceLevel{
			{Price: 0.45, Size: 10, IsBid: true},
			{Price: 0.47, Size: 5, IsBid: true},
			{Price: 0.51, Size: 8},
			{Price: 0.53, Size: 12},
		},
	})

	assert.Equal(t, 0.47, b.Bid(domain.Up))
	assert.Equal(t, 0.51, b.Ask(domain.Up))
}

func TestApplyBookResetsBestWhenSideEmpty(t *testing.T) {
	var b OrderBook
	b.ApplyBook(domain.VenueBook{Side: domain.Down, Levels: []domain.PriceLevel{
		{Price: 0.4, Size: 10, IsBid: true},
		{Price: 0.42, Size: 10},
	}})
	assert.Equal(t, 0.4, b.Bid(domain.Down))

	b.ApplyBook(domain.VenueBook{Side: domain.Down, Levels: []domain.PriceLevel{
		{Price: 0.41, Size: 10, IsBid: true},
	}})
	assert.Equal(t, 0.41, b.Bid(domain.Down))
	assert.Equal(t, 0.0, b.Ask(domain.Down))
}

func TestApplyQuoteDoesNotTouchOtherSide(t *testing.T) {
	var b OrderBook
	b.ApplyQuote(domain.VenueQuote{Side: domain.Up, BestBid: 0.4, BestAsk: 0.42})
	assert.Equal(t, 0.4, b.Bid(domain.Up))
	assert.Equal(t, 0.0, b.Bid(domain.Down))
}
