package state

import "github.com/onyxlabs/pmengine/internal/domain"

// SideBook is the best bid/ask and depth snapshot for one side of the venue
// CLOB (Up or Down).
type SideBook struct {
	BestBid float64
	BestAsk float64
	Levels  []domain.PriceLevel
	TsMs    int64
}

// OrderBook holds independent Up and Down side books. The two sides settle
// against different tokens and never cross each other directly.
type OrderBook struct {
	Up   SideBook
	Down SideBook
}

// ApplyQuote updates the best bid/ask for a side from a top-of-book event.
func (b *OrderBook) ApplyQuote(q domain.VenueQuote) {
	sb := b.side(q.Side)
	sb.BestBid = q.BestBid
	sb.BestAsk = q.BestAsk
	sb.TsMs = q.TsMs
}

// ApplyBook replaces the depth snapshot for a side and re-derives its best
// bid/ask from the new levels: the venue sends full depth on this event,
// not just the top, so the previous best_bid/best_ask must not survive
// unchanged when a stale-priced level is dropped or a fresher one appears.
func (b *OrderBook) ApplyBook(bk domain.VenueBook) {
	sb := b.side(bk.Side)
	sb.TsMs = bk.TsMs
	sb.Levels = bk.Levels

	sb.BestBid = 0
	sb.BestAsk = 0
	for _, lvl := range bk.Levels {
		if lvl.IsBid {
			if lvl.Price > sb.BestBid {
				sb.BestBid = lvl.Price
			}
		} else {
			if sb.BestAsk == 0 || lvl.Price < sb.BestAsk {
				sb.BestAsk = lvl.Price
			}
		}
	}
}

func (b *OrderBook) side(s domain.Side) *SideBook {
	if s == domain.Up {
		return &b.Up
	}
	return &b.Down
}

// Ask returns the current best ask for a side.
func (b *OrderBook) Ask(s domain.Side) float64 {
	return b.side(s).BestAsk
}

// Bid returns the current best bid for a side.
func (b *OrderBook) Bid(s domain.Side) float64 {
	return b.side(s).BestBid
}
