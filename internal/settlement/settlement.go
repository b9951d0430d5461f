// Package settlement computes binary-outcome PnL once a market resolves.
// PnL must never be computed at fill time: a token purchase looks like a
// cost, not a gain or loss, until the outcome is known.
package settlement

import (
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
)

// FillPnL returns the realized profit or loss of one fill against the
// resolved outcome: (1-price)*size if the fill's side won, -(price*size)
// if it lost.
func FillPnL(f domain.Fill, outcome domain.Outcome) float64 {
	if f.Side.AsOutcome() == outcome {
		return (1 - f.Price) * f.SizeShares
	}
	return -(f.Price * f.SizeShares)
}

// Result is the aggregated outcome of settling one market.
type Result struct {
	MarketSlug  string
	Outcome     domain.Outcome
	MarketPnL   float64
	StrategyPnL map[string]float64
	SettledAt   time.Time
}

// Settle computes market and per-strategy PnL from a market's recorded
// fills and its resolved outcome.
func Settle(marketSlug string, fills []domain.Fill, outcome domain.Outcome, settledAt time.Time) Result {
	res := Result{
		MarketSlug:  marketSlug,
		Outcome:     outcome,
		StrategyPnL: make(map[string]float64),
		SettledAt:   settledAt,
	}
	for _, f := range fills {
		pnl := FillPnL(f, outcome)
		res.MarketPnL += pnl
		res.StrategyPnL[f.StrategyID] += pnl
	}
	return res
}

// ToRecord converts a Result into the durable form persisted by
// domain.SettlementStore.
func (r Result) ToRecord() domain.SettlementRecord {
	return domain.SettlementRecord{
		MarketSlug:  r.MarketSlug,
		Outcome:     r.Outcome,
		MarketPnL:   r.MarketPnL,
		StrategyPnL: r.StrategyPnL,
		SettledAt:   r.SettledAt,
	}
}
