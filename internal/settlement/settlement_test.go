package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/onyxlabs/pmengine/internal/domain"
)

func TestFillPnLWinningSide(t *testing.T) {
	f := domain.Fill{Side: domain.Up, Price: 0.4, SizeShares: 10}
	assert.Equal(t, (1-0.4)*10, FillPnL(f, domain.OutcomeUp))
}

func TestFillPnLLosingSide(t *testing.T) {
	f := domain.Fill{Side: domain.Up, Price: 0.4, SizeShares: 10}
	assert.Equal(t, -(0.4 * 10), FillPnL(f, domain.OutcomeDown))
}

func TestSettleAggregatesPerStrategy(t *testing.T) {
	fills := []domain.Fill{
		{StrategyID: "certainty_capture", Side: domain.Up, Price: 0.3, SizeShares: 10},
		{StrategyID: "certainty_capture", Side: domain.Down, Price: 0.6, SizeShares: 5},
		{StrategyID: "lp_extreme", Side: domain.Up, Price: 0.2, SizeShares: 20},
	}
	res := Settle("eth-updown-1", fills, domain.OutcomeUp, time.Unix(0, 0))

	ccWant := (1-0.3)*10 - (0.6 * 5)
	lpWant := (1 - 0.2) * 20
	assert.Equal(t, ccWant, res.StrategyPnL["certainty_capture"])
	assert.Equal(t, lpWant, res.StrategyPnL["lp_extreme"])
	assert.Equal(t, ccWant+lpWant, res.MarketPnL)
}

func TestResultToRecordRoundTrips(t *testing.T) {
	now := time.Unix(1000, 0)
	res := Result{
		MarketSlug:  "eth-updown-1",
		Outcome:     domain.OutcomeDown,
		MarketPnL:   -5,
		StrategyPnL: map[string]float64{"lp_extreme": -5},
		SettledAt:   now,
	}
	rec := res.ToRecord()
	assert.Equal(t, res.MarketSlug, rec.MarketSlug)
	assert.Equal(t, res.Outcome, rec.Outcome)
	assert.Equal(t, res.MarketPnL, rec.MarketPnL)
}
