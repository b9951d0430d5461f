package state

import "github.com/onyxlabs/pmengine/internal/domain"

// PositionTracker accumulates fills for one market and the exposure they
// represent, broken out per strategy. Exposure is USD paid, not shares: it
// is what the risk manager's max_exposure gate compares against bankroll.
type PositionTracker struct {
	fills              []domain.Fill
	exposureByStrategy map[string]float64
	totalExposure      float64
}

// NewPositionTracker returns an empty tracker.
func NewPositionTracker() *PositionTracker {
	return &PositionTracker{exposureByStrategy: make(map[string]float64)}
}

// RecordFill appends a fill and updates strategy/total exposure.
func (p *PositionTracker) RecordFill(f domain.Fill) {
	p.fills = append(p.fills, f)
	notional := f.Price * f.SizeShares
	p.exposureByStrategy[f.StrategyID] += notional
	p.totalExposure += notional
}

// Fills returns every recorded fill for this market, in recording order.
func (p *PositionTracker) Fills() []domain.Fill {
	return p.fills
}

// FillsByStrategy filters Fills to one strategy.
func (p *PositionTracker) FillsByStrategy(strategyID string) []domain.Fill {
	out := make([]domain.Fill, 0, len(p.fills))
	for _, f := range p.fills {
		if f.StrategyID == strategyID {
			out = append(out, f)
		}
	}
	return out
}

// TotalExposure returns the sum of exposure across every strategy.
func (p *PositionTracker) TotalExposure() float64 {
	return p.totalExposure
}

// StrategyExposure returns the USD exposure attributed to one strategy.
func (p *PositionTracker) StrategyExposure(strategyID string) float64 {
	return p.exposureByStrategy[strategyID]
}
