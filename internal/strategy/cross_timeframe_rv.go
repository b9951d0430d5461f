package strategy

import (
	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/state"
)

// CrossTimeframeRVConfig tunes the cross-timeframe realized-vol strategy.
type CrossTimeframeRVConfig struct {
	Enabled bool
	// CrossMarketInputs would carry sibling-market realized-vol readings
	// across expiry windows; until a market-discovery collaborator wires
	// this up there is never more than one, so the strategy self-disables.
	CrossMarketInputs int
}

// DefaultCrossTimeframeRVConfig returns the strategy's documented default:
// disabled, since it depends on inputs the rest of the system does not yet
// provide.
func DefaultCrossTimeframeRVConfig() CrossTimeframeRVConfig {
	return CrossTimeframeRVConfig{Enabled: false, CrossMarketInputs: 0}
}

// CrossTimeframeRV would fit a power-law implied-vol surface across
// multiple expiry windows on the same underlying and trade outliers
// against it. It is disabled by default and self-disables whenever fewer
// than two cross-market inputs exist, which today is always: no
// market-discovery collaborator feeds it siblings yet.
type CrossTimeframeRV struct {
	cfg CrossTimeframeRVConfig
}

// NewCrossTimeframeRV constructs the strategy with the given config.
func NewCrossTimeframeRV(cfg CrossTimeframeRVConfig) *CrossTimeframeRV {
	return &CrossTimeframeRV{cfg: cfg}
}

func (s *CrossTimeframeRV) Name() string { return "cross_timeframe_rv" }

func (s *CrossTimeframeRV) Evaluate(ms *state.MarketState, nowMs int64) (*domain.Signal, domain.GateReason, error) {
	if !s.cfg.Enabled {
		return nil, domain.GateDisabled, nil
	}
	if s.cfg.CrossMarketInputs < 2 {
		return nil, domain.GateInsufficientCrossMarketData, nil
	}
	_ = ms
	_ = nowMs
	return nil, domain.GateInsufficientCrossMarketData, nil
}
