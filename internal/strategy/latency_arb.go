package strategy

import (
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/state"
)

// LatencyArbConfig tunes the latency-arb strategy's gates and sizing.
type LatencyArbConfig struct {
	Enabled     bool
	MinEdge     float64
	PerTradeCap float64
	TotalCap    float64
	CooldownMs  int64
	MaxOrders   int
}

// DefaultLatencyArbConfig returns the strategy's documented defaults.
func DefaultLatencyArbConfig() LatencyArbConfig {
	return LatencyArbConfig{
		Enabled:     true,
		MinEdge:     0.03,
		PerTradeCap: 0.02,
		TotalCap:    0.08,
		CooldownMs:  200,
		MaxOrders:   50,
	}
}

// LatencyArb exploits the venue's lagged reaction to oracle moves: it fires
// on every oracle trade, comparing the freshly repriced fair value against
// the venue's still-stale ask on both sides.
type LatencyArb struct {
	cfg LatencyArbConfig
}

// NewLatencyArb constructs the strategy with the given config.
func NewLatencyArb(cfg LatencyArbConfig) *LatencyArb {
	return &LatencyArb{cfg: cfg}
}

func (s *LatencyArb) Name() string { return "latency_arb" }

// Evaluate picks the side (Up or Down) whose fair-minus-ask edge is larger
// and fires an aggressive IOC if it clears the minimum edge gate.
func (s *LatencyArb) Evaluate(ms *state.MarketState, nowMs int64) (*domain.Signal, domain.GateReason, error) {
	if !s.cfg.Enabled {
		return nil, domain.GateDisabled, nil
	}

	pUp, ok := ms.PFairUp(nowMs)
	if !ok {
		return nil, domain.GateSigmaInvalid, nil
	}
	pDown := 1 - pUp

	upAsk := ms.Book.Ask(domain.Up)
	downAsk := ms.Book.Ask(domain.Down)

	upEdge := pUp - upAsk
	downEdge := pDown - downAsk

	side := domain.Up
	fair := pUp
	ask := upAsk
	edge := upEdge
	if downEdge > upEdge {
		side = domain.Down
		fair = pDown
		ask = downAsk
		edge = downEdge
	}

	if edge < s.cfg.MinEdge {
		return nil, domain.GateEdgeBelowThreshold, nil
	}

	confidence := clamp(edge/0.10, 0.3, 1.0)
	sizeFrac := halfKelly(edge, ask, s.cfg.PerTradeCap)

	sig := &domain.Signal{
		StrategyID: s.Name(),
		Side:       side,
		IsPassive:  false,
		UseBid:     false,
		Edge:       edge,
		Confidence: confidence,
		SizeFrac:   sizeFrac,
		Fair:       fair,
		Ask:        ask,
		Reason:     "oracle repriced faster than venue quote",
		CreatedAt:  time.UnixMilli(nowMs),
	}
	return sig, domain.GateNone, nil
}
