package strategy

import (
	"math"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/numerics"
	"github.com/onyxlabs/pmengine/internal/state"
)

// ConvexityFadeConfig tunes the convexity-fade strategy.
type ConvexityFadeConfig struct {
	Enabled     bool
	MaxDistFrac float64
	MinTauSec   float64
	MinEdge     float64
	PerTradeCap float64
	TotalCap    float64
	CooldownMs  int64
	MaxOrders   int
	Confidence  float64
}

// DefaultConvexityFadeConfig returns the strategy's documented defaults.
func DefaultConvexityFadeConfig() ConvexityFadeConfig {
	return ConvexityFadeConfig{
		Enabled:     true,
		MaxDistFrac: 0.003,
		MinTauSec:   30,
		MinEdge:     0.02,
		PerTradeCap: 0.005,
		TotalCap:    0.03,
		CooldownMs:  2000,
		MaxOrders:   20,
		Confidence:  0.4,
	}
}

// ConvexityFade fades overreactions near the strike, where the option's
// gamma (and therefore the venue's tendency to overshoot on a quote update)
// is highest. It only operates in non-trending regimes: a genuine trend
// through the strike is not an overreaction.
type ConvexityFade struct {
	cfg ConvexityFadeConfig
}

// NewConvexityFade constructs the strategy with the given config.
func NewConvexityFade(cfg ConvexityFadeConfig) *ConvexityFade {
	return &ConvexityFade{cfg: cfg}
}

func (s *ConvexityFade) Name() string { return "convexity_fade" }

func (s *ConvexityFade) Evaluate(ms *state.MarketState, nowMs int64) (*domain.Signal, domain.GateReason, error) {
	if !s.cfg.Enabled {
		return nil, domain.GateDisabled, nil
	}

	regime, _, ok := ms.Oracle.Regime()
	if ok && regime == numerics.RegimeTrend {
		return nil, domain.GateRegimeTrend, nil
	}

	if math.Abs(ms.DistFrac()) > s.cfg.MaxDistFrac {
		return nil, domain.GateDistanceTooFar, nil
	}

	tau := ms.TauEff(nowMs)
	if tau < s.cfg.MinTauSec {
		return nil, domain.GateTauTooShort, nil
	}

	pUp, ok := ms.PFairUp(nowMs)
	if !ok {
		return nil, domain.GateSigmaInvalid, nil
	}
	pDown := 1 - pUp

	upBid := ms.Book.Bid(domain.Up)
	downBid := ms.Book.Bid(domain.Down)

	upEdge := pUp - upBid
	downEdge := pDown - downBid

	side := domain.Up
	fair := pUp
	postPrice := upBid
	edge := upEdge
	if downEdge > upEdge {
		side = domain.Down
		fair = pDown
		postPrice = downBid
		edge = downEdge
	}

	if edge < s.cfg.MinEdge {
		return nil, domain.GateEdgeBelowThreshold, nil
	}

	sizeFrac := halfKelly(edge, postPrice, s.cfg.PerTradeCap)

	sig := &domain.Signal{
		StrategyID: s.Name(),
		Side:       side,
		IsPassive:  false,
		UseBid:     true,
		Edge:       edge,
		Confidence: s.cfg.Confidence,
		SizeFrac:   sizeFrac,
		Fair:       fair,
		Ask:        postPrice,
		Reason:     "ATM overreaction in a non-trending regime",
		CreatedAt:  time.UnixMilli(nowMs),
	}
	return sig, domain.GateNone, nil
}
