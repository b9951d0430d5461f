package strategy

import (
	"math"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/numerics"
	"github.com/onyxlabs/pmengine/internal/state"
)

// LPExtremeConfig tunes the LP-extreme strategy.
type LPExtremeConfig struct {
	Enabled      bool
	MinTauSec    float64
	MinAbsZ      float64
	MaxLosingAsk float64
	MinEdge      float64
	MinSizeFrac  float64
	MaxSizeFrac  float64
	CooldownMs   int64
	MaxOrders    int
}

// DefaultLPExtremeConfig returns the strategy's documented defaults.
func DefaultLPExtremeConfig() LPExtremeConfig {
	return LPExtremeConfig{
		Enabled:      true,
		MinTauSec:    60,
		MinAbsZ:      1.5,
		MaxLosingAsk: 0.25,
		MinEdge:      0.02,
		MinSizeFrac:  0.001,
		MaxSizeFrac:  0.02,
		CooldownMs:   2000,
		MaxOrders:    10,
	}
}

// LPExtreme provides liquidity on the near-zero "losing" side of a market
// where directional market makers have already retreated, capturing the
// spread on tail probability others are unwilling to quote. It is the only
// strategy marked passive: its thesis is holding the losing side's tail
// probability, not betting the house direction, so it is exempt from
// house-side enforcement.
type LPExtreme struct {
	cfg LPExtremeConfig
}

// NewLPExtreme constructs the strategy with the given config.
func NewLPExtreme(cfg LPExtremeConfig) *LPExtreme {
	return &LPExtreme{cfg: cfg}
}

func (s *LPExtreme) Name() string { return "lp_extreme" }

func (s *LPExtreme) Evaluate(ms *state.MarketState, nowMs int64) (*domain.Signal, domain.GateReason, error) {
	if !s.cfg.Enabled {
		return nil, domain.GateDisabled, nil
	}

	sigma := ms.Oracle.Sigma(nowMs)
	if !ms.Oracle.SigmaValid() || sigma <= 0 {
		return nil, domain.GateSigmaInvalid, nil
	}
	if ms.TauEff(nowMs) < s.cfg.MinTauSec {
		return nil, domain.GateTauTooShort, nil
	}

	regime, _, ok := ms.Oracle.Regime()
	if ok && regime == numerics.RegimeTrend {
		return nil, domain.GateRegimeTrend, nil
	}

	z, ok := ms.Z(nowMs)
	if !ok {
		return nil, domain.GateSigmaInvalid, nil
	}
	if math.Abs(z) < s.cfg.MinAbsZ {
		return nil, domain.GateZBelowThreshold, nil
	}

	pUp, ok := ms.PFairUp(nowMs)
	if !ok {
		return nil, domain.GateSigmaInvalid, nil
	}

	losingSide := domain.Up
	trueProb := pUp
	if z > 0 {
		losingSide = domain.Down
		trueProb = 1 - pUp
	}

	losingAsk := ms.Book.Ask(losingSide)
	if losingAsk >= s.cfg.MaxLosingAsk {
		return nil, domain.GateAskTooHigh, nil
	}

	edge := trueProb - losingAsk
	if edge < s.cfg.MinEdge {
		return nil, domain.GateEdgeBelowThreshold, nil
	}

	if losingAsk <= 0 || losingAsk >= 1 {
		return nil, domain.GateSigmaInvalid, nil
	}
	fStar := trueProb - (1-trueProb)*(1-losingAsk)/losingAsk
	sizeFrac := clamp(0.5*fStar, s.cfg.MinSizeFrac, s.cfg.MaxSizeFrac)

	sig := &domain.Signal{
		StrategyID: s.Name(),
		Side:       losingSide,
		IsPassive:  true,
		UseBid:     false,
		Edge:       edge,
		Confidence: clamp(math.Abs(z)/4, 0.4, 0.9),
		SizeFrac:   sizeFrac,
		Fair:       trueProb,
		Ask:        losingAsk,
		Reason:     "quoting tail probability the house has retreated from",
		CreatedAt:  time.UnixMilli(nowMs),
	}
	return sig, domain.GateNone, nil
}
