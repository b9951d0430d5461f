package strategy

import (
	"math"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/numerics"
	"github.com/onyxlabs/pmengine/internal/state"
)

// StrikeMisalignConfig tunes the strike-misalign strategy.
type StrikeMisalignConfig struct {
	Enabled     bool
	WindowMs    int64
	MinAbsDP    float64
	MinEdge     float64
	PerTradeCap float64
	TotalCap    float64
	CooldownMs  int64
	MaxOrders   int
}

// DefaultStrikeMisalignConfig returns the strategy's documented defaults.
func DefaultStrikeMisalignConfig() StrikeMisalignConfig {
	return StrikeMisalignConfig{
		Enabled:     true,
		WindowMs:    15_000,
		MinAbsDP:    0.02,
		MinEdge:     0.02,
		PerTradeCap: 0.02,
		TotalCap:    0.04,
		CooldownMs:  500,
		MaxOrders:   5,
	}
}

// StrikeMisalign corrects strike-setting bias in the first moments of a
// market by comparing the strike against the rolling VWAP rather than the
// latest print, which is noisier right after market open.
type StrikeMisalign struct {
	cfg StrikeMisalignConfig
}

// NewStrikeMisalign constructs the strategy with the given config.
func NewStrikeMisalign(cfg StrikeMisalignConfig) *StrikeMisalign {
	return &StrikeMisalign{cfg: cfg}
}

func (s *StrikeMisalign) Name() string { return "strike_misalign" }

func (s *StrikeMisalign) Evaluate(ms *state.MarketState, nowMs int64) (*domain.Signal, domain.GateReason, error) {
	if !s.cfg.Enabled {
		return nil, domain.GateDisabled, nil
	}
	if !ms.InOpeningWindow(nowMs, s.cfg.WindowMs) {
		return nil, domain.GateOutsideOpeningWindow, nil
	}

	vwap, ok := ms.Oracle.VWAP()
	if !ok {
		return nil, domain.GateVWAPUnavailable, nil
	}

	sigma := ms.Oracle.Sigma(nowMs)
	if !ms.Oracle.SigmaValid() || sigma <= 0 {
		return nil, domain.GateSigmaInvalid, nil
	}
	tau := ms.TauEff(nowMs)

	epsilon := ms.Ctx.Strike - vwap
	d2 := numerics.D2(vwap, ms.Ctx.Strike, sigma, tau)
	sensitivity := numerics.PDF(d2) / (vwap * sigma * math.Sqrt(tau))
	dP := -sensitivity * epsilon

	if math.Abs(dP) < s.cfg.MinAbsDP {
		return nil, domain.GateEdgeBelowThreshold, nil
	}

	side := domain.Down
	if dP > 0 {
		side = domain.Up
	}

	pUp := numerics.PFairUp(d2)
	var fair, ask float64
	if side == domain.Up {
		fair = pUp
		ask = ms.Book.Bid(domain.Up)
	} else {
		fair = 1 - pUp
		ask = ms.Book.Bid(domain.Down)
	}

	edge := fair - ask
	if edge < s.cfg.MinEdge {
		return nil, domain.GateEdgeBelowThreshold, nil
	}

	sizeFrac := halfKelly(edge, ask, s.cfg.PerTradeCap)

	sig := &domain.Signal{
		StrategyID: s.Name(),
		Side:       side,
		IsPassive:  false,
		UseBid:     true,
		Edge:       edge,
		Confidence: clamp(math.Abs(dP)/0.10, 0.3, 0.8),
		SizeFrac:   sizeFrac,
		Fair:       fair,
		Ask:        ask,
		Reason:     "VWAP indicates the strike was set off the true open",
		CreatedAt:  time.UnixMilli(nowMs),
	}
	return sig, domain.GateNone, nil
}
