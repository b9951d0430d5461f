package strategy

import (
	"math"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/state"
)

// CertaintyCaptureConfig tunes the certainty-capture strategy.
type CertaintyCaptureConfig struct {
	Enabled    bool
	MinAbsZ    float64
	MinEdge    float64
	CooldownMs int64
	MaxOrders  int
	OrderTTL   time.Duration
}

// DefaultCertaintyCaptureConfig returns the strategy's documented defaults.
func DefaultCertaintyCaptureConfig() CertaintyCaptureConfig {
	return CertaintyCaptureConfig{
		Enabled:    true,
		MinAbsZ:    1.5,
		MinEdge:    0.02,
		CooldownMs: 1000,
		MaxOrders:  15,
		OrderTTL:   10 * time.Second,
	}
}

// CertaintyCapture buys near-certain outcomes when the venue still prices
// residual doubt: it triggers off venue quotes and gates on the drift-free
// z-score rather than raw distance, so it scales naturally with volatility.
type CertaintyCapture struct {
	cfg CertaintyCaptureConfig
}

// NewCertaintyCapture constructs the strategy with the given config.
func NewCertaintyCapture(cfg CertaintyCaptureConfig) *CertaintyCapture {
	return &CertaintyCapture{cfg: cfg}
}

func (s *CertaintyCapture) Name() string { return "certainty_capture" }

func (s *CertaintyCapture) Evaluate(ms *state.MarketState, nowMs int64) (*domain.Signal, domain.GateReason, error) {
	if !s.cfg.Enabled {
		return nil, domain.GateDisabled, nil
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

	var side domain.Side
	var fair, ask float64
	if z > 0 {
		side = domain.Up
		fair = pUp
		ask = ms.Book.Ask(domain.Up)
	} else {
		side = domain.Down
		fair = 1 - pUp
		ask = ms.Book.Ask(domain.Down)
	}

	edge := fair - ask
	if edge < s.cfg.MinEdge {
		return nil, domain.GateEdgeBelowThreshold, nil
	}

	absZ := math.Abs(z)
	var cap float64
	switch {
	case absZ > 3.0:
		cap = 0.05
	case absZ > 2.5:
		cap = 0.03
	default:
		cap = 0.01
	}

	confidence := clamp(absZ/4, 0.5, 0.99)
	sizeFrac := halfKelly(edge, ask, cap)

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
		Reason:     "venue underprices a near-certain outcome",
		CreatedAt:  time.UnixMilli(nowMs),
	}
	return sig, domain.GateNone, nil
}
