// Package state holds the two mutable aggregates the engine loop owns:
// PersistentOracleState, which survives every market boundary, and
// MarketState, which is created at market open and torn down ten seconds
// after market close. Nothing outside internal/engine ever mutates either
// one; strategies and the reconciliation pipeline only read from them.
package state

import (
	"github.com/onyxlabs/pmengine/internal/numerics"
)

// PersistentOracleState owns the statistical estimators that benefit from
// running across market boundaries: realized volatility, VWAP and the
// tick-direction regime classifier. Exactly one instance exists for the
// life of the process; it is created once at startup and mutated only by
// the engine task as oracle trades arrive.
type PersistentOracleState struct {
	vol    *numerics.EWMAVolatility
	vwap   *numerics.RollingVWAP
	regime *numerics.RegimeClassifier

	lastPrice float64
	lastTsMs  int64
	hasPrice  bool
}

// NewPersistentOracleState builds the estimator set with the given tuning
// parameters. Pass 0 for any of lambda/sigmaFloorAnnual/vwapWindowMs/
// regimeWindowMs to take the package default from internal/numerics.
func NewPersistentOracleState(lambda, sigmaFloorAnnual float64, vwapWindowMs, regimeWindowMs int64) *PersistentOracleState {
	return &PersistentOracleState{
		vol:    numerics.NewEWMAVolatility(lambda, sigmaFloorAnnual),
		vwap:   numerics.NewRollingVWAP(vwapWindowMs),
		regime: numerics.NewRegimeClassifier(regimeWindowMs),
	}
}

// OnOracleTrade feeds a new oracle print into every persistent estimator.
func (p *PersistentOracleState) OnOracleTrade(price, qty float64, tsMs int64) {
	p.vol.OnTrade(price, tsMs)
	p.vwap.Push(price, qty, tsMs)
	p.regime.OnPrice(price, tsMs)
	p.lastPrice = price
	p.lastTsMs = tsMs
	p.hasPrice = true
}

// Sigma returns the cached per-second realized volatility as of nowMs.
func (p *PersistentOracleState) Sigma(nowMs int64) float64 {
	return p.vol.Sigma(nowMs)
}

// SigmaValid reports whether enough EWMA samples exist to trust Sigma.
func (p *PersistentOracleState) SigmaValid() bool {
	return p.vol.Valid()
}

// EWMASampleCount returns the number of accepted 1-second volatility
// samples since process start. Per-market warmup is measured as the delta
// of this counter against a baseline captured at market entry.
func (p *PersistentOracleState) EWMASampleCount() int {
	return p.vol.SampleCount()
}

// VWAP returns the current rolling volume-weighted average price, and
// whether any volume currently sits in the window.
func (p *PersistentOracleState) VWAP() (float64, bool) {
	return p.vwap.Value()
}

// Regime returns the current tick-direction regime and dominant fraction.
func (p *PersistentOracleState) Regime() (numerics.Regime, float64, bool) {
	return p.regime.Classify()
}

// LastPrice returns the most recently observed oracle price and its
// timestamp. ok is false before the first trade arrives.
func (p *PersistentOracleState) LastPrice() (price float64, tsMs int64, ok bool) {
	return p.lastPrice, p.lastTsMs, p.hasPrice
}
