package state

import (
	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/numerics"
)

// MarketState is the aggregate every strategy reads from during one
// market's lifetime. It is created at market open and discarded ten
// seconds after market close; the engine task is its sole owner and
// mutator.
type MarketState struct {
	Ctx domain.MarketContext

	Oracle *PersistentOracleState

	Book      OrderBook
	Positions *PositionTracker

	houseSide    domain.Side
	houseSideSet bool

	// warmupBaseline is Oracle.EWMASampleCount() captured at market entry.
	warmupBaseline int

	// OracleDeltaS and Beta are the oracle-basis tuning knobs threaded
	// through from configuration.
	OracleDeltaS float64
	Beta         float64

	// LastOracleTsMs and LastVenueTsMs back the engine's stale-feed check.
	LastOracleTsMs int64
	LastVenueTsMs  int64
}

// NewMarketState creates per-market state attached to the shared persistent
// oracle estimators. It records Oracle.EWMASampleCount() at the moment of
// the call as the market's warmup baseline.
func NewMarketState(ctx domain.MarketContext, oracle *PersistentOracleState, oracleDeltaS, beta float64) *MarketState {
	return &MarketState{
		Ctx:            ctx,
		Oracle:         oracle,
		Positions:      NewPositionTracker(),
		warmupBaseline: oracle.EWMASampleCount(),
		OracleDeltaS:   oracleDeltaS,
		Beta:           beta,
	}
}

// WarmupSamples returns the number of fresh EWMA samples accumulated since
// this market was entered.
func (m *MarketState) WarmupSamples() int {
	return m.Oracle.EWMASampleCount() - m.warmupBaseline
}

// WarmupComplete reports whether the per-market warmup threshold has been
// reached.
func (m *MarketState) WarmupComplete(minSamples int) bool {
	return m.WarmupSamples() >= minSamples
}

// HouseSide returns the locked directional bias for this market, if any.
func (m *MarketState) HouseSide() (domain.Side, bool) {
	return m.houseSide, m.houseSideSet
}

// SetHouseSide locks the house side. Once set it is immutable until the
// market closes; callers must not call this a second time with a different
// side.
func (m *MarketState) SetHouseSide(s domain.Side) {
	if m.houseSideSet {
		return
	}
	m.houseSide = s
	m.houseSideSet = true
}

// ElapsedMs returns milliseconds since market start.
func (m *MarketState) ElapsedMs(nowMs int64) int64 {
	return nowMs - m.Ctx.StartMs
}

// TimeLeftMs returns milliseconds until nominal market end. Can go negative
// past end_ms.
func (m *MarketState) TimeLeftMs(nowMs int64) int64 {
	return m.Ctx.EndMs - nowMs
}

// TauEff returns the oracle-basis-adjusted time-to-expiry in seconds.
func (m *MarketState) TauEff(nowMs int64) float64 {
	nominalTauSec := float64(m.TimeLeftMs(nowMs)) / 1000.0
	return numerics.TauEff(nominalTauSec, m.OracleDeltaS)
}

// SEff returns the oracle-basis-adjusted price.
func (m *MarketState) SEff() float64 {
	price, _, _ := m.Oracle.LastPrice()
	return numerics.SEff(price, m.Beta)
}

// Distance returns S_eff - K.
func (m *MarketState) Distance() float64 {
	return m.SEff() - m.Ctx.Strike
}

// DistFrac returns (S_eff - K) / K.
func (m *MarketState) DistFrac() float64 {
	if m.Ctx.Strike == 0 {
		return 0
	}
	return m.Distance() / m.Ctx.Strike
}

// PFairUp returns the fair probability of Up at nowMs, and whether sigma is
// currently valid enough to trust it.
func (m *MarketState) PFairUp(nowMs int64) (float64, bool) {
	sigma := m.Oracle.Sigma(nowMs)
	if !m.Oracle.SigmaValid() || sigma <= 0 {
		return 0, false
	}
	tau := m.TauEff(nowMs)
	d2 := numerics.D2(m.SEff(), m.Ctx.Strike, sigma, tau)
	return numerics.PFairUp(d2), true
}

// Z returns the drift-free signal-to-noise ratio at nowMs.
func (m *MarketState) Z(nowMs int64) (float64, bool) {
	sigma := m.Oracle.Sigma(nowMs)
	if !m.Oracle.SigmaValid() || sigma <= 0 {
		return 0, false
	}
	tau := m.TauEff(nowMs)
	return numerics.Z(m.SEff(), m.Ctx.Strike, sigma, tau), true
}

// DeltaBinary returns the probability sensitivity per unit price move at
// nowMs.
func (m *MarketState) DeltaBinary(nowMs int64) (float64, bool) {
	sigma := m.Oracle.Sigma(nowMs)
	if !m.Oracle.SigmaValid() || sigma <= 0 {
		return 0, false
	}
	tau := m.TauEff(nowMs)
	return numerics.DeltaBinary(m.SEff(), m.Ctx.Strike, sigma, tau), true
}

// Outcome determines the binary settlement result from the final oracle
// price against strike.
func (m *MarketState) Outcome() domain.Outcome {
	if m.SEff() >= m.Ctx.Strike {
		return domain.OutcomeUp
	}
	return domain.OutcomeDown
}

// StaleFeed reports whether neither feed has produced an event within
// maxAgeMs of nowMs.
func (m *MarketState) StaleFeed(nowMs, maxAgeMs int64) bool {
	freshest := m.LastOracleTsMs
	if m.LastVenueTsMs > freshest {
		freshest = m.LastVenueTsMs
	}
	if freshest == 0 {
		return true
	}
	return nowMs-freshest > maxAgeMs
}

// InOpeningWindow reports whether nowMs is still within the opening window
// (measured from market start) that opening-window-exempt strategies use.
func (m *MarketState) InOpeningWindow(nowMs, windowMs int64) bool {
	return m.ElapsedMs(nowMs) <= windowMs
}
