// Package risk implements the two-tier risk gate the reconciliation
// pipeline runs every accepted signal through: portfolio-level hard gates
// that halt trading outright, and per-strategy gates that bound cooldown,
// order count and notional per market.
package risk

import "time"

// PortfolioConfig holds the tunable portfolio-level gate thresholds.
type PortfolioConfig struct {
	Bankroll          float64
	MaxExposureFrac   float64
	DailyLossHalt     float64
	WeeklyLossHalt    float64
	StaleFeedMaxAgeMs int64
}

// DefaultPortfolioConfig returns the documented portfolio gate defaults.
func DefaultPortfolioConfig(bankroll float64) PortfolioConfig {
	return PortfolioConfig{
		Bankroll:          bankroll,
		MaxExposureFrac:   0.15,
		DailyLossHalt:     -0.03,
		WeeklyLossHalt:    -0.08,
		StaleFeedMaxAgeMs: 5000,
	}
}

// PortfolioTracker accumulates realized PnL across markets so daily and
// weekly loss halts survive market boundaries the same way
// PersistentOracleState does for the statistical estimators. It is created
// once at process start and updated only from settlement.
type PortfolioTracker struct {
	cfg PortfolioConfig

	dailyPnL   float64
	weeklyPnL  float64
	dayAnchor  time.Time
	weekAnchor time.Time
}

// NewPortfolioTracker creates a tracker anchored at the given time.
func NewPortfolioTracker(cfg PortfolioConfig, now time.Time) *PortfolioTracker {
	return &PortfolioTracker{cfg: cfg, dayAnchor: startOfDay(now), weekAnchor: startOfWeek(now)}
}

// RecordSettlement folds a market's realized PnL into the running daily and
// weekly totals, rolling either counter over if now has crossed into a new
// day or week.
func (p *PortfolioTracker) RecordSettlement(pnl float64, now time.Time) {
	if d := startOfDay(now); !d.Equal(p.dayAnchor) {
		p.dayAnchor = d
		p.dailyPnL = 0
	}
	if w := startOfWeek(now); !w.Equal(p.weekAnchor) {
		p.weekAnchor = w
		p.weeklyPnL = 0
	}
	p.dailyPnL += pnl
	p.weeklyPnL += pnl
}

// DailyHalted reports whether today's realized loss has crossed the daily
// halt threshold.
func (p *PortfolioTracker) DailyHalted() bool {
	if p.cfg.Bankroll <= 0 {
		return false
	}
	return p.dailyPnL/p.cfg.Bankroll <= p.cfg.DailyLossHalt
}

// WeeklyHalted reports whether this week's realized loss has crossed the
// weekly halt threshold.
func (p *PortfolioTracker) WeeklyHalted() bool {
	if p.cfg.Bankroll <= 0 {
		return false
	}
	return p.weeklyPnL/p.cfg.Bankroll <= p.cfg.WeeklyLossHalt
}

// DailyPnL returns today's running realized PnL.
func (p *PortfolioTracker) DailyPnL() float64 { return p.dailyPnL }

// WeeklyPnL returns this week's running realized PnL.
func (p *PortfolioTracker) WeeklyPnL() float64 { return p.weeklyPnL }

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func startOfWeek(t time.Time) time.Time {
	d := startOfDay(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	return d.AddDate(0, 0, -offset)
}
