package risk

import (
	"context"
	"log/slog"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/state"
)

// StrategyLimits holds the per-strategy gate thresholds a Manager enforces.
// Each strategy package documents its own defaults; the engine wires them
// into a Manager at market-open time.
type StrategyLimits struct {
	CooldownMs         int64
	MaxOrdersPerMarket int
	PerTradeCapFrac    float64
	TotalCapFrac       float64
}

// MinNotionalUSD is the absolute floor every order must clear after every
// other cap has been applied.
const MinNotionalUSD = 1.0

type strategyCounters struct {
	lastOrderMs   int64
	orderCount    int
	cumulativeUSD float64
}

// Manager enforces the two-tier risk gate for one market. It is created
// fresh at market open: cooldowns and per-market order counts do not carry
// across markets, while daily/weekly loss halts are read from a shared
// PortfolioTracker that does.
type Manager struct {
	portfolio *PortfolioTracker
	limits    map[string]StrategyLimits
	counters  map[string]*strategyCounters
	logger    *slog.Logger
}

// NewManager constructs a Manager for one market's lifetime.
func NewManager(portfolio *PortfolioTracker, limits map[string]StrategyLimits, logger *slog.Logger) *Manager {
	return &Manager{
		portfolio: portfolio,
		limits:    limits,
		counters:  make(map[string]*strategyCounters, len(limits)),
		logger:    logger,
	}
}

func (m *Manager) counterFor(strategyID string) *strategyCounters {
	c, ok := m.counters[strategyID]
	if !ok {
		c = &strategyCounters{}
		m.counters[strategyID] = c
	}
	return c
}

// PreTradeCheck runs the full portfolio-then-strategy gate chain and, if
// every gate passes, returns the USD size to submit. A non-zero GateReason
// means the signal is rejected; sizeUSD is 0 in that case.
func (m *Manager) PreTradeCheck(ctx context.Context, ms *state.MarketState, sig *domain.Signal, nowMs int64) (sizeUSD float64, reason domain.GateReason, err error) {
	bankroll := m.portfolio.cfg.Bankroll

	if ms.StaleFeed(nowMs, m.portfolio.cfg.StaleFeedMaxAgeMs) {
		m.logGate(ctx, sig, domain.GateStaleFeed)
		return 0, domain.GateStaleFeed, nil
	}
	if m.portfolio.DailyHalted() {
		m.logGate(ctx, sig, domain.GateDailyLossHalt)
		return 0, domain.GateDailyLossHalt, nil
	}
	if m.portfolio.WeeklyHalted() {
		m.logGate(ctx, sig, domain.GateWeeklyLossHalt)
		return 0, domain.GateWeeklyLossHalt, nil
	}
	portfolioRoom := m.portfolio.cfg.MaxExposureFrac*bankroll - ms.Positions.TotalExposure()
	if portfolioRoom <= 0 {
		m.logGate(ctx, sig, domain.GateMaxExposure)
		return 0, domain.GateMaxExposure, nil
	}

	limits, ok := m.limits[sig.StrategyID]
	if !ok {
		limits = StrategyLimits{}
	}
	counters := m.counterFor(sig.StrategyID)

	if counters.lastOrderMs != 0 && nowMs-counters.lastOrderMs < limits.CooldownMs {
		m.logGate(ctx, sig, domain.GateCooldown)
		return 0, domain.GateCooldown, nil
	}
	if limits.MaxOrdersPerMarket > 0 && counters.orderCount >= limits.MaxOrdersPerMarket {
		m.logGate(ctx, sig, domain.GateMaxOrders)
		return 0, domain.GateMaxOrders, nil
	}

	perTradeCap := limits.PerTradeCapFrac * bankroll
	strategyRoom := limits.TotalCapFrac*bankroll - counters.cumulativeUSD

	size := sig.SizeFrac * bankroll
	size = minPositive(size, perTradeCap)
	size = minPositive(size, strategyRoom)
	size = minPositive(size, portfolioRoom)

	if size < MinNotionalUSD {
		m.logGate(ctx, sig, domain.GateBelowMinNotional)
		return 0, domain.GateBelowMinNotional, nil
	}

	counters.lastOrderMs = nowMs
	counters.orderCount++
	counters.cumulativeUSD += size

	return size, domain.GateNone, nil
}

func minPositive(a, b float64) float64 {
	if b < a {
		return b
	}
	return a
}

func (m *Manager) logGate(ctx context.Context, sig *domain.Signal, reason domain.GateReason) {
	if m.logger == nil {
		return
	}
	m.logger.DebugContext(ctx, "risk: signal rejected",
		slog.String("strategy_id", sig.StrategyID),
		slog.String("side", string(sig.Side)),
		slog.String("reason", string(reason)),
	)
}
