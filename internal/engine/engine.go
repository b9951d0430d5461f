package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/risk"
	"github.com/onyxlabs/pmengine/internal/settlement"
	"github.com/onyxlabs/pmengine/internal/state"
	"github.com/onyxlabs/pmengine/internal/strategy"
)

// MarketSource discovers the next market window to trade. The
// implementation shipped in internal/market derives windows from a
// wall-clock schedule; none is part of this package.
type MarketSource interface {
	NextMarket(ctx context.Context) (domain.MarketContext, error)
}

// StrikeProvider fetches the candle-open reference price used as strike K
// for a discovered market.
type StrikeProvider interface {
	CandleOpen(ctx context.Context, m domain.MarketContext) (float64, error)
}

// Config holds the engine-wide tuning knobs threaded into every market.
type Config struct {
	PreWakeShort time.Duration // pre-wake sleep for short-interval markets
	PreWakeLong  time.Duration // pre-wake sleep for long-interval markets
	LongInterval time.Duration // markets at or above this duration use PreWakeLong
	OracleDeltaS float64
	Beta         float64
	QueueSize    int
}

// DefaultConfig returns the documented engine defaults.
func DefaultConfig() Config {
	return Config{
		PreWakeShort: 10 * time.Second,
		PreWakeLong:  30 * time.Second,
		LongInterval: time.Hour,
		OracleDeltaS: 2.0,
		Beta:         0,
		QueueSize:    256,
	}
}

// Engine owns the persistent state and drives markets one at a time,
// exactly as the single-owner model requires: only one Runner is ever
// live, and PersistentOracleState is handed to it unchanged when the
// market ends.
type Engine struct {
	cfg       Config
	oracle    *state.PersistentOracleState
	portfolio *risk.PortfolioTracker
	registry  *strategy.Registry
	limits    map[string]risk.StrategyLimits
	orders    OrderSink
	sink      DiagnosticsSink
	locks     domain.LockManager
	logger    *slog.Logger

	current atomic.Pointer[Runner]
}

// New constructs an Engine. registry and limits are shared, immutable
// configuration; a fresh risk.Manager and MarketState are built per market.
// locks may be nil, in which case a single Engine instance is assumed to be
// the only one ever trading a given market; a horizontally-scaled deployment
// supplies a distributed LockManager so at most one instance runs a market.
func New(cfg Config, oracle *state.PersistentOracleState, portfolio *risk.PortfolioTracker, registry *strategy.Registry, limits map[string]risk.StrategyLimits, orders OrderSink, sink DiagnosticsSink, locks domain.LockManager, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		oracle:    oracle,
		portfolio: portfolio,
		registry:  registry,
		limits:    limits,
		orders:    orders,
		sink:      sink,
		locks:     locks,
		logger:    logger,
	}
}

// marketLockTTL bounds how long a market lock is held before it must be
// renewed implicitly by holding the process alive; it is set well above any
// single market's lifetime plus drain so a live instance never loses its own
// lock mid-market.
const marketLockTTL = 6 * time.Hour

// Run drives markets sequentially until ctx is cancelled. A market
// discovery failure is not fatal: the outer loop backs off and retries.
func (e *Engine) Run(ctx context.Context, source MarketSource, strikes StrikeProvider) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		mctx, err := source.NextMarket(ctx)
		if err != nil {
			e.logger.WarnContext(ctx, "market discovery failed, backing off",
				slog.String("error", err.Error()), slog.Duration("backoff", backoff))
			if !sleepCtx(ctx, backoff) {
				return ctx.Err()
			}
			backoff = minDuration(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second

		if err := e.runOneMarket(ctx, mctx, strikes); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			e.logger.ErrorContext(ctx, "market run ended in error, continuing to next market",
				slog.String("market", mctx.Slug), slog.String("error", err.Error()))
		}
	}
}

func (e *Engine) runOneMarket(ctx context.Context, mctx domain.MarketContext, strikes StrikeProvider) error {
	if e.locks != nil {
		unlock, err := e.locks.Acquire(ctx, mctx.Slug, marketLockTTL)
		if err != nil {
			if errors.Is(err, domain.ErrLockHeld) {
				e.logger.InfoContext(ctx, "market already owned by another instance, skipping",
					slog.String("market", mctx.Slug))
				return nil
			}
			return fmt.Errorf("acquire market lock: %w", err)
		}
		defer unlock()
	}

	preWake := e.cfg.PreWakeShort
	if time.Duration(mctx.EndMs-mctx.StartMs)*time.Millisecond >= e.cfg.LongInterval {
		preWake = e.cfg.PreWakeLong
	}
	wakeAt := time.UnixMilli(mctx.StartMs).Add(-preWake)
	if d := time.Until(wakeAt); d > 0 {
		if !sleepCtx(ctx, d) {
			return ctx.Err()
		}
	}

	strike, err := strikes.CandleOpen(ctx, mctx)
	if err != nil {
		return err
	}
	mctx.Strike = strike

	ms := state.NewMarketState(mctx, e.oracle, e.cfg.OracleDeltaS, e.cfg.Beta)
	riskMgr := risk.NewManager(e.portfolio, e.limits, e.logger)

	onSettle := func(res settlement.Result) {
		e.portfolio.RecordSettlement(res.MarketPnL, res.SettledAt)
	}

	runner := NewRunner(ms, e.registry, riskMgr, e.orders, e.sink, e.logger, e.cfg.QueueSize, onSettle)
	e.current.Store(runner)
	defer e.current.Store(nil)

	tickCtx, stopTicks := context.WithCancel(ctx)
	defer stopTicks()
	go runHeartbeat(tickCtx, runner)

	return runner.Run(ctx)
}

// runHeartbeat sends a Tick event into the runner's queue every 100ms. The
// runner's diagnostics use their own ticker, and the risk gate derives
// staleness on demand rather than from this signal.
func runHeartbeat(ctx context.Context, runner *Runner) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runner.Send(ctx, Event{Kind: EventTick})
		}
	}
}

// Dispatch forwards an event to the currently live market, if any. Feed
// adapters call this from their own goroutines; it never blocks them.
func (e *Engine) Dispatch(ctx context.Context, ev Event) {
	r := e.current.Load()
	if r == nil {
		return
	}
	r.Send(ctx, ev)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
