package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/numerics"
	"github.com/onyxlabs/pmengine/internal/reconcile"
	"github.com/onyxlabs/pmengine/internal/risk"
	"github.com/onyxlabs/pmengine/internal/settlement"
	"github.com/onyxlabs/pmengine/internal/state"
	"github.com/onyxlabs/pmengine/internal/strategy"
)

// MinWarmupSamples is the per-market warmup threshold: strategies outside
// the opening-window-exempt set do not evaluate until this many fresh
// samples have accumulated since market entry.
const MinWarmupSamples = 10

// DiagnosticsInterval is how often the runner emits a diagnostic snapshot.
const DiagnosticsInterval = 10 * time.Second

// PostCloseDrain is how long after market.end_ms the runner keeps draining
// its queue before settling and exiting.
const PostCloseDrain = 10 * time.Second

// OrderSink accepts orders produced by the reconciliation pipeline and
// reports back what happened. Implemented by internal/gateway.
type OrderSink interface {
	Submit(ctx context.Context, o domain.Order) (domain.OrderAck, error)
}

// DiagnosticsSink receives periodic and terminal telemetry. Implemented by
// internal/telemetry.
type DiagnosticsSink interface {
	EmitDiagnostics(ctx context.Context, snap Diagnostics) error
	EmitFill(ctx context.Context, marketSlug string, f domain.Fill) error
	EmitSettlement(ctx context.Context, res settlement.Result) error
	EmitRejection(ctx context.Context, marketSlug string, r reconcile.Rejection) error
}

// Diagnostics is the periodic health snapshot described for every market.
type Diagnostics struct {
	MarketSlug   string
	TimeLeftMs   int64
	Sigma        float64
	Z            float64
	Distance     float64
	DistFrac     float64
	Regime       numerics.Regime
	DominantFrac float64
	HouseSide    domain.Side
	HouseSideSet bool
	GateReasons  map[string]domain.GateReason
}

// oracleStrategies fire on every oracle trade once warmed up.
var oracleStrategies = []string{"latency_arb", "lp_extreme"}

// venueStrategies fire on every venue quote or book update once warmed up.
var venueStrategies = []string{"certainty_capture", "convexity_fade", "lp_extreme"}

// openingStrategies are exempt from the per-market warmup counter as long
// as the persistent volatility estimate is itself valid; they only run
// inside the market's opening window.
var openingStrategies = []string{"strike_misalign"}

// openingWindowMs bounds how long after market start openingStrategies run.
const openingWindowMs = 15_000

// Runner owns one market's lifetime: it drains events from a bounded
// per-market queue, evaluates the trigger-filtered strategy subset on each
// one, reconciles the resulting signals, dispatches accepted orders, and
// settles at market close. It is the sole mutator of the MarketState it
// was constructed with.
type Runner struct {
	ms       *state.MarketState
	registry *strategy.Registry
	pipeline *reconcile.Pipeline
	orders   OrderSink
	sink     DiagnosticsSink
	logger   *slog.Logger

	events chan Event

	lastGateReason map[string]domain.GateReason
	onSettle       func(settlement.Result)
}

// NewRunner constructs a Runner for one market. onSettle, if non-nil, is
// invoked with the final settlement result so the caller can fold it into
// PortfolioTracker and durable storage; it runs on the runner's own
// goroutine after the queue has drained.
func NewRunner(ms *state.MarketState, registry *strategy.Registry, riskMgr *risk.Manager, orders OrderSink, sink DiagnosticsSink, logger *slog.Logger, queueSize int, onSettle func(settlement.Result)) *Runner {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Runner{
		ms:             ms,
		registry:       registry,
		pipeline:       reconcile.NewPipeline(riskMgr, logger),
		orders:         orders,
		sink:           sink,
		logger:         logger.With(slog.String("market", ms.Ctx.Slug)),
		events:         make(chan Event, queueSize),
		lastGateReason: make(map[string]domain.GateReason),
		onSettle:       onSettle,
	}
}

// Send pushes an event onto this market's queue. Feed adapters call this;
// it never blocks the caller, dropping the event with a warning if the
// queue is full.
func (r *Runner) Send(ctx context.Context, ev Event) {
	select {
	case r.events <- ev:
	case <-ctx.Done():
	default:
		r.logger.Warn("engine: per-market queue full, dropping event")
	}
}

// Run drains the event queue until market.end_ms + PostCloseDrain, then
// settles and returns. It never returns an error for expected shutdown;
// only unrecoverable per-market conditions produce one, and even those
// leave PersistentOracleState untouched.
func (r *Runner) Run(ctx context.Context) error {
	diagTicker := time.NewTicker(DiagnosticsInterval)
	defer diagTicker.Stop()

	closeAt := time.UnixMilli(r.ms.Ctx.EndMs).Add(PostCloseDrain)

	for {
		remaining := time.Until(closeAt)
		if remaining <= 0 {
			return r.settle(ctx)
		}
		closeTimer := time.NewTimer(remaining)

		select {
		case <-ctx.Done():
			closeTimer.Stop()
			return r.settle(context.Background())
		case <-closeTimer.C:
			return r.settle(ctx)
		case <-diagTicker.C:
			closeTimer.Stop()
			r.emitDiagnostics(ctx)
		case ev, ok := <-r.events:
			closeTimer.Stop()
			if !ok {
				return r.settle(ctx)
			}
			r.handle(ctx, ev)
		}
	}
}

func (r *Runner) handle(ctx context.Context, ev Event) {
	nowMs := time.Now().UnixMilli()

	switch ev.Kind {
	case EventOracleTrade:
		r.ms.LastOracleTsMs = ev.Trade.TsMs
		r.ms.Oracle.OnOracleTrade(ev.Trade.Price, ev.Trade.Qty, ev.Trade.TsMs)
		names := r.triggerSet(nowMs, oracleStrategies, ev.Trade.TsMs)
		r.evaluateAndDispatch(ctx, names, nowMs)

	case EventVenueQuote:
		r.ms.LastVenueTsMs = ev.Quote.TsMs
		r.ms.Book.ApplyQuote(ev.Quote)
		names := r.triggerSet(nowMs, venueStrategies, ev.Quote.TsMs)
		r.evaluateAndDispatch(ctx, names, nowMs)

	case EventVenueBook:
		r.ms.LastVenueTsMs = ev.Book.TsMs
		r.ms.Book.ApplyBook(ev.Book)
		names := r.triggerSet(nowMs, venueStrategies, ev.Book.TsMs)
		r.evaluateAndDispatch(ctx, names, nowMs)

	case EventOrderAck:
		if ev.Ack.Status == domain.OrderAckFilled {
			f := domain.Fill{
				StrategyID:  ev.Ack.StrategyID,
				Side:        ev.Ack.Side,
				Price:       ev.Ack.Price,
				SizeShares:  ev.Ack.SizeShares,
				TimestampMs: nowMs,
			}
			r.ms.Positions.RecordFill(f)
			if r.sink != nil {
				if err := r.sink.EmitFill(ctx, r.ms.Ctx.Slug, f); err != nil {
					r.logger.Warn("telemetry: emit fill failed", slog.String("error", err.Error()))
				}
			}
		}

	case EventTick:
		// Heartbeat only; staleness is derived on demand from
		// LastOracleTsMs/LastVenueTsMs inside the risk gate.
	}
}

// triggerSet returns the strategy names that should evaluate for this
// event: the base trigger set once per-market warmup is satisfied, plus
// the opening-window set whenever the market is still in its opening
// window and the persistent sigma estimate is independently valid.
func (r *Runner) triggerSet(nowMs int64, base []string, _ int64) []string {
	var names []string
	if r.ms.WarmupComplete(MinWarmupSamples) {
		names = append(names, base...)
	}
	if r.ms.InOpeningWindow(nowMs, openingWindowMs) && r.ms.Oracle.SigmaValid() {
		names = append(names, openingStrategies...)
	}
	return names
}

func (r *Runner) evaluateAndDispatch(ctx context.Context, names []string, nowMs int64) {
	if len(names) == 0 {
		return
	}
	strategies := r.registry.Subset(names...)
	signals := make([]*domain.Signal, 0, len(strategies))
	for _, s := range strategies {
		sig, reason, err := s.Evaluate(r.ms, nowMs)
		if err != nil {
			r.logger.Error("strategy evaluation failed", slog.String("strategy", s.Name()), slog.String("error", err.Error()))
			continue
		}
		r.lastGateReason[s.Name()] = reason
		if sig != nil {
			signals = append(signals, sig)
		}
	}
	if len(signals) == 0 {
		return
	}

	orders, rejections := r.pipeline.Process(ctx, r.ms, signals, nowMs)
	for _, rej := range rejections {
		if r.sink != nil {
			if err := r.sink.EmitRejection(ctx, r.ms.Ctx.Slug, rej); err != nil {
				r.logger.Warn("telemetry: emit rejection failed", slog.String("error", err.Error()))
			}
		}
	}
	for _, o := range orders {
		ack, err := r.orders.Submit(ctx, o)
		if err != nil {
			r.logger.Warn("order submission failed", slog.String("strategy", o.StrategyID), slog.String("error", err.Error()))
			continue
		}
		r.handle(ctx, Event{Kind: EventOrderAck, Ack: ack})
	}
}

func (r *Runner) emitDiagnostics(ctx context.Context) {
	if r.sink == nil {
		return
	}
	nowMs := time.Now().UnixMilli()
	sigma := r.ms.Oracle.Sigma(nowMs)
	z, _ := r.ms.Z(nowMs)
	regime, dominantFrac, _ := r.ms.Oracle.Regime()
	side, set := r.ms.HouseSide()

	reasons := make(map[string]domain.GateReason, len(r.lastGateReason))
	for k, v := range r.lastGateReason {
		reasons[k] = v
	}

	snap := Diagnostics{
		MarketSlug:   r.ms.Ctx.Slug,
		TimeLeftMs:   r.ms.TimeLeftMs(nowMs),
		Sigma:        sigma,
		Z:            z,
		Distance:     r.ms.Distance(),
		DistFrac:     r.ms.DistFrac(),
		Regime:       regime,
		DominantFrac: dominantFrac,
		HouseSide:    side,
		HouseSideSet: set,
		GateReasons:  reasons,
	}
	if err := r.sink.EmitDiagnostics(ctx, snap); err != nil {
		r.logger.Warn("telemetry: emit diagnostics failed", slog.String("error", err.Error()))
	}
}

func (r *Runner) settle(ctx context.Context) error {
	outcome := r.ms.Outcome()
	res := settlement.Settle(r.ms.Ctx.Slug, r.ms.Positions.Fills(), outcome, time.Now())
	if r.sink != nil {
		if err := r.sink.EmitSettlement(ctx, res); err != nil {
			r.logger.Warn("telemetry: emit settlement failed", slog.String("error", err.Error()))
		}
	}
	if r.onSettle != nil {
		r.onSettle(res)
	}
	return nil
}
