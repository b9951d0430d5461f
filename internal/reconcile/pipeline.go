// Package reconcile turns the set of signals produced by evaluating one
// event against every trigger-filtered strategy into the orders that are
// actually safe to dispatch: it deconflicts disagreeing active signals,
// enforces house-side coherence, risk-gates what's left, and locks the
// house side the first time a confident active signal is accepted.
package reconcile

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/risk"
	"github.com/onyxlabs/pmengine/internal/state"
)

// HouseSideLockConfidence is the minimum confidence an accepted active
// signal must carry to lock the market's house side.
const HouseSideLockConfidence = 0.7

// TimedStrategies names the strategies whose orders carry a fixed
// time-to-live rather than resolving as plain aggressive IOC. Kept as a
// lookup table rather than a Signal field because is_passive/use_bid
// already fully determine every other order type.
var TimedStrategies = map[string]bool{
	"certainty_capture": true,
}

// Rejection records why a signal produced by this batch never became an
// order, for telemetry.
type Rejection struct {
	Signal domain.Signal
	Reason domain.GateReason
}

// Pipeline runs the reconciliation steps for one market.
type Pipeline struct {
	risk   *risk.Manager
	logger *slog.Logger
}

// NewPipeline constructs a reconciliation pipeline bound to one market's
// risk manager.
func NewPipeline(riskMgr *risk.Manager, logger *slog.Logger) *Pipeline {
	return &Pipeline{risk: riskMgr, logger: logger}
}

// Process reconciles a batch of signals produced from a single event into
// the orders that should be dispatched, in dispatch order. Every input
// signal that does not become an order is returned in rejections.
func (p *Pipeline) Process(ctx context.Context, ms *state.MarketState, signals []*domain.Signal, nowMs int64) (orders []domain.Order, rejections []Rejection) {
	if len(signals) == 0 {
		return nil, nil
	}

	candidates := p.deconflict(ms, signals, &rejections)
	candidates = p.filterHouseSide(ms, candidates, &rejections)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score() > candidates[j].Score()
	})

	for _, sig := range candidates {
		sizeUSD, reason, err := p.risk.PreTradeCheck(ctx, ms, sig, nowMs)
		if err != nil {
			if p.logger != nil {
				p.logger.ErrorContext(ctx, "reconcile: risk check failed", slog.String("strategy_id", sig.StrategyID), slog.String("error", err.Error()))
			}
			rejections = append(rejections, Rejection{Signal: *sig, Reason: domain.GateRiskCheckError})
			continue
		}
		if reason != domain.GateNone {
			rejections = append(rejections, Rejection{Signal: *sig, Reason: reason})
			continue
		}

		if !sig.IsPassive {
			if _, locked := ms.HouseSide(); !locked && sig.Confidence >= HouseSideLockConfidence {
				ms.SetHouseSide(sig.Side)
			}
		}

		timed := TimedStrategies[sig.StrategyID]
		orders = append(orders, domain.Order{
			StrategyID: sig.StrategyID,
			MarketSlug: ms.Ctx.Slug,
			TokenID:    tokenID(ms.Ctx, sig.Side),
			Side:       sig.Side,
			Price:      sig.Ask,
			SizeUSD:    sizeUSD,
			Type:       sig.OrderType(timed),
			CreatedAt:  time.UnixMilli(nowMs),
		})
	}

	return orders, rejections
}

// deconflict sums score per side among active (non-passive) signals and
// drops every active signal on the losing side, but only while the house
// side is not yet locked: once it is, filterHouseSide alone decides.
func (p *Pipeline) deconflict(ms *state.MarketState, signals []*domain.Signal, rejections *[]Rejection) []*domain.Signal {
	if _, locked := ms.HouseSide(); locked {
		return signals
	}

	var upScore, downScore float64
	sideSeen := map[domain.Side]bool{}
	for _, sig := range signals {
		if sig.IsPassive {
			continue
		}
		sideSeen[sig.Side] = true
		if sig.Side == domain.Up {
			upScore += sig.Score()
		} else {
			downScore += sig.Score()
		}
	}
	if !(sideSeen[domain.Up] && sideSeen[domain.Down]) {
		return signals
	}

	// An exact tie favors Up as the loser (Down survives); ties are rare
	// enough between independently-scored strategies that any fixed
	// tiebreak is fine, it just needs to be deterministic.
	losingSide := domain.Up
	if upScore > downScore {
		losingSide = domain.Down
	}

	out := make([]*domain.Signal, 0, len(signals))
	for _, sig := range signals {
		if !sig.IsPassive && sig.Side == losingSide {
			*rejections = append(*rejections, Rejection{Signal: *sig, Reason: domain.GateDeconflictedLoser})
			continue
		}
		out = append(out, sig)
	}
	return out
}

// tokenID resolves the ERC-1155 token id an order for the given side should
// be signed against.
func tokenID(mctx domain.MarketContext, side domain.Side) string {
	if side == domain.Up {
		return mctx.UpTokenID
	}
	return mctx.DownTokenID
}

// filterHouseSide drops active signals that disagree with an already
// locked house side. Passive signals are never filtered here.
func (p *Pipeline) filterHouseSide(ms *state.MarketState, signals []*domain.Signal, rejections *[]Rejection) []*domain.Signal {
	side, locked := ms.HouseSide()
	if !locked {
		return signals
	}
	out := make([]*domain.Signal, 0, len(signals))
	for _, sig := range signals {
		if !sig.IsPassive && sig.Side != side {
			*rejections = append(*rejections, Rejection{Signal: *sig, Reason: domain.GateHouseSideConflict})
			continue
		}
		out = append(out, sig)
	}
	return out
}
