// Package strategy implements the six signal evaluators the engine runs
// on every oracle trade and venue quote/book update. Each evaluator is a
// pure function of (*state.MarketState, now_ms): it reads state, it never
// holds mutable fields of its own, and it returns at most one Signal.
package strategy

import (
	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/state"
)

// Strategy evaluates one MarketState snapshot and either produces a Signal
// or explains, via GateReason, why it declined to fire. A non-nil error
// indicates something unexpected happened while evaluating (never a normal
// no-fire path); the engine logs it and treats the strategy as silent for
// that event.
type Strategy interface {
	Name() string
	Evaluate(ms *state.MarketState, nowMs int64) (*domain.Signal, domain.GateReason, error)
}

// clamp restricts x to the closed interval [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// halfKelly is the shared sizing rule used by every active strategy: half
// the Kelly fraction for a binary bet at price a with edge over that price,
// capped by a strategy-specific per-trade fraction.
func halfKelly(edge, price, cap float64) float64 {
	if price >= 1 || price <= 0 {
		return 0
	}
	f := 0.5 * edge / (1 - price)
	if f < 0 {
		f = 0
	}
	if f > cap {
		f = cap
	}
	return f
}
