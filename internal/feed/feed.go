// Package feed adapts external market data sources into engine.Event
// values dispatched onto the engine's single event queue. Two data sources
// feed the engine: the reference exchange ("oracle") and the prediction
// market CLOB ("venue"). Each has its own transport-specific implementation
// behind a common interface.
package feed

import (
	"context"

	"github.com/onyxlabs/pmengine/internal/engine"
)

// Dispatcher forwards one event to the engine's currently live market
// runner. engine.Engine satisfies this directly.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev engine.Event)
}

// OracleFeed streams reference-exchange trade prints into the engine as
// EventOracleTrade events.
type OracleFeed interface {
	Run(ctx context.Context, d Dispatcher) error
}

// VenueFeed streams prediction-market CLOB top-of-book and depth updates
// into the engine as EventVenueQuote/EventVenueBook events.
type VenueFeed interface {
	Run(ctx context.Context, d Dispatcher) error
}
