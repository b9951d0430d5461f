package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/onyxlabs/pmengine/internal/domain"
)

// Simulator implements the OrderSink interface for DRY_RUN deployments: it
// fills every order instantly at the submitted price with no venue round
// trip, so the rest of the engine runs unmodified against a live feed
// without risking real capital.
type Simulator struct {
	latency time.Duration
}

// NewSimulator constructs a Simulator. latency, if non-zero, is added to
// every ack to make dry-run diagnostics resemble live round-trip times.
func NewSimulator(latency time.Duration) *Simulator {
	return &Simulator{latency: latency}
}

// Submit always fills immediately at o.Price.
func (s *Simulator) Submit(ctx context.Context, o domain.Order) (domain.OrderAck, error) {
	sizeShares := 0.0
	if o.Price > 0 {
		sizeShares = o.SizeUSD / o.Price
	}
	return domain.OrderAck{
		OrderID:    uuid.New().String(),
		StrategyID: o.StrategyID,
		Side:       o.Side,
		Status:     domain.OrderAckFilled,
		Price:      o.Price,
		SizeShares: sizeShares,
		LatencyMs:  s.latency.Milliseconds(),
	}, nil
}
