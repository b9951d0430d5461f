// Package market provides the local/dev MarketSource and StrikeProvider
// wiring: fixed-width market windows derived from a wall-clock schedule
// rather than a venue discovery REST call, and a strike price sourced from
// the last observed reference price in domain.PriceCache. A production
// deployment would replace ClockSource with a client against the venue's
// own market catalog.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
)

// Source discovers the next market window. engine.MarketSource is this
// interface restated to avoid an import from internal/market back into
// internal/engine.
type Source interface {
	NextMarket(ctx context.Context) (domain.MarketContext, error)
}

// ClockSource discovers markets on a fixed schedule: every interval, a new
// "Up vs Down at expiry" contract opens for the configured asset, keyed by
// its start timestamp.
type ClockSource struct {
	asset    string
	interval time.Duration
	tickSize float64
	negRisk  bool
	now      func() time.Time
}

// NewClockSource constructs a ClockSource for the given asset and interval.
func NewClockSource(asset string, interval time.Duration, tickSize float64, negRisk bool) *ClockSource {
	return &ClockSource{asset: asset, interval: interval, tickSize: tickSize, negRisk: negRisk, now: time.Now}
}

// NextMarket blocks until the next interval boundary and returns the market
// context for that window, keyed by asset and window start.
func (c *ClockSource) NextMarket(ctx context.Context) (domain.MarketContext, error) {
	now := c.now()
	start := now.Truncate(c.interval).Add(c.interval)
	wait := time.Until(start)

	select {
	case <-ctx.Done():
		return domain.MarketContext{}, ctx.Err()
	case <-time.After(wait):
	}

	end := start.Add(c.interval)
	slug := fmt.Sprintf("%s-updown-%d", c.asset, start.Unix())

	return domain.MarketContext{
		Slug:     slug,
		StartMs:  start.UnixMilli(),
		EndMs:    end.UnixMilli(),
		TickSize: c.tickSize,
		NegRisk:  c.negRisk,
	}, nil
}

var _ Source = (*ClockSource)(nil)

// MetaStore persists discovered market metadata for later audit and
// dashboarding.
type MetaStore interface {
	Upsert(ctx context.Context, m domain.MarketContext) error
}

// PersistingSource wraps a Source and records every discovered market in a
// MetaStore before handing it back to the engine.
type PersistingSource struct {
	inner  Source
	store  MetaStore
	logger *slog.Logger
}

// NewPersistingSource wraps source so every discovered market is upserted
// into store. Upsert failures are logged and otherwise ignored: discovery
// must not block on the audit trail.
func NewPersistingSource(source Source, store MetaStore, logger *slog.Logger) *PersistingSource {
	return &PersistingSource{inner: source, store: store, logger: logger}
}

// NextMarket delegates to the wrapped source and persists the result.
func (p *PersistingSource) NextMarket(ctx context.Context) (domain.MarketContext, error) {
	m, err := p.inner.NextMarket(ctx)
	if err != nil {
		return m, err
	}
	if err := p.store.Upsert(ctx, m); err != nil {
		p.logger.WarnContext(ctx, "market: failed to persist discovered market", slog.String("slug", m.Slug), slog.String("error", err.Error()))
	}
	return m, nil
}

var _ Source = (*PersistingSource)(nil)
