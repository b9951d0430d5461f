package market

import (
	"context"
	"fmt"
	"time"

	"github.com/onyxlabs/pmengine/internal/domain"
)

// CachedStrikeProvider resolves the candle-open reference price for a newly
// discovered market from the last price domain.PriceCache observed for that
// asset, rather than querying the reference exchange's own candle REST
// endpoint directly. No component of this module writes the cache: the
// result is whatever price was last stored for the asset by an outside
// writer, and the lookup fails when none is stored or it is older than
// maxStale.
type CachedStrikeProvider struct {
	cache    domain.PriceCache
	asset    string
	maxStale time.Duration
}

// NewCachedStrikeProvider constructs a CachedStrikeProvider for the given
// asset. maxStale bounds how old the cached price may be at lookup time.
func NewCachedStrikeProvider(cache domain.PriceCache, asset string, maxStale time.Duration) *CachedStrikeProvider {
	return &CachedStrikeProvider{cache: cache, asset: asset, maxStale: maxStale}
}

// CandleOpen returns the last cached reference price for the market's asset.
func (p *CachedStrikeProvider) CandleOpen(ctx context.Context, m domain.MarketContext) (float64, error) {
	price, ts, err := p.cache.GetPrice(ctx, p.asset)
	if err != nil {
		return 0, fmt.Errorf("market: strike lookup: %w", err)
	}
	if price <= 0 {
		return 0, fmt.Errorf("market: no reference price cached for %s", p.asset)
	}
	if age := time.Since(ts); age > p.maxStale {
		return 0, fmt.Errorf("market: cached reference price for %s is stale (%s old)", p.asset, age)
	}
	return price, nil
}

var _ interface {
	CandleOpen(ctx context.Context, m domain.MarketContext) (float64, error)
} = (*CachedStrikeProvider)(nil)
