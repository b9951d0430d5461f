package market

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onyxlabs/pmengine/internal/domain"
)

func TestClockSourceAlignsToIntervalBoundary(t *testing.T) {
	fixed := time.Date(2026, 1, 1, 0, 0, 30, 0, time.UTC)
	c := NewClockSource("ETH", time.Minute, 0.01, false)
	c.now = func() time.Time { return fixed }

	m, err := c.NextMarket(context.Background())
	require.NoError(t, err)

	wantStart := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, wantStart.UnixMilli(), m.StartMs)
	assert.Equal(t, time.Minute.Milliseconds(), m.EndMs-m.StartMs)
}

func TestClockSourceRespectsCancellation(t *testing.T) {
	c := NewClockSource("ETH", time.Hour, 0.01, false)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.NextMarket(ctx)
	assert.Error(t, err)
}

type fakeMetaStore struct {
	upserted []domain.MarketContext
	err      error
}

func (f *fakeMetaStore) Upsert(ctx context.Context, m domain.MarketContext) error {
	f.upserted = append(f.upserted, m)
	return f.err
}

type fakeSource struct {
	ctx domain.MarketContext
	err error
}

func (f *fakeSource) NextMarket(ctx context.Context) (domain.MarketContext, error) {
	return f.ctx, f.err
}

func TestPersistingSourceUpsertsDiscoveredMarket(t *testing.T) {
	want := domain.MarketContext{Slug: "eth-updown-1"}
	store := &fakeMetaStore{}
	src := NewPersistingSource(&fakeSource{ctx: want}, store, nil)

	got, err := src.NextMarket(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want.Slug, got.Slug)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, want.Slug, store.upserted[0].Slug)
}
