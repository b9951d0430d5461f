package feed

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/engine"
)

type fakeBus struct {
	ch chan []byte
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return b.ch, nil
}

type recordingDispatcher struct {
	events []engine.Event
}

func (d *recordingDispatcher) Dispatch(ctx context.Context, ev engine.Event) {
	d.events = append(d.events, ev)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisOracleFeedDispatchesTrades(t *testing.T) {
	bus := &fakeBus{ch: make(chan []byte, 1)}
	d := &recordingDispatcher{}
	f := NewRedisOracleFeed(bus, "oracle:trades", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, d) }()

	payload, err := json.Marshal(domain.OracleTrade{TsMs: 1000, Price: 3000.5, Qty: 1.2, IsBuy: true})
	require.NoError(t, err)
	bus.ch <- payload

	require.Eventually(t, func() bool { return len(d.events) == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, engine.EventOracleTrade, d.events[0].Kind)
	assert.Equal(t, 3000.5, d.events[0].Trade.Price)

	cancel()
	<-done
}

func TestRedisVenueFeedDispatchesQuoteAndBook(t *testing.T) {
	bus := &fakeBus{ch: make(chan []byte, 2)}
	d := &recordingDispatcher{}
	f := NewRedisVenueFeed(bus, "venue:quotes", discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, d) }()

	quotePayload, err := json.Marshal(redisVenueMessage{Kind: "quote", Quote: &domain.VenueQuote{TsMs: 1, Side: domain.Up, BestBid: 0.4, BestAsk: 0.42}})
	require.NoError(t, err)
	bookPayload, err := json.Marshal(redisVenueMessage{Kind: "book", Book: &domain.VenueBook{TsMs: 2, Side: domain.Down, Levels: []domain.PriceLevel{
		{Price: 0.3, Size: 100, IsBid: true},
		{Price: 0.32, Size: 80},
	}}})
	require.NoError(t, err)

	bus.ch <- quotePayload
	bus.ch <- bookPayload

	require.Eventually(t, func() bool { return len(d.events) == 2 }, time.Second, time.Millisecond)
	assert.Equal(t, engine.EventVenueQuote, d.events[0].Kind)
	assert.Equal(t, engine.EventVenueBook, d.events[1].Kind)

	cancel()
	<-done
}
