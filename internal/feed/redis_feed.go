package feed

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/engine"
)

// RedisOracleFeed subscribes to a domain.SignalBus channel carrying JSON
// domain.OracleTrade payloads and dispatches them into the engine. This is
// the default local/dev wiring: an out-of-process publisher (a script, a
// separate ingestion process, or a test) writes onto the channel and every
// engine replica subscribed to it observes the same trades.
type RedisOracleFeed struct {
	bus     domain.SignalBus
	channel string
	logger  *slog.Logger
}

// NewRedisOracleFeed constructs a RedisOracleFeed against the given bus and
// channel name.
func NewRedisOracleFeed(bus domain.SignalBus, channel string, logger *slog.Logger) *RedisOracleFeed {
	return &RedisOracleFeed{bus: bus, channel: channel, logger: logger.With(slog.String("component", "redis_oracle_feed"))}
}

// Run subscribes and dispatches until ctx is cancelled or the channel closes.
func (f *RedisOracleFeed) Run(ctx context.Context, d Dispatcher) error {
	ch, err := f.bus.Subscribe(ctx, f.channel)
	if err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "redis oracle feed started", slog.String("channel", f.channel))
	defer f.logger.InfoContext(ctx, "redis oracle feed stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			var trade domain.OracleTrade
			if err := json.Unmarshal(payload, &trade); err != nil {
				f.logger.DebugContext(ctx, "redis oracle feed: unparseable payload", slog.String("error", err.Error()))
				continue
			}
			d.Dispatch(ctx, engine.Event{Kind: engine.EventOracleTrade, Trade: trade})
		}
	}
}

// redisVenueMessage discriminates between a quote and a full book payload
// published on the same channel.
type redisVenueMessage struct {
	Kind  string             `json:"kind"`
	Quote *domain.VenueQuote `json:"quote,omitempty"`
	Book  *domain.VenueBook  `json:"book,omitempty"`
}

// RedisVenueFeed subscribes to a domain.SignalBus channel carrying JSON
// venue quote/book payloads and dispatches them into the engine.
type RedisVenueFeed struct {
	bus     domain.SignalBus
	channel string
	logger  *slog.Logger
}

// NewRedisVenueFeed constructs a RedisVenueFeed against the given bus and
// channel name.
func NewRedisVenueFeed(bus domain.SignalBus, channel string, logger *slog.Logger) *RedisVenueFeed {
	return &RedisVenueFeed{bus: bus, channel: channel, logger: logger.With(slog.String("component", "redis_venue_feed"))}
}

// Run subscribes and dispatches until ctx is cancelled or the channel closes.
func (f *RedisVenueFeed) Run(ctx context.Context, d Dispatcher) error {
	ch, err := f.bus.Subscribe(ctx, f.channel)
	if err != nil {
		return err
	}
	f.logger.InfoContext(ctx, "redis venue feed started", slog.String("channel", f.channel))
	defer f.logger.InfoContext(ctx, "redis venue feed stopped")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case payload, ok := <-ch:
			if !ok {
				return nil
			}
			var msg redisVenueMessage
			if err := json.Unmarshal(payload, &msg); err != nil {
				f.logger.DebugContext(ctx, "redis venue feed: unparseable payload", slog.String("error", err.Error()))
				continue
			}
			switch msg.Kind {
			case "book":
				if msg.Book != nil {
					d.Dispatch(ctx, engine.Event{Kind: engine.EventVenueBook, Book: *msg.Book})
				}
			default:
				if msg.Quote != nil {
					d.Dispatch(ctx, engine.Event{Kind: engine.EventVenueQuote, Quote: *msg.Quote})
				}
			}
		}
	}
}

var (
	_ OracleFeed = (*RedisOracleFeed)(nil)
	_ VenueFeed  = (*RedisVenueFeed)(nil)
)
