package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/onyxlabs/pmengine/internal/domain"
	"github.com/onyxlabs/pmengine/internal/engine"
)

const (
	venueWriteWait      = 10 * time.Second
	venuePongWait       = 60 * time.Second
	venuePingPeriod     = (venuePongWait * 9) / 10
	venueReconnectDelay = 2 * time.Second
	venueMaxReconnect   = 60 * time.Second
)

// venueMessage is the wire shape this stub decoder accepts, already
// resolved to a contract side rather than a raw token id. A real
// deployment would resolve the venue's own per-token message envelope into
// this shape upstream of the WebSocket boundary.
type venueMessage struct {
	Kind    string             `json:"kind"` // "quote" or "book"
	Side    string             `json:"side"` // "up" or "down"
	TsMs    int64              `json:"ts_ms"`
	BestBid float64            `json:"best_bid"`
	BestAsk float64            `json:"best_ask"`
	Levels  []domain.PriceLevel `json:"levels"`
}

// VenueWSFeed streams prediction-market CLOB top-of-book quotes and depth
// snapshots over a WebSocket connection, reconnecting with exponential
// backoff on disconnect.
type VenueWSFeed struct {
	url    string
	logger *slog.Logger
}

// NewVenueWSFeed constructs a VenueWSFeed against the given WebSocket URL.
func NewVenueWSFeed(url string, logger *slog.Logger) *VenueWSFeed {
	return &VenueWSFeed{url: url, logger: logger.With(slog.String("component", "venue_feed"))}
}

// Run connects and streams quotes/book updates until ctx is cancelled,
// reconnecting on any read or dial failure.
func (f *VenueWSFeed) Run(ctx context.Context, d Dispatcher) error {
	delay := venueReconnectDelay
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.runOnce(ctx, d); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			f.logger.WarnContext(ctx, "venue feed disconnected, reconnecting",
				slog.String("error", err.Error()), slog.Duration("delay", delay))
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
			delay *= 2
			if delay > venueMaxReconnect {
				delay = venueMaxReconnect
			}
			continue
		}
		delay = venueReconnectDelay
	}
}

func (f *VenueWSFeed) runOnce(ctx context.Context, d Dispatcher) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("feed: venue dial: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(venuePongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(venuePongWait))
		return nil
	})

	done := make(chan struct{})
	go f.pingLoop(conn, done)
	defer close(done)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed: venue read: %w", err)
		}
		var msg venueMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			f.logger.DebugContext(ctx, "venue feed: unparseable message", slog.String("error", err.Error()))
			continue
		}
		side := domain.Side(msg.Side)

		switch msg.Kind {
		case "book":
			d.Dispatch(ctx, engine.Event{
				Kind: engine.EventVenueBook,
				Book: domain.VenueBook{TsMs: msg.TsMs, Side: side, Levels: msg.Levels},
			})
		default:
			d.Dispatch(ctx, engine.Event{
				Kind: engine.EventVenueQuote,
				Quote: domain.VenueQuote{
					TsMs:    msg.TsMs,
					Side:    side,
					BestBid: msg.BestBid,
					BestAsk: msg.BestAsk,
				},
			})
		}
	}
}

func (f *VenueWSFeed) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(venuePingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(venueWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

var _ VenueFeed = (*VenueWSFeed)(nil)
