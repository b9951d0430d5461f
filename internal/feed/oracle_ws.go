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
	oracleWriteWait      = 10 * time.Second
	oraclePongWait       = 60 * time.Second
	oraclePingPeriod     = (oraclePongWait * 9) / 10
	oracleReconnectDelay = 2 * time.Second
	oracleMaxReconnect   = 60 * time.Second
)

// oracleTradeMessage is the wire shape this stub decoder accepts. A real
// deployment would translate the reference exchange's own trade-print
// format into this shape upstream of the WebSocket boundary.
type oracleTradeMessage struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
	TsMs  int64   `json:"ts_ms"`
	IsBuy bool    `json:"is_buy"`
}

// OracleWSFeed streams reference-exchange trade prints over a WebSocket
// connection, reconnecting with exponential backoff on disconnect.
type OracleWSFeed struct {
	url    string
	logger *slog.Logger
}

// NewOracleWSFeed constructs an OracleWSFeed against the given WebSocket URL.
func NewOracleWSFeed(url string, logger *slog.Logger) *OracleWSFeed {
	return &OracleWSFeed{url: url, logger: logger.With(slog.String("component", "oracle_feed"))}
}

// Run connects and streams trades until ctx is cancelled, reconnecting on
// any read or dial failure.
func (f *OracleWSFeed) Run(ctx context.Context, d Dispatcher) error {
	delay := oracleReconnectDelay
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.runOnce(ctx, d); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			f.logger.WarnContext(ctx, "oracle feed disconnected, reconnecting",
				slog.String("error", err.Error()), slog.Duration("delay", delay))
			if !sleepCtx(ctx, delay) {
				return ctx.Err()
			}
			delay *= 2
			if delay > oracleMaxReconnect {
				delay = oracleMaxReconnect
			}
			continue
		}
		delay = oracleReconnectDelay
	}
}

func (f *OracleWSFeed) runOnce(ctx context.Context, d Dispatcher) error {
	dialer := websocket.Dialer{HandshakeTimeout: 15 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("feed: oracle dial: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(oraclePongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(oraclePongWait))
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
			return fmt.Errorf("feed: oracle read: %w", err)
		}
		var msg oracleTradeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			f.logger.DebugContext(ctx, "oracle feed: unparseable message", slog.String("error", err.Error()))
			continue
		}
		d.Dispatch(ctx, engine.Event{
			Kind: engine.EventOracleTrade,
			Trade: domain.OracleTrade{
				TsMs:  msg.TsMs,
				Price: msg.Price,
				Qty:   msg.Qty,
				IsBuy: msg.IsBuy,
			},
		})
	}
}

func (f *OracleWSFeed) pingLoop(conn *websocket.Conn, done <-chan struct{}) {
	ticker := time.NewTicker(oraclePingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(oracleWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

var _ OracleFeed = (*OracleWSFeed)(nil)
