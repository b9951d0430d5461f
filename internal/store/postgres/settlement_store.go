package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onyxlabs/pmengine/internal/domain"
)

// SettlementStore implements domain.SettlementStore using PostgreSQL.
type SettlementStore struct {
	pool *pgxpool.Pool
}

// NewSettlementStore creates a new SettlementStore backed by the given
// connection pool.
func NewSettlementStore(pool *pgxpool.Pool) *SettlementStore {
	return &SettlementStore{pool: pool}
}

// Insert records a market's final settlement outcome and per-strategy PnL.
func (s *SettlementStore) Insert(ctx context.Context, rec domain.SettlementRecord) error {
	strategyPnL, err := json.Marshal(rec.StrategyPnL)
	if err != nil {
		return fmt.Errorf("postgres: marshal strategy pnl for %s: %w", rec.MarketSlug, err)
	}

	const query = `
		INSERT INTO settlements (market_slug, outcome, market_pnl, strategy_pnl, settled_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (market_slug) DO UPDATE SET
			outcome      = EXCLUDED.outcome,
			market_pnl   = EXCLUDED.market_pnl,
			strategy_pnl = EXCLUDED.strategy_pnl,
			settled_at   = EXCLUDED.settled_at`
	_, err = s.pool.Exec(ctx, query, rec.MarketSlug, string(rec.Outcome), rec.MarketPnL, strategyPnL, rec.SettledAt)
	if err != nil {
		return fmt.Errorf("postgres: insert settlement for %s: %w", rec.MarketSlug, err)
	}
	return nil
}

// ListRecent returns settlement records, most recently settled first.
func (s *SettlementStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.SettlementRecord, error) {
	query := `SELECT market_slug, outcome, market_pnl, strategy_pnl, settled_at FROM settlements WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND settled_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND settled_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY settled_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent settlements: %w", err)
	}
	defer rows.Close()

	var out []domain.SettlementRecord
	for rows.Next() {
		rec, err := scanSettlement(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan settlement: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SumPnLSince returns the sum of market_pnl for every settlement at or
// after the given time. Nothing in this module calls it; the portfolio
// tracker starts its daily and weekly totals at zero on every process start.
func (s *SettlementStore) SumPnLSince(ctx context.Context, since time.Time) (float64, error) {
	var sum *float64
	err := s.pool.QueryRow(ctx,
		`SELECT SUM(market_pnl) FROM settlements WHERE settled_at >= $1`, since).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum pnl since %s: %w", since, err)
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}

func scanSettlement(row pgx.Row) (domain.SettlementRecord, error) {
	var rec domain.SettlementRecord
	var outcome string
	var strategyPnL []byte
	if err := row.Scan(&rec.MarketSlug, &outcome, &rec.MarketPnL, &strategyPnL, &rec.SettledAt); err != nil {
		return domain.SettlementRecord{}, err
	}
	rec.Outcome = domain.Outcome(outcome)
	if len(strategyPnL) > 0 {
		if err := json.Unmarshal(strategyPnL, &rec.StrategyPnL); err != nil {
			return domain.SettlementRecord{}, fmt.Errorf("unmarshal strategy pnl: %w", err)
		}
	}
	return rec, nil
}

var _ domain.SettlementStore = (*SettlementStore)(nil)
