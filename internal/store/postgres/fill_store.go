package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onyxlabs/pmengine/internal/domain"
)

// FillStore implements domain.FillStore using PostgreSQL.
type FillStore struct {
	pool *pgxpool.Pool
}

// NewFillStore creates a new FillStore backed by the given connection pool.
func NewFillStore(pool *pgxpool.Pool) *FillStore {
	return &FillStore{pool: pool}
}

// Insert records one accepted fill against its market.
func (s *FillStore) Insert(ctx context.Context, marketSlug string, f domain.Fill) error {
	const query = `
		INSERT INTO fills (market_slug, strategy_id, side, price, size_shares, timestamp_ms)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query, marketSlug, f.StrategyID, string(f.Side), f.Price, f.SizeShares, f.TimestampMs)
	if err != nil {
		return fmt.Errorf("postgres: insert fill for %s: %w", marketSlug, err)
	}
	return nil
}

// ListByMarket returns every fill recorded for a market, oldest first.
func (s *FillStore) ListByMarket(ctx context.Context, marketSlug string) ([]domain.Fill, error) {
	const query = `
		SELECT strategy_id, side, price, size_shares, timestamp_ms
		FROM fills WHERE market_slug = $1 ORDER BY timestamp_ms ASC`
	rows, err := s.pool.Query(ctx, query, marketSlug)
	if err != nil {
		return nil, fmt.Errorf("postgres: list fills for %s: %w", marketSlug, err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var f domain.Fill
		var side string
		if err := rows.Scan(&f.StrategyID, &side, &f.Price, &f.SizeShares, &f.TimestampMs); err != nil {
			return nil, fmt.Errorf("postgres: scan fill for %s: %w", marketSlug, err)
		}
		f.Side = domain.Side(side)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

var _ domain.FillStore = (*FillStore)(nil)
