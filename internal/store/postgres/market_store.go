package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/onyxlabs/pmengine/internal/domain"
)

// MarketMetaStore implements domain.MarketMetaStore using PostgreSQL.
type MarketMetaStore struct {
	pool *pgxpool.Pool
}

// NewMarketMetaStore creates a new MarketMetaStore backed by the given
// connection pool.
func NewMarketMetaStore(pool *pgxpool.Pool) *MarketMetaStore {
	return &MarketMetaStore{pool: pool}
}

// Upsert inserts or updates a market's context, keyed by slug.
func (s *MarketMetaStore) Upsert(ctx context.Context, m domain.MarketContext) error {
	const query = `
		INSERT INTO market_meta (
			slug, strike, start_ms, end_ms, tick_size,
			up_token_id, down_token_id, neg_risk, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (slug) DO UPDATE SET
			strike        = EXCLUDED.strike,
			start_ms      = EXCLUDED.start_ms,
			end_ms        = EXCLUDED.end_ms,
			tick_size     = EXCLUDED.tick_size,
			up_token_id   = EXCLUDED.up_token_id,
			down_token_id = EXCLUDED.down_token_id,
			neg_risk      = EXCLUDED.neg_risk,
			updated_at    = NOW()`

	_, err := s.pool.Exec(ctx, query,
		m.Slug, m.Strike, m.StartMs, m.EndMs, m.TickSize,
		m.UpTokenID, m.DownTokenID, m.NegRisk,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market meta %s: %w", m.Slug, err)
	}
	return nil
}

const marketMetaCols = `slug, strike, start_ms, end_ms, tick_size, up_token_id, down_token_id, neg_risk`

func scanMarketMeta(row pgx.Row) (domain.MarketContext, error) {
	var m domain.MarketContext
	err := row.Scan(&m.Slug, &m.Strike, &m.StartMs, &m.EndMs, &m.TickSize, &m.UpTokenID, &m.DownTokenID, &m.NegRisk)
	return m, err
}

// GetBySlug retrieves a market's context by its slug.
func (s *MarketMetaStore) GetBySlug(ctx context.Context, slug string) (domain.MarketContext, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+marketMetaCols+` FROM market_meta WHERE slug = $1`, slug)
	m, err := scanMarketMeta(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.MarketContext{}, domain.ErrNotFound
		}
		return domain.MarketContext{}, fmt.Errorf("postgres: get market meta %s: %w", slug, err)
	}
	return m, nil
}

// ListRecent returns the most recently created markets, newest first.
func (s *MarketMetaStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.MarketContext, error) {
	query := `SELECT ` + marketMetaCols + ` FROM market_meta WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY created_at DESC"

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
		return nil, fmt.Errorf("postgres: list recent market meta: %w", err)
	}
	defer rows.Close()

	var out []domain.MarketContext
	for rows.Next() {
		m, err := scanMarketMeta(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market meta: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

var _ domain.MarketMetaStore = (*MarketMetaStore)(nil)
