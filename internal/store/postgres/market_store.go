package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/probmarket/ledger/internal/domain"
)

// uniqueViolation is the PostgreSQL error code for unique constraint
// violations.
const uniqueViolation = "23505"

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a MarketStore backed by the given client.
func NewMarketStore(c *Client) *MarketStore {
	return &MarketStore{pool: c.Pool()}
}

// Create inserts a new market. A duplicate ID or (creator, title) pair fails
// with domain.ErrAlreadyExists.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, creator, title, description, expiry_timestamp,
			is_active, is_resolved, resolution,
			yes_token_supply, no_token_supply, created_at, resolved_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Creator, m.Title, m.Description, m.ExpiryTimestamp,
		m.IsActive, m.IsResolved, m.Resolution,
		m.YesTokenSupply, m.NoTokenSupply, m.CreatedAt, m.ResolvedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create market %s: %w", m.ID, err)
	}
	return nil
}

const marketSelectCols = `id, creator, title, description, expiry_timestamp,
	is_active, is_resolved, resolution,
	yes_token_supply, no_token_supply, created_at, resolved_at`

func scanMarket(scanner interface{ Scan(dest ...any) error }) (domain.Market, error) {
	var m domain.Market
	err := scanner.Scan(
		&m.ID, &m.Creator, &m.Title, &m.Description, &m.ExpiryTimestamp,
		&m.IsActive, &m.IsResolved, &m.Resolution,
		&m.YesTokenSupply, &m.NoTokenSupply, &m.CreatedAt, &m.ResolvedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	return m, nil
}

// Get returns a market by ID.
func (s *MarketStore) Get(ctx context.Context, id string) (domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets WHERE id = $1`
	m, err := scanMarket(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %s: %w", id, err)
	}
	return m, nil
}

// List returns markets ordered by creation time.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketSelectCols + ` FROM markets ORDER BY created_at, id LIMIT $1 OFFSET $2`

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, query, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var out []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	return out, nil
}

// Resolve stamps the terminal outcome. The WHERE clause guards the one-way
// transition against committed state; a row already resolved (or racing
// resolve) is reported as ErrAlreadyResolved.
func (s *MarketStore) Resolve(ctx context.Context, id string, outcome bool, at time.Time) (domain.Market, error) {
	query := `
		UPDATE markets
		SET is_resolved = TRUE, resolution = $2, resolved_at = $3
		WHERE id = $1 AND is_resolved = FALSE
		RETURNING ` + marketSelectCols

	m, err := scanMarket(s.pool.QueryRow(ctx, query, id, outcome, at))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Distinguish a missing market from an already-resolved one.
			if _, getErr := s.Get(ctx, id); errors.Is(getErr, domain.ErrNotFound) {
				return domain.Market{}, domain.ErrNotFound
			}
			return domain.Market{}, domain.ErrAlreadyResolved
		}
		return domain.Market{}, fmt.Errorf("postgres: resolve market %s: %w", id, err)
	}
	return m, nil
}

// Compile-time interface check.
var _ domain.MarketStore = (*MarketStore)(nil)
