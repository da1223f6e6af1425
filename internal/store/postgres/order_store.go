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

// OrderStore implements domain.OrderStore using PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates an OrderStore backed by the given client.
func NewOrderStore(c *Client) *OrderStore {
	return &OrderStore{pool: c.Pool()}
}

// Create inserts a new order. A duplicate (market, user) key fails with
// domain.ErrAlreadyExists.
func (s *OrderStore) Create(ctx context.Context, o domain.Order) error {
	const query = `
		INSERT INTO orders (
			id, market_id, user_addr, side, order_type,
			price, size, filled, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.pool.Exec(ctx, query,
		o.ID, o.MarketID, o.User, string(o.Side), string(o.Type),
		o.Price, o.Size, o.Filled, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("postgres: create order %s: %w", o.ID, err)
	}
	return nil
}

const orderSelectCols = `id, market_id, user_addr, side, order_type,
	price, size, filled, status, created_at, updated_at`

func scanOrder(scanner interface{ Scan(dest ...any) error }) (domain.Order, error) {
	var o domain.Order
	var side, orderType, status string
	err := scanner.Scan(
		&o.ID, &o.MarketID, &o.User, &side, &orderType,
		&o.Price, &o.Size, &o.Filled, &status, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return domain.Order{}, err
	}
	o.Side = domain.Side(side)
	o.Type = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	return o, nil
}

// Get returns an order by ID.
func (s *OrderStore) Get(ctx context.Context, id string) (domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders WHERE id = $1`
	o, err := scanOrder(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Order{}, domain.ErrNotFound
		}
		return domain.Order{}, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return o, nil
}

// ListByMarket returns a market's orders ordered by creation time.
func (s *OrderStore) ListByMarket(ctx context.Context, marketID string, opts domain.ListOpts) ([]domain.Order, error) {
	query := `SELECT ` + orderSelectCols + ` FROM orders
		WHERE market_id = $1 ORDER BY created_at, id LIMIT $2 OFFSET $3`

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, query, marketID, limit, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders for %s: %w", marketID, err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list orders for %s: %w", marketID, err)
	}
	return out, nil
}

// SettleFill applies a fill to both orders in one transaction. Both rows are
// locked with SELECT ... FOR UPDATE in deterministic ID order (avoiding
// lock-order deadlocks between concurrent settlements), the pair invariants
// are re-checked against the locked rows, and both updates commit together
// or not at all.
func (s *OrderStore) SettleFill(ctx context.Context, buyID, sellID string, fillSize, fillPrice int64, at time.Time) (domain.FillResult, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return domain.FillResult{}, fmt.Errorf("postgres: settle fill: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	lockQuery := `SELECT ` + orderSelectCols + ` FROM orders WHERE id = $1 FOR UPDATE`

	first, second := buyID, sellID
	if second < first {
		first, second = second, first
	}

	locked := make(map[string]domain.Order, 2)
	for _, id := range []string{first, second} {
		o, err := scanOrder(tx.QueryRow(ctx, lockQuery, id))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.FillResult{}, domain.ErrNotFound
			}
			return domain.FillResult{}, fmt.Errorf("postgres: settle fill: lock order %s: %w", id, err)
		}
		locked[id] = o
	}

	buy, sell, err := domain.ApplyFill(locked[buyID], locked[sellID], fillSize, fillPrice, at)
	if err != nil {
		return domain.FillResult{}, err
	}

	const update = `UPDATE orders SET filled = $2, status = $3, updated_at = $4 WHERE id = $1`
	for _, o := range []domain.Order{buy, sell} {
		tag, err := tx.Exec(ctx, update, o.ID, o.Filled, string(o.Status), o.UpdatedAt)
		if err != nil {
			return domain.FillResult{}, fmt.Errorf("postgres: settle fill: update order %s: %w", o.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return domain.FillResult{}, domain.ErrNotFound
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.FillResult{}, fmt.Errorf("postgres: settle fill: commit: %w", err)
	}
	return domain.FillResult{Buy: buy, Sell: sell}, nil
}

// Compile-time interface check.
var _ domain.OrderStore = (*OrderStore)(nil)
