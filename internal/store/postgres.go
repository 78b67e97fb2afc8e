package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/snipe-engine/pkg/models"
)

// Postgres is the durable Order/Position store, grounded on the teacher's
// pgxpool wiring. state_data mirrors the runtime Order/Position shape as
// JSONB, per spec.md §6.
type Postgres struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL.
func Connect(ctx context.Context, connStr string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	log.Println("[Store] connected to PostgreSQL")
	return &Postgres{pool: pool}, nil
}

func (s *Postgres) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes schema.sql, idempotent via IF NOT EXISTS.
func (s *Postgres) InitSchema(ctx context.Context) error {
	schemaBytes, err := os.ReadFile("internal/store/schema.sql")
	if err != nil {
		return fmt.Errorf("store: read schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(schemaBytes)); err != nil {
		return fmt.Errorf("store: exec schema: %w", err)
	}
	log.Println("[Store] schema initialized")
	return nil
}

func (s *Postgres) Create(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("store: marshal order: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO orders (id, user_id, state, state_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, order.ID, order.UserID, string(order.State), data, order.CreatedAt, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create order: %w", err)
	}
	return nil
}

func (s *Postgres) Get(ctx context.Context, orderID string) (*models.Order, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT state_data FROM orders WHERE id = $1`, orderID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get order: %w", err)
	}
	var order models.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, fmt.Errorf("store: unmarshal order: %w", err)
	}
	return &order, nil
}

func (s *Postgres) Save(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("store: marshal order: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE orders SET state = $2, state_data = $3, updated_at = $4 WHERE id = $1
	`, order.ID, string(order.State), data, order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: save order: %w", err)
	}
	return nil
}

// Claim inserts a claim row guarded by a unique constraint on order_id, so a
// second concurrent pipeline task fails with ErrAlreadyClaimed rather than
// racing the first, per spec.md §5.
func (s *Postgres) Claim(ctx context.Context, orderID string) (func(context.Context), error) {
	_, err := s.pool.Exec(ctx, `INSERT INTO order_claims (order_id, claimed_at) VALUES ($1, $2)`, orderID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAlreadyClaimed, err)
	}
	release := func(ctx context.Context) {
		if _, err := s.pool.Exec(ctx, `DELETE FROM order_claims WHERE order_id = $1`, orderID); err != nil {
			log.Printf("[Store] release claim %s: %v", orderID, err)
		}
	}
	return release, nil
}

func (s *Postgres) CreatePosition(ctx context.Context, p *models.Position) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal position: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO positions (id, order_id, user_id, status, state_data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.OrderID, p.UserID, string(p.Status), data, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: create position: %w", err)
	}
	return nil
}

func (s *Postgres) GetPosition(ctx context.Context, id string) (*models.Position, error) {
	return s.scanPosition(ctx, `SELECT state_data FROM positions WHERE id = $1`, id)
}

func (s *Postgres) GetPositionByOrderID(ctx context.Context, orderID string) (*models.Position, error) {
	return s.scanPosition(ctx, `SELECT state_data FROM positions WHERE order_id = $1`, orderID)
}

func (s *Postgres) scanPosition(ctx context.Context, sql string, arg string) (*models.Position, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, sql, arg).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get position: %w", err)
	}
	var p models.Position
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("store: unmarshal position: %w", err)
	}
	return &p, nil
}

func (s *Postgres) UpdatePosition(ctx context.Context, p *models.Position) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store: marshal position: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE positions SET status = $2, state_data = $3, updated_at = $4 WHERE id = $1
	`, p.ID, string(p.Status), data, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("store: update position: %w", err)
	}
	return nil
}

func (s *Postgres) ListPositionsByStatus(ctx context.Context, status models.PositionStatus) ([]*models.Position, error) {
	rows, err := s.pool.Query(ctx, `SELECT state_data FROM positions WHERE status = $1`, string(status))
	if err != nil {
		return nil, fmt.Errorf("store: list positions: %w", err)
	}
	defer rows.Close()

	var out []*models.Position
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("store: scan position: %w", err)
		}
		var p models.Position
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("store: unmarshal position: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}
