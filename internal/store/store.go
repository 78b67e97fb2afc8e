// Package store defines the durable persistence ports for Orders and
// Positions (spec.md §6 "Durable records") plus a pgx-backed Postgres
// implementation.
package store

import (
	"context"
	"errors"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// ErrNotFound is returned when a lookup finds no matching record.
var ErrNotFound = errors.New("store: not found")

// ErrAlreadyClaimed is returned when an Order is already claimed by another
// pipeline task, enforcing spec.md §5's per-entity serialization rule.
var ErrAlreadyClaimed = errors.New("store: order already claimed")

// OrderStore persists Orders and enforces that at most one pipeline task
// processes a given Order at a time.
type OrderStore interface {
	Create(ctx context.Context, order *models.Order) error
	Get(ctx context.Context, orderID string) (*models.Order, error)
	Save(ctx context.Context, order *models.Order) error

	// Claim marks orderID as being worked by this process, returning
	// ErrAlreadyClaimed if another task holds the claim. Release must be
	// called exactly once to free it, including on panic recovery paths.
	Claim(ctx context.Context, orderID string) (release func(ctx context.Context), err error)
}

// PositionStore persists Positions.
type PositionStore interface {
	Create(ctx context.Context, position *models.Position) error
	Get(ctx context.Context, id string) (*models.Position, error)
	GetByOrderID(ctx context.Context, orderID string) (*models.Position, error)
	Update(ctx context.Context, position *models.Position) error
	ListByStatus(ctx context.Context, status models.PositionStatus) ([]*models.Position, error)
}
