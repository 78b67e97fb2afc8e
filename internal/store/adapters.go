package store

import (
	"context"

	"github.com/rawblock/snipe-engine/pkg/models"
)

// PostgresOrders adapts Postgres to the OrderStore port.
type PostgresOrders struct{ DB *Postgres }

func (a PostgresOrders) Create(ctx context.Context, o *models.Order) error { return a.DB.Create(ctx, o) }
func (a PostgresOrders) Get(ctx context.Context, id string) (*models.Order, error) {
	return a.DB.Get(ctx, id)
}
func (a PostgresOrders) Save(ctx context.Context, o *models.Order) error { return a.DB.Save(ctx, o) }
func (a PostgresOrders) Claim(ctx context.Context, id string) (func(context.Context), error) {
	return a.DB.Claim(ctx, id)
}

// PostgresPositions adapts Postgres to the PositionStore port.
type PostgresPositions struct{ DB *Postgres }

func (a PostgresPositions) Create(ctx context.Context, p *models.Position) error {
	return a.DB.CreatePosition(ctx, p)
}
func (a PostgresPositions) Get(ctx context.Context, id string) (*models.Position, error) {
	return a.DB.GetPosition(ctx, id)
}
func (a PostgresPositions) GetByOrderID(ctx context.Context, orderID string) (*models.Position, error) {
	return a.DB.GetPositionByOrderID(ctx, orderID)
}
func (a PostgresPositions) Update(ctx context.Context, p *models.Position) error {
	return a.DB.UpdatePosition(ctx, p)
}
func (a PostgresPositions) ListByStatus(ctx context.Context, status models.PositionStatus) ([]*models.Position, error) {
	return a.DB.ListPositionsByStatus(ctx, status)
}

var _ OrderStore = PostgresOrders{}
var _ PositionStore = PostgresPositions{}
