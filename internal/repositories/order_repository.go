package repositories

import (
	"context"

	"agriconnect/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are never deleted.
type OrderRepository interface {
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByBuyer(ctx context.Context, buyerID string) ([]models.Order, error)
	GetByFarmer(ctx context.Context, farmerID string) ([]models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	// UpdateStatus overwrites the status and updatedAt of an order. It does not
	// check that the new status is a legal successor of the current one.
	UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}
