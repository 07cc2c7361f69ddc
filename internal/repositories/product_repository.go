package repositories

import (
	"context"

	"agriconnect/internal/models"
)

// ProductRepository defines the interface for product data access.
// List methods return products in creation order.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByFarmer(ctx context.Context, farmerID string) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	// DecrementQuantity atomically subtracts qty from the product's quantity
	// only if the remaining quantity is at least qty.
	DecrementQuantity(ctx context.Context, id string, qty int) error
}
