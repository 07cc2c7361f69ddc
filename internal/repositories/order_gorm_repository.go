package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"agriconnect/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{
		db: db,
	}
}

// GetByID retrieves a single order by its ID.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := conn(ctx, r.db).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("order with ID %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByBuyer retrieves the orders placed by a buyer.
func (r *GORMOrderRepository) GetByBuyer(ctx context.Context, buyerID string) ([]models.Order, error) {
	return r.findWhere(ctx, "buyer_id = ?", buyerID)
}

// GetByFarmer retrieves the orders placed against a farmer's products.
func (r *GORMOrderRepository) GetByFarmer(ctx context.Context, farmerID string) ([]models.Order, error) {
	return r.findWhere(ctx, "farmer_id = ?", farmerID)
}

func (r *GORMOrderRepository) findWhere(ctx context.Context, query string, arg string) ([]models.Order, error) {
	var orders []models.Order
	if err := conn(ctx, r.db).Where(query, arg).Order("created_at asc, id asc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// Create inserts a new order.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := conn(ctx, r.db).Create(order).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("order with ID %s: %w", order.ID, ErrDuplicate)
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// UpdateStatus overwrites the status of an order and returns the stored row.
func (r *GORMOrderRepository) UpdateStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	db := conn(ctx, r.db)
	res := db.Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update order status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("order with ID %s not found for status update: %w", id, ErrNotFound)
	}
	return r.GetByID(ctx, id)
}
