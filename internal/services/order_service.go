package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"agriconnect/internal/models"
	"agriconnect/internal/repositories"
	"agriconnect/pkg/rabbitmq"

	"github.com/shopspring/decimal"
)

// EventPublisher publishes a message body to an exchange.
type EventPublisher interface {
	Publish(exchange, routingKey string, body []byte) error
}

// CatalogInvalidator is told whenever an order changes product quantities.
type CatalogInvalidator interface {
	InvalidateCatalog(ctx context.Context)
}

// OrderInput is the body of a new order. Buyer and farmer details are taken
// from the authenticated buyer and the product, and totalPrice is computed.
type OrderInput struct {
	ProductID       string `json:"productId" validate:"required"`
	QuantityOrdered int    `json:"quantityOrdered" validate:"gt=0"`
}

// OrderEvent is the JSON body published for order lifecycle events.
type OrderEvent struct {
	Event           string             `json:"event"`
	OrderID         string             `json:"orderId"`
	ProductID       string             `json:"productId"`
	BuyerID         string             `json:"buyerId"`
	FarmerID        string             `json:"farmerId"`
	QuantityOrdered int                `json:"quantityOrdered"`
	TotalPrice      float64            `json:"totalPrice"`
	Status          models.OrderStatus `json:"status"`
	OccurredAt      time.Time          `json:"occurredAt"`
}

var orderTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending:   {models.OrderStatusConfirmed, models.OrderStatusCanceled},
	models.OrderStatusConfirmed: {models.OrderStatusDelivered},
}

// CanTransition reports whether an order may move from one status to another.
// Delivered and Canceled are terminal.
func CanTransition(from, to models.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderService handles business logic related to orders.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	userRepo    repositories.UserRepository
	tx          repositories.TxManager
	catalog     CatalogInvalidator
	mqClient    EventPublisher // nil disables events
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	userRepo repositories.UserRepository,
	tx repositories.TxManager,
	catalog CatalogInvalidator,
	mqClient EventPublisher,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		tx:          tx,
		catalog:     catalog,
		mqClient:    mqClient,
	}
}

// OrderTotal is quantity × unit price rounded to cents.
func OrderTotal(quantity int, unitPrice float64) float64 {
	return decimal.NewFromFloat(unitPrice).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}

// CreateOrder places a Pending order and takes the ordered units out of the
// product's quantity in the same transaction. Orders for more than the
// remaining quantity fail with repositories.ErrInsufficientQuantity.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, in OrderInput) (*models.Order, error) {
	if actor.Role != models.RoleBuyer && !actor.IsAdmin() {
		return nil, fmt.Errorf("only buyers can place orders: %w", ErrForbidden)
	}
	if in.QuantityOrdered <= 0 {
		return nil, newValidationError("quantityOrdered", "Quantity must be a positive number")
	}
	buyer, err := s.userRepo.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load buyer %s: %w", actor.ID, err)
	}

	var newOrder *models.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		product, err := s.productRepo.GetByID(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if err := s.productRepo.DecrementQuantity(ctx, product.ID, in.QuantityOrdered); err != nil {
			return err
		}

		now := time.Now().UTC()
		newOrder = &models.Order{
			ProductID:       product.ID,
			BuyerID:         buyer.ID,
			BuyerName:       buyer.Name,
			FarmerID:        product.FarmerID,
			FarmerName:      product.FarmerName,
			QuantityOrdered: in.QuantityOrdered,
			TotalPrice:      OrderTotal(in.QuantityOrdered, product.Price),
			Status:          models.OrderStatusPending,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		return s.orderRepo.Create(ctx, newOrder)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create order for product %s: %w", in.ProductID, err)
	}

	if s.catalog != nil {
		s.catalog.InvalidateCatalog(ctx)
	}
	s.publish(rabbitmq.RoutingOrderCreated, newOrder)
	log.Printf("Order %s placed by buyer %s for %d units of product %s", newOrder.ID, newOrder.BuyerID, newOrder.QuantityOrdered, newOrder.ProductID)

	if err := s.attachProduct(ctx, newOrder, nil); err != nil {
		return nil, err
	}
	return newOrder, nil
}

// UpdateOrderStatus moves an order along Pending → Confirmed → Delivered or
// Pending → Canceled. Confirming and delivering are the farmer's call; either
// party may cancel.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor Actor, id string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, newValidationError("status", fmt.Sprintf("invalid order status: %s", status))
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canSetStatus(actor, order, status) {
		return nil, fmt.Errorf("user %s may not mark order %s as %s: %w", actor.ID, id, status, ErrForbidden)
	}
	if !CanTransition(order.Status, status) {
		return nil, fmt.Errorf("order %s is %s, cannot become %s: %w", id, order.Status, status, ErrInvalidTransition)
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status for order %s: %w", id, err)
	}
	s.publish(rabbitmq.RoutingOrderStatusUpdated, updated)

	if err := s.attachProduct(ctx, updated, nil); err != nil {
		return nil, err
	}
	return updated, nil
}

func canSetStatus(actor Actor, order *models.Order, status models.OrderStatus) bool {
	if actor.IsAdmin() {
		return true
	}
	switch status {
	case models.OrderStatusCanceled:
		return actor.ID == order.BuyerID || actor.ID == order.FarmerID
	default:
		return actor.ID == order.FarmerID
	}
}

// GetOrderByID retrieves a single order visible to the actor.
func (s *OrderService) GetOrderByID(ctx context.Context, actor Actor, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(order.BuyerID) && !actor.CanActFor(order.FarmerID) {
		return nil, fmt.Errorf("order %s: %w", id, ErrForbidden)
	}
	if err := s.attachProduct(ctx, order, nil); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrdersByBuyer retrieves the orders placed by buyerID.
func (s *OrderService) GetOrdersByBuyer(ctx context.Context, actor Actor, buyerID string) ([]models.Order, error) {
	if !actor.CanActFor(buyerID) {
		return nil, fmt.Errorf("orders of buyer %s: %w", buyerID, ErrForbidden)
	}
	orders, err := s.orderRepo.GetByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return s.attachProducts(ctx, orders)
}

// GetOrdersByFarmer retrieves the orders placed against farmerID's products.
func (s *OrderService) GetOrdersByFarmer(ctx context.Context, actor Actor, farmerID string) ([]models.Order, error) {
	if !actor.CanActFor(farmerID) {
		return nil, fmt.Errorf("orders of farmer %s: %w", farmerID, ErrForbidden)
	}
	orders, err := s.orderRepo.GetByFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	return s.attachProducts(ctx, orders)
}

func (s *OrderService) attachProducts(ctx context.Context, orders []models.Order) ([]models.Order, error) {
	seen := make(map[string]*models.Product)
	for i := range orders {
		if err := s.attachProduct(ctx, &orders[i], seen); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// attachProduct joins the product's current state onto the order. A deleted
// product leaves Product nil.
func (s *OrderService) attachProduct(ctx context.Context, order *models.Order, seen map[string]*models.Product) error {
	if p, ok := seen[order.ProductID]; ok {
		order.Product = p
		return nil
	}
	product, err := s.productRepo.GetByID(ctx, order.ProductID)
	if errors.Is(err, repositories.ErrNotFound) {
		product, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("failed to load product for order %s: %w", order.ID, err)
	}
	if seen != nil {
		seen[order.ProductID] = product
	}
	order.Product = product
	return nil
}

// publish never fails the caller: the order is already committed.
func (s *OrderService) publish(routingKey string, order *models.Order) {
	if s.mqClient == nil {
		return
	}
	body, err := json.Marshal(OrderEvent{
		Event:           routingKey,
		OrderID:         order.ID,
		ProductID:       order.ProductID,
		BuyerID:         order.BuyerID,
		FarmerID:        order.FarmerID,
		QuantityOrdered: order.QuantityOrdered,
		TotalPrice:      order.TotalPrice,
		Status:          order.Status,
		OccurredAt:      order.UpdatedAt,
	})
	if err != nil {
		log.Printf("Failed to marshal %s event for order %s: %v", routingKey, order.ID, err)
		return
	}
	if err := s.mqClient.Publish(rabbitmq.OrderExchange, routingKey, body); err != nil {
		log.Printf("Warning: Failed to publish %s event for order %s: %v", routingKey, order.ID, err)
	}
}
