package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"agriconnect/internal/models"
	"agriconnect/internal/repositories"
	"agriconnect/internal/services"
	"agriconnect/pkg/rabbitmq"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPublisher is a mock implementation of services.EventPublisher
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(exchange, routingKey string, body []byte) error {
	args := m.Called(exchange, routingKey, body)
	return args.Error(0)
}

type orderFixture struct {
	products *services.ProductService
	orders   *services.OrderService
	repo     *repositories.MemoryOrderRepository
	product  *models.Product
	pub      *MockPublisher
	cache    *mapCache
}

func newOrderFixture(t *testing.T, quantity int) *orderFixture {
	t.Helper()
	ctx := context.Background()
	users := newUsers(t)
	productRepo := repositories.NewMemoryProductRepository()
	orderRepo := repositories.NewMemoryOrderRepository()
	c := newMapCache()
	products := services.NewProductService(productRepo, users, c, 0)
	pub := new(MockPublisher)
	pub.On("Publish", rabbitmq.OrderExchange, mock.Anything, mock.Anything).Return(nil).Maybe()

	in := sampleInput()
	in.Quantity = quantity
	in.Price = 2.99
	product, err := products.CreateProduct(ctx, farmerActor, in)
	require.NoError(t, err)

	return &orderFixture{
		products: products,
		orders:   services.NewOrderService(orderRepo, productRepo, users, repositories.NewMemoryTxManager(), products, pub),
		repo:     orderRepo,
		product:  product,
		pub:      pub,
		cache:    c,
	}
}

func TestOrderService_CreateOrder_DecrementsQuantity(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 100)
	deletesBefore := f.cache.deletes

	order, err := f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 10})
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, "Alice Consumer", order.BuyerName)
	assert.Equal(t, "farmer-1", order.FarmerID)
	assert.Equal(t, "John Farmer", order.FarmerName)
	assert.Equal(t, 29.9, order.TotalPrice)
	require.NotNil(t, order.Product)
	assert.Equal(t, 90, order.Product.Quantity)

	product, err := f.products.GetProductByID(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, product.Quantity)
	assert.Greater(t, f.cache.deletes, deletesBefore, "catalog cache is invalidated")

	f.pub.AssertCalled(t, "Publish", rabbitmq.OrderExchange, rabbitmq.RoutingOrderCreated, mock.MatchedBy(func(body []byte) bool {
		var ev services.OrderEvent
		return json.Unmarshal(body, &ev) == nil && ev.OrderID == order.ID && ev.QuantityOrdered == 10
	}))
}

func TestOrderService_CreateOrder_ExactQuantity(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 5)

	_, err := f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 5})
	require.NoError(t, err)

	product, err := f.products.GetProductByID(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Quantity)
}

func TestOrderService_CreateOrder_RejectsOversell(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 5)

	_, err := f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 6})
	assert.ErrorIs(t, err, repositories.ErrInsufficientQuantity)

	product, err := f.products.GetProductByID(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, product.Quantity)

	orders, err := f.repo.GetByBuyer(ctx, buyerActor.ID)
	require.NoError(t, err)
	assert.Empty(t, orders)
	f.pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestOrderService_CreateOrder_Rejects(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 5)

	_, err := f.orders.CreateOrder(ctx, farmerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 1})
	assert.ErrorIs(t, err, services.ErrForbidden)

	_, err = f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 0})
	assert.True(t, services.IsValidation(err))

	_, err = f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: "missing", QuantityOrdered: 1})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestOrderService_CreateOrder_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 10)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, rejected := 0, 0
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 1})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, repositories.ErrInsufficientQuantity):
				rejected++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, 15, rejected)
	product, err := f.products.GetProductByID(ctx, f.product.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, product.Quantity)
}

func TestOrderService_TotalFrozenAfterPriceChange(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 100)

	order, err := f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 3})
	require.NoError(t, err)
	assert.Equal(t, 8.97, order.TotalPrice)

	price := 5.0
	_, err = f.products.UpdateProduct(ctx, farmerActor, f.product.ID, services.ProductPatch{Price: &price})
	require.NoError(t, err)

	got, err := f.orders.GetOrderByID(ctx, buyerActor, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 8.97, got.TotalPrice)
	require.NotNil(t, got.Product)
	assert.Equal(t, 5.0, got.Product.Price)
}

func TestOrderService_DeletedProductLeavesOrder(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 100)

	order, err := f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 1})
	require.NoError(t, err)
	require.NoError(t, f.products.DeleteProduct(ctx, farmerActor, f.product.ID))

	orders, err := f.orders.GetOrdersByBuyer(ctx, buyerActor, buyerActor.ID)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, order.ID, orders[0].ID)
	assert.Nil(t, orders[0].Product)
}

func TestOrderService_UpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 100)

	order, err := f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 1})
	require.NoError(t, err)

	// only the farmer confirms
	_, err = f.orders.UpdateOrderStatus(ctx, buyerActor, order.ID, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = f.orders.UpdateOrderStatus(ctx, otherFarmer, order.ID, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, services.ErrForbidden)

	// Pending cannot skip to Delivered
	_, err = f.orders.UpdateOrderStatus(ctx, farmerActor, order.ID, models.OrderStatusDelivered)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	confirmed, err := f.orders.UpdateOrderStatus(ctx, farmerActor, order.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, confirmed.Status)
	assert.NotNil(t, confirmed.Product)

	// Confirmed cannot be canceled
	_, err = f.orders.UpdateOrderStatus(ctx, buyerActor, order.ID, models.OrderStatusCanceled)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	delivered, err := f.orders.UpdateOrderStatus(ctx, farmerActor, order.ID, models.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusDelivered, delivered.Status)

	_, err = f.orders.UpdateOrderStatus(ctx, adminActor, order.ID, "Shipped")
	assert.True(t, services.IsValidation(err))

	_, err = f.orders.UpdateOrderStatus(ctx, adminActor, "missing", models.OrderStatusCanceled)
	assert.ErrorIs(t, err, repositories.ErrNotFound)

	f.pub.AssertCalled(t, "Publish", rabbitmq.OrderExchange, rabbitmq.RoutingOrderStatusUpdated, mock.Anything)
}

func TestOrderService_BuyerCancels(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 100)

	order, err := f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 1})
	require.NoError(t, err)

	canceled, err := f.orders.UpdateOrderStatus(ctx, buyerActor, order.ID, models.OrderStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCanceled, canceled.Status)

	// Canceled is terminal in the service
	_, err = f.orders.UpdateOrderStatus(ctx, farmerActor, order.ID, models.OrderStatusConfirmed)
	assert.ErrorIs(t, err, services.ErrInvalidTransition)

	// while the store itself accepts any status
	raw, err := f.repo.UpdateStatus(ctx, order.ID, models.OrderStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusConfirmed, raw.Status)
}

func TestOrderService_PublishFailureDoesNotFailOrder(t *testing.T) {
	ctx := context.Background()
	users := newUsers(t)
	productRepo := repositories.NewMemoryProductRepository()
	products := services.NewProductService(productRepo, users, nil, 0)
	product, err := products.CreateProduct(ctx, farmerActor, sampleInput())
	require.NoError(t, err)

	pub := new(MockPublisher)
	pub.On("Publish", rabbitmq.OrderExchange, rabbitmq.RoutingOrderCreated, mock.Anything).Return(errors.New("broker down")).Once()
	orders := services.NewOrderService(repositories.NewMemoryOrderRepository(), productRepo, users, repositories.NewMemoryTxManager(), products, pub)

	order, err := orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: product.ID, QuantityOrdered: 1})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	pub.AssertExpectations(t)
}

func TestOrderService_ReadsAreScopedToParties(t *testing.T) {
	ctx := context.Background()
	f := newOrderFixture(t, 100)

	order, err := f.orders.CreateOrder(ctx, buyerActor, services.OrderInput{ProductID: f.product.ID, QuantityOrdered: 2})
	require.NoError(t, err)

	_, err = f.orders.GetOrderByID(ctx, otherFarmer, order.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)
	_, err = f.orders.GetOrderByID(ctx, farmerActor, order.ID)
	assert.NoError(t, err)

	_, err = f.orders.GetOrdersByBuyer(ctx, farmerActor, buyerActor.ID)
	assert.ErrorIs(t, err, services.ErrForbidden)

	farmerOrders, err := f.orders.GetOrdersByFarmer(ctx, farmerActor, farmerActor.ID)
	require.NoError(t, err)
	assert.Len(t, farmerOrders, 1)

	adminView, err := f.orders.GetOrdersByFarmer(ctx, adminActor, farmerActor.ID)
	require.NoError(t, err)
	assert.Len(t, adminView, 1)
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.OrderStatus
		want     bool
	}{
		{models.OrderStatusPending, models.OrderStatusConfirmed, true},
		{models.OrderStatusPending, models.OrderStatusCanceled, true},
		{models.OrderStatusConfirmed, models.OrderStatusDelivered, true},
		{models.OrderStatusPending, models.OrderStatusDelivered, false},
		{models.OrderStatusConfirmed, models.OrderStatusCanceled, false},
		{models.OrderStatusDelivered, models.OrderStatusPending, false},
		{models.OrderStatusCanceled, models.OrderStatusConfirmed, false},
		{models.OrderStatusPending, models.OrderStatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, services.CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderTotal(t *testing.T) {
	assert.Equal(t, 29.9, services.OrderTotal(10, 2.99))
	assert.Equal(t, 0.3, services.OrderTotal(3, 0.1))
	assert.Equal(t, 8.97, services.OrderTotal(3, 2.99))
}
