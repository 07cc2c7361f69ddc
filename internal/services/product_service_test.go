package services_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"agriconnect/internal/cache"
	"agriconnect/internal/catalog"
	"agriconnect/internal/models"
	"agriconnect/internal/repositories"
	"agriconnect/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll(ctx context.Context) ([]models.Product, error) {
	args := m.Called(ctx)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByFarmer(ctx context.Context, farmerID string) ([]models.Product, error) {
	args := m.Called(ctx, farmerID)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	args := m.Called(ctx, product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepository) DecrementQuantity(ctx context.Context, id string, qty int) error {
	args := m.Called(ctx, id, qty)
	return args.Error(0)
}

// mapCache is an in-process cache.Cache for tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deletes int
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string][]byte)}
}

func (c *mapCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *mapCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.deletes++
	return nil
}

func (c *mapCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	return ok
}

var (
	farmerActor = services.Actor{ID: "farmer-1", Role: models.RoleFarmer}
	otherFarmer = services.Actor{ID: "farmer-2", Role: models.RoleFarmer}
	buyerActor  = services.Actor{ID: "buyer-1", Role: models.RoleBuyer}
	adminActor  = services.Actor{ID: "admin-1", Role: models.RoleAdmin}
)

func tomorrow() models.Date {
	return models.NewDate(time.Now().AddDate(0, 0, 1))
}

func newUsers(t *testing.T) *repositories.MemoryUserRepository {
	t.Helper()
	users := repositories.NewMemoryUserRepository()
	ctx := context.Background()
	for _, u := range []models.User{
		{ID: farmerActor.ID, Name: "John Farmer", Email: "farmer@example.com", Role: models.RoleFarmer, Location: "Green Valley"},
		{ID: otherFarmer.ID, Name: "Sarah Fields", Email: "sarah@example.com", Role: models.RoleFarmer, Location: "Sunny Hills"},
		{ID: buyerActor.ID, Name: "Alice Consumer", Email: "buyer@example.com", Role: models.RoleBuyer},
		{ID: adminActor.ID, Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin},
	} {
		u := u
		require.NoError(t, users.Create(ctx, &u))
	}
	return users
}

func sampleInput() services.ProductInput {
	return services.ProductInput{
		CropName:       "Organic Tomatoes",
		Description:    "Fresh, locally grown organic tomatoes.",
		Quantity:       100,
		Unit:           "kg",
		Price:          2.99,
		AvailableUntil: tomorrow(),
	}
}

func TestProductService_GetAllProducts_UsesCache(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	c := newMapCache()
	service := services.NewProductService(mockRepo, nil, c, time.Minute)

	expectedProducts := []models.Product{
		{ID: "1", CropName: "Organic Tomatoes", Price: 2.99, Quantity: 100},
		{ID: "2", CropName: "Fresh Carrots", Price: 1.5, Quantity: 50},
	}
	mockRepo.On("GetAll", ctx).Return(expectedProducts, nil).Once()

	products, err := service.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, expectedProducts, products)
	assert.True(t, c.has(cache.KeyProductsAll))

	// second call is served from the cache; the mock allows a single GetAll
	products, err = service.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Equal(t, expectedProducts, products)
	mockRepo.AssertExpectations(t)

	service.InvalidateCatalog(ctx)
	assert.False(t, c.has(cache.KeyProductsAll))
}

func TestProductService_GetProductByID(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockProductRepository)
	service := services.NewProductService(mockRepo, nil, nil, 0)

	expected := &models.Product{ID: "1", CropName: "Organic Tomatoes"}
	mockRepo.On("GetByID", ctx, "1").Return(expected, nil).Once()
	mockRepo.On("GetByID", ctx, "missing").Return(nil, repositories.ErrNotFound).Once()

	product, err := service.GetProductByID(ctx, "1")
	assert.NoError(t, err)
	assert.Equal(t, expected, product)

	_, err = service.GetProductByID(ctx, "missing")
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	mockRepo.AssertExpectations(t)
}

func TestProductService_CreateProduct(t *testing.T) {
	ctx := context.Background()
	c := newMapCache()
	service := services.NewProductService(repositories.NewMemoryProductRepository(), newUsers(t), c, time.Minute)

	product, err := service.CreateProduct(ctx, farmerActor, sampleInput())
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)
	assert.Equal(t, "farmer-1", product.FarmerID)
	assert.Equal(t, "John Farmer", product.FarmerName)
	assert.Equal(t, "Green Valley", product.Location, "location defaults to the farmer's")
	assert.Equal(t, models.DefaultProductImage, product.Image)
	assert.False(t, product.CreatedAt.IsZero())
	assert.Equal(t, 1, c.deletes)

	got, err := service.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.CropName, got.CropName)

	in := sampleInput()
	in.Location = "Riverside"
	in.Image = "https://example.com/t.jpg"
	product, err = service.CreateProduct(ctx, farmerActor, in)
	require.NoError(t, err)
	assert.Equal(t, "Riverside", product.Location)
	assert.Equal(t, "https://example.com/t.jpg", product.Image)
}

func TestProductService_CreateProduct_Rejects(t *testing.T) {
	ctx := context.Background()
	service := services.NewProductService(repositories.NewMemoryProductRepository(), newUsers(t), nil, 0)

	_, err := service.CreateProduct(ctx, buyerActor, sampleInput())
	assert.ErrorIs(t, err, services.ErrForbidden)

	in := sampleInput()
	in.AvailableUntil = models.NewDate(time.Now())
	_, err = service.CreateProduct(ctx, farmerActor, in)
	require.Error(t, err)
	assert.True(t, services.IsValidation(err))
	assert.Contains(t, err.Error(), "must be in the future")

	in.AvailableUntil = models.Date{}
	_, err = service.CreateProduct(ctx, farmerActor, in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Availability date is required")

	products, err := service.GetAllProducts(ctx)
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductService_UpdateProduct(t *testing.T) {
	ctx := context.Background()
	service := services.NewProductService(repositories.NewMemoryProductRepository(), newUsers(t), nil, 0)

	product, err := service.CreateProduct(ctx, farmerActor, sampleInput())
	require.NoError(t, err)

	price := 3.49
	qty := 0
	updated, err := service.UpdateProduct(ctx, farmerActor, product.ID, services.ProductPatch{Price: &price, Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 3.49, updated.Price)
	assert.Equal(t, 0, updated.Quantity)
	assert.Equal(t, "Organic Tomatoes", updated.CropName, "unset fields are kept")

	_, err = service.UpdateProduct(ctx, otherFarmer, product.ID, services.ProductPatch{Price: &price})
	assert.ErrorIs(t, err, services.ErrForbidden)

	name := "Heirloom Tomatoes"
	updated, err = service.UpdateProduct(ctx, adminActor, product.ID, services.ProductPatch{CropName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Heirloom Tomatoes", updated.CropName)

	_, err = service.UpdateProduct(ctx, farmerActor, "missing", services.ProductPatch{Price: &price})
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestProductService_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	service := services.NewProductService(repositories.NewMemoryProductRepository(), newUsers(t), nil, 0)

	product, err := service.CreateProduct(ctx, farmerActor, sampleInput())
	require.NoError(t, err)

	assert.ErrorIs(t, service.DeleteProduct(ctx, otherFarmer, product.ID), services.ErrForbidden)
	require.NoError(t, service.DeleteProduct(ctx, farmerActor, product.ID))

	_, err = service.GetProductByID(ctx, product.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
	assert.ErrorIs(t, service.DeleteProduct(ctx, farmerActor, product.ID), repositories.ErrNotFound)
}

func TestProductService_FilterAndFacets(t *testing.T) {
	ctx := context.Background()
	service := services.NewProductService(repositories.NewMemoryProductRepository(), newUsers(t), nil, 0)

	_, err := service.CreateProduct(ctx, farmerActor, sampleInput())
	require.NoError(t, err)
	carrots := sampleInput()
	carrots.CropName = "Fresh Carrots"
	carrots.Description = "Sweet and crunchy carrots."
	carrots.Price = 1.49
	_, err = service.CreateProduct(ctx, otherFarmer, carrots)
	require.NoError(t, err)

	products, err := service.FilterProducts(ctx, catalog.Filter{Locations: []string{"Sunny Hills"}})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Fresh Carrots", products[0].CropName)

	products, err = service.FilterProducts(ctx, catalog.Filter{})
	require.NoError(t, err)
	assert.Len(t, products, 2)

	facets, err := service.Facets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Organic", "Fresh"}, facets.Categories)
	assert.Equal(t, []string{"Green Valley", "Sunny Hills"}, facets.Locations)
	assert.Equal(t, catalog.DefaultPriceCeiling, facets.PriceCeiling)
}
