package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"agriconnect/internal/cache"
	"agriconnect/internal/catalog"
	"agriconnect/internal/models"
	"agriconnect/internal/repositories"
)

// ProductInput is the body of a new listing.
type ProductInput struct {
	CropName       string      `json:"cropName" validate:"required,max=100"`
	Description    string      `json:"description" validate:"required,max=2000"`
	Quantity       int         `json:"quantity" validate:"gt=0"`
	Unit           string      `json:"unit" validate:"required,max=32"`
	Price          float64     `json:"price" validate:"gt=0"`
	Image          string      `json:"image"`
	AvailableUntil models.Date `json:"availableUntil"`
	Location       string      `json:"location" validate:"omitempty,max=100"`
}

// ProductPatch is a partial update. Nil fields are left unchanged.
type ProductPatch struct {
	CropName       *string      `json:"cropName" validate:"omitempty,min=1,max=100"`
	Description    *string      `json:"description" validate:"omitempty,min=1,max=2000"`
	Quantity       *int         `json:"quantity" validate:"omitempty,gte=0"`
	Unit           *string      `json:"unit" validate:"omitempty,min=1,max=32"`
	Price          *float64     `json:"price" validate:"omitempty,gt=0"`
	Image          *string      `json:"image"`
	AvailableUntil *models.Date `json:"availableUntil"`
	Location       *string      `json:"location" validate:"omitempty,max=100"`
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo     repositories.ProductRepository
	users    repositories.UserRepository
	cache    cache.Cache
	cacheTTL time.Duration
	now      func() time.Time
}

// NewProductService creates a new ProductService. A nil cache disables caching.
func NewProductService(repo repositories.ProductRepository, users repositories.UserRepository, c cache.Cache, cacheTTL time.Duration) *ProductService {
	if c == nil {
		c = cache.Noop{}
	}
	return &ProductService{
		repo:     repo,
		users:    users,
		cache:    c,
		cacheTTL: cacheTTL,
		now:      time.Now,
	}
}

// GetAllProducts retrieves all products, serving from the cache when possible.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	if cached, ok, err := s.cache.Get(ctx, cache.KeyProductsAll); err != nil {
		log.Printf("Product cache read failed: %v", err)
	} else if ok {
		var products []models.Product
		if err := json.Unmarshal(cached, &products); err == nil {
			return products, nil
		}
		log.Printf("Discarding undecodable %s cache entry", cache.KeyProductsAll)
	}

	products, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if body, err := json.Marshal(products); err == nil {
		if err := s.cache.Set(ctx, cache.KeyProductsAll, body, s.cacheTTL); err != nil {
			log.Printf("Product cache write failed: %v", err)
		}
	}
	return products, nil
}

// GetProductsByFarmer retrieves the listings of one farmer.
func (s *ProductService) GetProductsByFarmer(ctx context.Context, farmerID string) ([]models.Product, error) {
	return s.repo.GetByFarmer(ctx, farmerID)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// FilterProducts applies the marketplace filter to the full catalog.
func (s *ProductService) FilterProducts(ctx context.Context, f catalog.Filter) ([]models.Product, error) {
	products, err := s.GetAllProducts(ctx)
	if err != nil {
		return nil, err
	}
	if f.IsEmpty() {
		return products, nil
	}
	return catalog.Apply(products, f), nil
}

// Facets returns the filter choices for the current catalog.
func (s *ProductService) Facets(ctx context.Context) (catalog.Facets, error) {
	products, err := s.GetAllProducts(ctx)
	if err != nil {
		return catalog.Facets{}, err
	}
	return catalog.BuildFacets(products), nil
}

// CreateProduct lists a new product for the acting farmer. The owner fields
// come from the farmer's account, not from the input.
func (s *ProductService) CreateProduct(ctx context.Context, actor Actor, in ProductInput) (*models.Product, error) {
	if actor.Role != models.RoleFarmer && !actor.IsAdmin() {
		return nil, fmt.Errorf("only farmers can list products: %w", ErrForbidden)
	}
	if err := s.checkAvailableUntil(in.AvailableUntil); err != nil {
		return nil, err
	}
	farmer, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load farmer %s: %w", actor.ID, err)
	}

	product := &models.Product{
		CropName:       strings.TrimSpace(in.CropName),
		Description:    strings.TrimSpace(in.Description),
		Quantity:       in.Quantity,
		Unit:           strings.TrimSpace(in.Unit),
		Price:          in.Price,
		Image:          in.Image,
		AvailableUntil: in.AvailableUntil,
		FarmerID:       farmer.ID,
		FarmerName:     farmer.Name,
		Location:       strings.TrimSpace(in.Location),
	}
	if product.Image == "" {
		product.Image = models.DefaultProductImage
	}
	if product.Location == "" {
		product.Location = farmer.Location
	}
	now := s.now().UTC()
	product.CreatedAt, product.UpdatedAt = now, now

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.InvalidateCatalog(ctx)
	log.Printf("Product %s (%s) listed by farmer %s", product.ID, product.CropName, product.FarmerID)
	return product, nil
}

// UpdateProduct merges patch into an existing product owned by the actor.
func (s *ProductService) UpdateProduct(ctx context.Context, actor Actor, id string, patch ProductPatch) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanActFor(product.FarmerID) {
		return nil, fmt.Errorf("product %s belongs to another farmer: %w", id, ErrForbidden)
	}
	if patch.AvailableUntil != nil {
		if err := s.checkAvailableUntil(*patch.AvailableUntil); err != nil {
			return nil, err
		}
		product.AvailableUntil = *patch.AvailableUntil
	}
	if patch.CropName != nil {
		product.CropName = strings.TrimSpace(*patch.CropName)
	}
	if patch.Description != nil {
		product.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Quantity != nil {
		product.Quantity = *patch.Quantity
	}
	if patch.Unit != nil {
		product.Unit = strings.TrimSpace(*patch.Unit)
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Image != nil {
		product.Image = *patch.Image
		if product.Image == "" {
			product.Image = models.DefaultProductImage
		}
	}
	if patch.Location != nil {
		product.Location = strings.TrimSpace(*patch.Location)
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	s.InvalidateCatalog(ctx)
	return product, nil
}

// DeleteProduct deletes a product owned by the actor.
func (s *ProductService) DeleteProduct(ctx context.Context, actor Actor, id string) error {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanActFor(product.FarmerID) {
		return fmt.Errorf("product %s belongs to another farmer: %w", id, ErrForbidden)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateCatalog(ctx)
	return nil
}

// InvalidateCatalog drops the cached listing after any quantity or listing change.
func (s *ProductService) InvalidateCatalog(ctx context.Context) {
	if err := s.cache.Delete(ctx, cache.KeyProductsAll); err != nil {
		log.Printf("Product cache invalidation failed: %v", err)
	}
}

func (s *ProductService) checkAvailableUntil(d models.Date) error {
	if d.IsZero() {
		return newValidationError("availableUntil", "Availability date is required")
	}
	if !d.After(models.NewDate(s.now()).Time) {
		return newValidationError("availableUntil", "Availability date must be in the future")
	}
	return nil
}
