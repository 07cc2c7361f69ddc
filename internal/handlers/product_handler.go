package handlers

import (
	"bytes"
	"fmt"
	"log"
	"strconv"
	"strings"

	"agriconnect/internal/catalog"
	"agriconnect/internal/middleware"
	"agriconnect/internal/models"
	"agriconnect/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  *services.ProductService
	validate *validator.Validate
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(service *services.ProductService) *ProductHandler {
	return &ProductHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the product routes. Reads are public, writes
// need auth.
func (h *ProductHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	sellers := middleware.RoleRequired(models.RoleFarmer, models.RoleAdmin)

	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/facets", h.HandleGetFacets)
	productRoutes.Get("/farmer/:farmerId", h.HandleGetFarmerProducts)
	productRoutes.Get("/farmer/:farmerId/export", auth, sellers, h.HandleExportFarmerProducts)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/", auth, sellers, h.HandleCreateProduct)
	productRoutes.Put("/:id", auth, h.HandleUpdateProduct)
	productRoutes.Delete("/:id", auth, h.HandleDeleteProduct)
}

// HandleGetProducts lists the catalog, narrowed by the optional search,
// category, location and maxPrice query parameters.
func (h *ProductHandler) HandleGetProducts(c *fiber.Ctx) error {
	filter, err := parseFilter(c)
	if err != nil {
		return respondError(c, err, "Invalid filter")
	}
	products, err := h.service.FilterProducts(c.UserContext(), filter)
	if err != nil {
		log.Printf("Error getting products: %v", err)
		return respondError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// parseFilter reads category and location as repeated or comma-separated values.
func parseFilter(c *fiber.Ctx) (catalog.Filter, error) {
	args := c.Context().QueryArgs()
	multi := func(key string) []string {
		var out []string
		for _, raw := range args.PeekMulti(key) {
			for _, v := range strings.Split(string(raw), ",") {
				if v = strings.TrimSpace(v); v != "" {
					out = append(out, v)
				}
			}
		}
		return out
	}

	f := catalog.Filter{
		Search:     c.Query("search"),
		Categories: multi("category"),
		Locations:  multi("location"),
	}
	if raw := c.Query("maxPrice"); raw != "" {
		maxPrice, err := strconv.ParseFloat(raw, 64)
		if err != nil || maxPrice < 0 {
			return catalog.Filter{}, &services.ValidationError{Fields: map[string]string{
				"maxPrice": fmt.Sprintf("invalid price ceiling %q", raw),
			}}
		}
		f.MaxPrice = &maxPrice
	}
	return f, nil
}

// HandleGetFacets returns the filter choices for the current catalog.
func (h *ProductHandler) HandleGetFacets(c *fiber.Ctx) error {
	facets, err := h.service.Facets(c.UserContext())
	if err != nil {
		log.Printf("Error building facets: %v", err)
		return respondError(c, err, "Could not retrieve facets")
	}
	return c.JSON(facets)
}

// HandleGetFarmerProducts lists one farmer's products.
func (h *ProductHandler) HandleGetFarmerProducts(c *fiber.Ctx) error {
	farmerID := c.Params("farmerId")
	products, err := h.service.GetProductsByFarmer(c.UserContext(), farmerID)
	if err != nil {
		log.Printf("Error getting products for farmer %s: %v", farmerID, err)
		return respondError(c, err, "Could not retrieve products")
	}
	return c.JSON(products)
}

// HandleExportFarmerProducts sends the farmer's listings as an xlsx workbook.
func (h *ProductHandler) HandleExportFarmerProducts(c *fiber.Ctx) error {
	farmerID := c.Params("farmerId")
	actor, _ := middleware.ActorFrom(c)
	if !actor.CanActFor(farmerID) {
		return respondError(c, services.ErrForbidden, "You can only export your own products")
	}

	products, err := h.service.GetProductsByFarmer(c.UserContext(), farmerID)
	if err != nil {
		log.Printf("Error getting products for export of farmer %s: %v", farmerID, err)
		return respondError(c, err, "Could not export products")
	}

	var buf bytes.Buffer
	if err := WriteProductsXLSX(&buf, products); err != nil {
		log.Printf("Error writing product export for farmer %s: %v", farmerID, err)
		return respondError(c, err, "Could not export products")
	}

	c.Attachment(fmt.Sprintf("products-%s.xlsx", farmerID))
	c.Set(fiber.HeaderContentType, XLSXContentType)
	return c.Send(buf.Bytes())
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *ProductHandler) HandleGetProductByID(c *fiber.Ctx) error {
	productID := c.Params("id")
	product, err := h.service.GetProductByID(c.UserContext(), productID)
	if err != nil {
		log.Printf("Error getting product by ID %s: %v", productID, err)
		return respondError(c, err, fmt.Sprintf("Product with ID %s not found", productID))
	}
	return c.JSON(product)
}

// HandleCreateProduct lists a new product for the authenticated farmer.
func (h *ProductHandler) HandleCreateProduct(c *fiber.Ctx) error {
	var in services.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}

	actor, _ := middleware.ActorFrom(c)
	product, err := h.service.CreateProduct(c.UserContext(), actor, in)
	if err != nil {
		log.Printf("Error creating product: %v", err)
		return respondError(c, err, "Could not create product")
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

// HandleUpdateProduct applies a partial update to a product.
func (h *ProductHandler) HandleUpdateProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	var patch services.ProductPatch
	if err := c.BodyParser(&patch); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(patch); err != nil {
		return validationFailed(c, err)
	}

	actor, _ := middleware.ActorFrom(c)
	product, err := h.service.UpdateProduct(c.UserContext(), actor, productID, patch)
	if err != nil {
		log.Printf("Error updating product %s: %v", productID, err)
		return respondError(c, err, "Could not update product")
	}
	return c.JSON(product)
}

// HandleDeleteProduct deletes a product.
func (h *ProductHandler) HandleDeleteProduct(c *fiber.Ctx) error {
	productID := c.Params("id")
	actor, _ := middleware.ActorFrom(c)
	if err := h.service.DeleteProduct(c.UserContext(), actor, productID); err != nil {
		log.Printf("Error deleting product %s: %v", productID, err)
		return respondError(c, err, "Could not delete product")
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Product %s deleted successfully", productID),
	})
}
