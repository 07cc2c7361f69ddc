package handlers

import (
	"fmt"
	"log"

	"agriconnect/internal/middleware"
	"agriconnect/internal/models"
	"agriconnect/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the order routes. Every order route needs auth.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	orderRoutes := router.Group("/orders", auth)
	orderRoutes.Get("/buyer/:buyerId", h.HandleGetBuyerOrders)
	orderRoutes.Get("/farmer/:farmerId", h.HandleGetFarmerOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/", middleware.RoleRequired(models.RoleBuyer, models.RoleAdmin), h.HandleCreateOrder)
	orderRoutes.Put("/:id/status", h.HandleUpdateOrderStatus)
}

// HandleGetBuyerOrders lists the orders a buyer has placed.
func (h *OrderHandler) HandleGetBuyerOrders(c *fiber.Ctx) error {
	buyerID := c.Params("buyerId")
	actor, _ := middleware.ActorFrom(c)
	orders, err := h.service.GetOrdersByBuyer(c.UserContext(), actor, buyerID)
	if err != nil {
		log.Printf("Error getting orders for buyer %s: %v", buyerID, err)
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetFarmerOrders lists the orders placed against a farmer's products.
func (h *OrderHandler) HandleGetFarmerOrders(c *fiber.Ctx) error {
	farmerID := c.Params("farmerId")
	actor, _ := middleware.ActorFrom(c)
	orders, err := h.service.GetOrdersByFarmer(c.UserContext(), actor, farmerID)
	if err != nil {
		log.Printf("Error getting orders for farmer %s: %v", farmerID, err)
		return respondError(c, err, "Could not retrieve orders")
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID := c.Params("id")
	actor, _ := middleware.ActorFrom(c)
	order, err := h.service.GetOrderByID(c.UserContext(), actor, orderID)
	if err != nil {
		log.Printf("Error getting order by ID %s: %v", orderID, err)
		return respondError(c, err, fmt.Sprintf("Order with ID %s not found", orderID))
	}
	return c.JSON(order)
}

// HandleCreateOrder places an order for the authenticated buyer.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var in services.OrderInput
	if err := c.BodyParser(&in); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(in); err != nil {
		return validationFailed(c, err)
	}

	actor, _ := middleware.ActorFrom(c)
	createdOrder, err := h.service.CreateOrder(c.UserContext(), actor, in)
	if err != nil {
		log.Printf("Error creating order: %v", err)
		return respondError(c, err, "Could not create order")
	}
	return c.Status(fiber.StatusCreated).JSON(createdOrder)
}

// StatusUpdateRequest is the body of PUT /orders/:id/status.
type StatusUpdateRequest struct {
	Status models.OrderStatus `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID := c.Params("id")
	var req StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return badBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return validationFailed(c, err)
	}

	actor, _ := middleware.ActorFrom(c)
	order, err := h.service.UpdateOrderStatus(c.UserContext(), actor, orderID, req.Status)
	if err != nil {
		log.Printf("Error updating order status for order %s: %v", orderID, err)
		return respondError(c, err, "Could not update order status")
	}
	return c.JSON(order)
}
