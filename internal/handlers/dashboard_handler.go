package handlers

import (
	"log"

	"agriconnect/internal/middleware"
	"agriconnect/internal/services"

	"github.com/gofiber/fiber/v2"
)

// DashboardHandler serves the farmer and buyer summary cards.
type DashboardHandler struct {
	service *services.DashboardService
}

func NewDashboardHandler(service *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{service: service}
}

func (h *DashboardHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	dashboardRoutes := router.Group("/dashboard", auth)
	dashboardRoutes.Get("/farmer/:farmerId", h.HandleFarmerDashboard)
	dashboardRoutes.Get("/buyer/:buyerId", h.HandleBuyerDashboard)
}

func (h *DashboardHandler) HandleFarmerDashboard(c *fiber.Ctx) error {
	farmerID := c.Params("farmerId")
	actor, _ := middleware.ActorFrom(c)
	stats, err := h.service.FarmerStats(c.UserContext(), actor, farmerID)
	if err != nil {
		log.Printf("Error building dashboard for farmer %s: %v", farmerID, err)
		return respondError(c, err, "Could not load dashboard")
	}
	return c.JSON(stats)
}

func (h *DashboardHandler) HandleBuyerDashboard(c *fiber.Ctx) error {
	buyerID := c.Params("buyerId")
	actor, _ := middleware.ActorFrom(c)
	stats, err := h.service.BuyerStats(c.UserContext(), actor, buyerID)
	if err != nil {
		log.Printf("Error building dashboard for buyer %s: %v", buyerID, err)
		return respondError(c, err, "Could not load dashboard")
	}
	return c.JSON(stats)
}
