package handlers

import (
	"agriconnect/internal/middleware"
	"agriconnect/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Services are the dependencies of the HTTP layer.
type Services struct {
	Auth      *services.AuthService
	Products  *services.ProductService
	Orders    *services.OrderService
	Dashboard *services.DashboardService
}

// SetupRoutes mounts the banner, the health check and every /api route on app.
func SetupRoutes(app *fiber.App, svc Services) {
	app.Get("/", func(c *fiber.Ctx) error {
		return c.SendString("AgriConnect API is running!")
	})
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	api := app.Group("/api")
	auth := middleware.AuthRequired(svc.Auth)

	NewAuthHandler(svc.Auth).RegisterRoutes(api, auth)
	NewProductHandler(svc.Products).RegisterRoutes(api, auth)
	NewOrderHandler(svc.Orders).RegisterRoutes(api, auth)
	NewDashboardHandler(svc.Dashboard).RegisterRoutes(api, auth)
}
