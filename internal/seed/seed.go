// Package seed loads the demo marketplace: five accounts, six listings and
// three orders.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"agriconnect/internal/models"
	"agriconnect/internal/repositories"
	"agriconnect/internal/services"
)

// DemoPassword is the password of every demo account.
const DemoPassword = "password123"

// Registrar creates accounts with hashed passwords.
type Registrar interface {
	RegisterUser(ctx context.Context, user *models.User) error
}

// Users returns the demo accounts with plaintext passwords.
func Users() []models.User {
	return []models.User{
		{ID: "1", Name: "John Farmer", Email: "farmer@example.com", Role: models.RoleFarmer, Location: "Green Valley", Phone: "555-0101"},
		{ID: "2", Name: "Sarah Fields", Email: "sarah@example.com", Role: models.RoleFarmer, Location: "Sunny Hills", Phone: "555-0102"},
		{ID: "3", Name: "Michael Gardens", Email: "michael@example.com", Role: models.RoleFarmer, Location: "River Bend", Phone: "555-0103"},
		{ID: "4", Name: "Alice Consumer", Email: "buyer@example.com", Role: models.RoleBuyer, Location: "Green Valley", Phone: "555-0104"},
		{ID: "5", Name: "Bob Shopper", Email: "bob@example.com", Role: models.RoleBuyer, Location: "River Bend", Phone: "555-0105"},
	}
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func day(s string) models.Date {
	d, err := models.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Products returns the six demo listings in creation-id order.
func Products() []models.Product {
	return []models.Product{
		{
			ID: "1", CropName: "Organic Tomatoes", Description: "Fresh, organic tomatoes grown without pesticides.",
			Quantity: 100, Unit: "kg", Price: 2.99, Image: "https://images.unsplash.com/photo-1546470427-e26b1ec0ee5d",
			AvailableUntil: day("2025-08-01"), FarmerID: "1", FarmerName: "John Farmer", Location: "Green Valley",
			CreatedAt: ts("2023-01-15T10:30:00Z"), UpdatedAt: ts("2023-01-15T10:30:00Z"),
		},
		{
			ID: "2", CropName: "Sweet Corn", Description: "Locally grown sweet corn, perfect for summer barbecues.",
			Quantity: 200, Unit: "dozen", Price: 4.50, Image: "https://images.unsplash.com/photo-1551754655-cd27e38d2076",
			AvailableUntil: day("2025-07-20"), FarmerID: "1", FarmerName: "John Farmer", Location: "Green Valley",
			CreatedAt: ts("2023-01-10T14:45:00Z"), UpdatedAt: ts("2023-01-10T14:45:00Z"),
		},
		{
			ID: "3", CropName: "Fresh Strawberries", Description: "Sweet, juicy strawberries picked at peak ripeness.",
			Quantity: 50, Unit: "box", Price: 3.99, Image: "https://images.unsplash.com/photo-1464965911861-746a04b4bca6",
			AvailableUntil: day("2025-06-25"), FarmerID: "2", FarmerName: "Sarah Fields", Location: "Sunny Hills",
			CreatedAt: ts("2023-01-05T09:15:00Z"), UpdatedAt: ts("2023-01-05T09:15:00Z"),
		},
		{
			ID: "4", CropName: "Organic Potatoes", Description: "Versatile, organic potatoes perfect for any dish.",
			Quantity: 300, Unit: "kg", Price: 1.49, Image: "https://images.unsplash.com/photo-1518977676601-b53f82aba655",
			AvailableUntil: day("2025-09-15"), FarmerID: "2", FarmerName: "Sarah Fields", Location: "Sunny Hills",
			CreatedAt: ts("2023-02-01T11:20:00Z"), UpdatedAt: ts("2023-02-01T11:20:00Z"),
		},
		{
			ID: "5", CropName: "Fresh Carrots", Description: "Crunchy, sweet carrots harvested daily.",
			Quantity: 150, Unit: "kg", Price: 1.99, Image: "https://images.unsplash.com/photo-1550082723-f93c351b339b",
			AvailableUntil: day("2025-08-30"), FarmerID: "3", FarmerName: "Michael Gardens", Location: "River Bend",
			CreatedAt: ts("2023-02-10T13:40:00Z"), UpdatedAt: ts("2023-02-10T13:40:00Z"),
		},
		{
			ID: "6", CropName: "Green Lettuce", Description: "Crisp, leafy lettuce for fresh salads.",
			Quantity: 75, Unit: "head", Price: 1.29, Image: "https://images.unsplash.com/photo-1556801712-76c8eb07bbc9",
			AvailableUntil: day("2025-07-10"), FarmerID: "3", FarmerName: "Michael Gardens", Location: "River Bend",
			CreatedAt: ts("2023-02-15T10:10:00Z"), UpdatedAt: ts("2023-02-15T10:10:00Z"),
		},
	}
}

// Orders returns the three demo orders.
func Orders() []models.Order {
	return []models.Order{
		{
			ID: "1", ProductID: "1", BuyerID: "4", BuyerName: "Alice Consumer", FarmerID: "1", FarmerName: "John Farmer",
			QuantityOrdered: 10, TotalPrice: 29.90, Status: models.OrderStatusConfirmed,
			CreatedAt: ts("2023-03-01T09:30:00Z"), UpdatedAt: ts("2023-03-01T14:20:00Z"),
		},
		{
			ID: "2", ProductID: "3", BuyerID: "4", BuyerName: "Alice Consumer", FarmerID: "2", FarmerName: "Sarah Fields",
			QuantityOrdered: 5, TotalPrice: 19.95, Status: models.OrderStatusDelivered,
			CreatedAt: ts("2023-03-05T13:45:00Z"), UpdatedAt: ts("2023-03-07T11:30:00Z"),
		},
		{
			ID: "3", ProductID: "2", BuyerID: "5", BuyerName: "Bob Shopper", FarmerID: "1", FarmerName: "John Farmer",
			QuantityOrdered: 3, TotalPrice: 13.50, Status: models.OrderStatusPending,
			CreatedAt: ts("2023-03-10T10:15:00Z"), UpdatedAt: ts("2023-03-10T10:15:00Z"),
		},
	}
}

// Load inserts the demo data unless the first demo account already exists.
func Load(
	ctx context.Context,
	auth Registrar,
	users repositories.UserRepository,
	products repositories.ProductRepository,
	orders repositories.OrderRepository,
) error {
	demoUsers := Users()
	if _, err := users.GetByEmail(ctx, demoUsers[0].Email); err == nil {
		log.Println("Demo data already present, skipping seed")
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return fmt.Errorf("failed to check for demo data: %w", err)
	}

	for i := range demoUsers {
		u := demoUsers[i]
		u.Password = DemoPassword
		if err := auth.RegisterUser(ctx, &u); err != nil && !errors.Is(err, services.ErrEmailTaken) {
			return fmt.Errorf("failed to seed user %s: %w", u.Email, err)
		}
	}
	for _, p := range Products() {
		p := p
		if err := products.Create(ctx, &p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	for _, o := range Orders() {
		o := o
		if err := orders.Create(ctx, &o); err != nil {
			return fmt.Errorf("failed to seed order %s: %w", o.ID, err)
		}
	}

	log.Printf("Seeded %d users, %d products and %d orders", len(demoUsers), len(Products()), len(Orders()))
	return nil
}
