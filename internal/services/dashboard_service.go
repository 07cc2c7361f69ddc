package services

import (
	"context"
	"fmt"

	"agriconnect/internal/models"
	"agriconnect/internal/repositories"

	"github.com/shopspring/decimal"
)

// FarmerStats summarizes a farmer's listings and incoming orders.
type FarmerStats struct {
	ProductCount  int     `json:"productCount"`
	TotalOrders   int     `json:"totalOrders"`
	PendingOrders int     `json:"pendingOrders"`
	Earnings      float64 `json:"earnings"`
}

// BuyerStats summarizes a buyer's orders.
type BuyerStats struct {
	TotalOrders     int     `json:"totalOrders"`
	ActiveOrders    int     `json:"activeOrders"`
	CompletedOrders int     `json:"completedOrders"`
	CanceledOrders  int     `json:"canceledOrders"`
	TotalSpent      float64 `json:"totalSpent"`
}

type DashboardService struct {
	productRepo repositories.ProductRepository
	orderRepo   repositories.OrderRepository
}

func NewDashboardService(productRepo repositories.ProductRepository, orderRepo repositories.OrderRepository) *DashboardService {
	return &DashboardService{productRepo: productRepo, orderRepo: orderRepo}
}

// FarmerStats counts a farmer's products and orders. Earnings include every
// order that has not been canceled.
func (s *DashboardService) FarmerStats(ctx context.Context, actor Actor, farmerID string) (*FarmerStats, error) {
	if !actor.CanActFor(farmerID) {
		return nil, fmt.Errorf("dashboard of farmer %s: %w", farmerID, ErrForbidden)
	}
	products, err := s.productRepo.GetByFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.GetByFarmer(ctx, farmerID)
	if err != nil {
		return nil, err
	}
	return ComputeFarmerStats(products, orders), nil
}

// BuyerStats counts a buyer's orders by outcome. Only delivered orders count
// as spent.
func (s *DashboardService) BuyerStats(ctx context.Context, actor Actor, buyerID string) (*BuyerStats, error) {
	if !actor.CanActFor(buyerID) {
		return nil, fmt.Errorf("dashboard of buyer %s: %w", buyerID, ErrForbidden)
	}
	orders, err := s.orderRepo.GetByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	return ComputeBuyerStats(orders), nil
}

func ComputeFarmerStats(products []models.Product, orders []models.Order) *FarmerStats {
	stats := &FarmerStats{ProductCount: len(products), TotalOrders: len(orders)}
	earnings := decimal.Zero
	for _, o := range orders {
		if o.Status == models.OrderStatusPending {
			stats.PendingOrders++
		}
		if o.Status != models.OrderStatusCanceled {
			earnings = earnings.Add(decimal.NewFromFloat(o.TotalPrice))
		}
	}
	stats.Earnings = earnings.Round(2).InexactFloat64()
	return stats
}

func ComputeBuyerStats(orders []models.Order) *BuyerStats {
	stats := &BuyerStats{TotalOrders: len(orders)}
	spent := decimal.Zero
	for _, o := range orders {
		switch o.Status {
		case models.OrderStatusPending, models.OrderStatusConfirmed:
			stats.ActiveOrders++
		case models.OrderStatusDelivered:
			stats.CompletedOrders++
			spent = spent.Add(decimal.NewFromFloat(o.TotalPrice))
		case models.OrderStatusCanceled:
			stats.CanceledOrders++
		}
	}
	stats.TotalSpent = spent.Round(2).InexactFloat64()
	return stats
}
