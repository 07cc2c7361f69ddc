package models

import "time"

// OrderStatus is the lifecycle tag on an order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "Pending"
	OrderStatusConfirmed OrderStatus = "Confirmed"
	OrderStatusDelivered OrderStatus = "Delivered"
	OrderStatusCanceled  OrderStatus = "Canceled"
)

// Valid reports whether s is one of the four known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCanceled:
		return true
	}
	return false
}

// Order represents a buyer's purchase of a single product.
//
// BuyerName and FarmerName are snapshots taken when the order is placed.
// Product is filled in on read from the catalog and is never persisted.
type Order struct {
	ID              string      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProductID       string      `json:"productId" gorm:"index;type:varchar(36);not null"`
	Product         *Product    `json:"product,omitempty" gorm:"-"`
	BuyerID         string      `json:"buyerId" gorm:"index;type:varchar(36);not null"`
	BuyerName       string      `json:"buyerName"`
	FarmerID        string      `json:"farmerId" gorm:"index;type:varchar(36);not null"`
	FarmerName      string      `json:"farmerName"`
	QuantityOrdered int         `json:"quantityOrdered" gorm:"not null"`
	TotalPrice      float64     `json:"totalPrice" gorm:"not null"` // frozen at creation
	Status          OrderStatus `json:"status" gorm:"type:varchar(16);not null;default:Pending"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}
