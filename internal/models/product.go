package models

import "time"

// DefaultProductImage is used when a listing is created without an image.
const DefaultProductImage = "https://via.placeholder.com/400x300?text=No+Image"

// Product represents a crop listing owned by a farmer.
type Product struct {
	ID             string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CropName       string    `json:"cropName" gorm:"type:varchar(100);not null"`
	Description    string    `json:"description" gorm:"type:text"`
	Quantity       int       `json:"quantity" gorm:"not null;check:quantity >= 0"`
	Unit           string    `json:"unit" gorm:"type:varchar(32)"`
	Price          float64   `json:"price" gorm:"not null"`
	Image          string    `json:"image" gorm:"type:text"`
	AvailableUntil Date      `json:"availableUntil"`
	FarmerID       string    `json:"farmerId" gorm:"index;type:varchar(36);not null"`
	FarmerName     string    `json:"farmerName"`
	Location       string    `json:"location" gorm:"index"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}
