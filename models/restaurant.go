package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Restaurant struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	OwnerID        uint       `json:"owner_id" gorm:"not null;index"`
	Owner          *User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name           string     `json:"name" gorm:"not null"`
	Description    string     `json:"description"`
	Address        string     `json:"address"`
	Phone          string     `json:"phone"`
	AvgPrepTime    int        `json:"avg_prep_time" gorm:"not null"`    // minutes
	OnTimeAccuracy float64    `json:"on_time_accuracy" gorm:"not null"` // 0-100, maintained externally
	IsActive       bool       `json:"is_active" gorm:"not null"`
	Latitude       *float64   `json:"latitude,omitempty"`
	Longitude      *float64   `json:"longitude,omitempty"`
	MenuItems      []MenuItem `json:"menu_items,omitempty" gorm:"foreignKey:RestaurantID"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasLocation reports whether both coordinates are set
func (r *Restaurant) HasLocation() bool {
	return r.Latitude != nil && r.Longitude != nil
}

type MenuItem struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	RestaurantID uint            `json:"restaurant_id" gorm:"not null;index"`
	Name         string          `json:"name" gorm:"not null"`
	Description  string          `json:"description"`
	Price        decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"`
	ImageURL     string          `json:"image_url,omitempty"`
	IsAvailable  bool            `json:"is_available" gorm:"not null"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
