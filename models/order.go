package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents all possible states of a food delivery order
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPreparing OrderStatus = "preparing"
	StatusOnWay     OrderStatus = "on_way"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// AllStatuses lists the states in lifecycle order
var AllStatuses = []OrderStatus{StatusPending, StatusPreparing, StatusOnWay, StatusDelivered, StatusCancelled}

type Order struct {
	ID                    uint            `json:"id" gorm:"primaryKey"`
	CustomerID            uint            `json:"customer_id" gorm:"not null;index"`
	RestaurantID          uint            `json:"restaurant_id" gorm:"not null;index"`
	Restaurant            *Restaurant     `json:"restaurant,omitempty" gorm:"foreignKey:RestaurantID"`
	DriverID              *uint           `json:"driver_id" gorm:"index"`
	Items                 []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	TotalPrice            decimal.Decimal `json:"total_price" gorm:"type:decimal(10,2);not null"`
	DeliveryFee           decimal.Decimal `json:"delivery_fee" gorm:"type:decimal(10,2);not null"`
	DeliveryAddress       string          `json:"delivery_address" gorm:"not null"`
	DeliveryLatitude      *float64        `json:"delivery_latitude,omitempty"`
	DeliveryLongitude     *float64        `json:"delivery_longitude,omitempty"`
	DistanceKm            *float64        `json:"distance_km,omitempty"`
	Notes                 string          `json:"notes"`
	Status                OrderStatus     `json:"status" gorm:"not null;default:'pending';index"`
	EstimatedDeliveryTime time.Time       `json:"estimated_delivery_time"`
	ActualDeliveryTime    *time.Time      `json:"actual_delivery_time"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

// ItemsTotal recomputes Σ price × quantity over the line items
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.LineTotal())
	}
	return total.Round(2)
}

// GrandTotal is the amount charged: items plus delivery fee
func (o *Order) GrandTotal() decimal.Decimal {
	return o.TotalPrice.Add(o.DeliveryFee)
}

type OrderItem struct {
	ID         uint            `json:"id" gorm:"primaryKey"`
	OrderID    uint            `json:"order_id" gorm:"not null;index"`
	MenuItemID uint            `json:"menu_item_id" gorm:"not null"`
	Name       string          `json:"name"`                                      // snapshot name
	Price      decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null"` // snapshot price at time of order
	Quantity   int             `json:"quantity" gorm:"not null"`
}

func (it OrderItem) LineTotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(int64(it.Quantity)))
}

// OrderStatusHistory is one append-only audit row per status change
type OrderStatusHistory struct {
	ID        uint        `json:"id" gorm:"primaryKey"`
	OrderID   uint        `json:"order_id" gorm:"not null;index"`
	Status    OrderStatus `json:"status" gorm:"not null"`
	Note      string      `json:"note"`
	ChangedBy *uint       `json:"changed_by,omitempty"`
	Timestamp time.Time   `json:"timestamp" gorm:"not null"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
