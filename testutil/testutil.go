// Package testutil holds fixtures shared by package tests: an isolated
// in-memory database and a few seed helpers.
package testutil

import (
	"fmt"
	"testing"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a fresh migrated in-memory database private to t
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := config.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func CreateUser(t testing.TB, db *gorm.DB, name string, role models.UserRole) *models.User {
	t.Helper()
	u := &models.User{
		Name:         name,
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash: "x",
		Role:         role,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func CreateRestaurant(t testing.TB, db *gorm.DB, ownerID uint, name string, avgPrep int) *models.Restaurant {
	t.Helper()
	r := &models.Restaurant{
		OwnerID:        ownerID,
		Name:           name,
		Address:        "1 Test Street",
		AvgPrepTime:    avgPrep,
		OnTimeAccuracy: 90,
		IsActive:       true,
	}
	if err := db.Create(r).Error; err != nil {
		t.Fatalf("create restaurant: %v", err)
	}
	return r
}

func CreateMenuItem(t testing.TB, db *gorm.DB, restaurantID uint, name, price string) *models.MenuItem {
	t.Helper()
	item := &models.MenuItem{
		RestaurantID: restaurantID,
		Name:         name,
		Price:        decimal.RequireFromString(price),
		IsAvailable:  true,
	}
	if err := db.Create(item).Error; err != nil {
		t.Fatalf("create menu item: %v", err)
	}
	return item
}

// CreateOrder inserts an order in the given status with one pending history row
func CreateOrder(t testing.TB, db *gorm.DB, customerID, restaurantID uint, status models.OrderStatus, createdAt time.Time) *models.Order {
	t.Helper()
	o := &models.Order{
		CustomerID:            customerID,
		RestaurantID:          restaurantID,
		TotalPrice:            decimal.RequireFromString("10.00"),
		DeliveryFee:           decimal.RequireFromString("1.00"),
		DeliveryAddress:       "2 Test Avenue",
		Status:                status,
		EstimatedDeliveryTime: createdAt.Add(30 * time.Minute),
		CreatedAt:             createdAt,
		UpdatedAt:             createdAt,
	}
	if err := db.Create(o).Error; err != nil {
		t.Fatalf("create order: %v", err)
	}
	h := models.OrderStatusHistory{OrderID: o.ID, Status: models.StatusPending, Note: "Order placed", Timestamp: createdAt}
	if err := db.Create(&h).Error; err != nil {
		t.Fatalf("create history: %v", err)
	}
	return o
}
