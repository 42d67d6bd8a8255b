package config

import (
	"errors"
	"fmt"
	"strings"

	"food-marketplace-api/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the password every seeded account logs in with
const DemoPassword = "password123"

var demoUsers = []models.User{
	{Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin},
	{Name: "Carla Customer", Email: "customer@example.com", Role: models.RoleCustomer},
	{Name: "Rita Restaurant", Email: "owner@example.com", Role: models.RoleRestaurant},
	{Name: "Dev Driver", Email: "driver@example.com", Role: models.RoleDriver},
}

// Seed inserts demo accounts, one restaurant and its menu. Running it twice
// leaves existing rows alone.
func Seed(db *gorm.DB) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	return db.Transaction(func(tx *gorm.DB) error {
		users := map[models.UserRole]*models.User{}
		for _, u := range demoUsers {
			user := u
			user.Email = strings.ToLower(user.Email)
			user.PasswordHash = string(hash)
			if err := tx.Where("email = ?", user.Email).FirstOrCreate(&user).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", user.Email, err)
			}
			users[user.Role] = &user
		}

		owner := users[models.RoleRestaurant]
		var restaurant models.Restaurant
		err := tx.Where("owner_id = ?", owner.ID).First(&restaurant).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("look up demo restaurant: %w", err)
		}

		lat, lon := 40.7128, -74.0060
		restaurant = models.Restaurant{
			OwnerID:        owner.ID,
			Name:           "Grill House",
			Description:    "Burgers and fries",
			Address:        "1 Main St",
			AvgPrepTime:    20,
			OnTimeAccuracy: 100,
			IsActive:       true,
			Latitude:       &lat,
			Longitude:      &lon,
		}
		if err := tx.Create(&restaurant).Error; err != nil {
			return fmt.Errorf("seed restaurant: %w", err)
		}

		menu := []models.MenuItem{
			{Name: "Classic Burger", Price: decimal.RequireFromString("8.50")},
			{Name: "Cheese Burger", Price: decimal.RequireFromString("9.25")},
			{Name: "Fries", Price: decimal.RequireFromString("3.50")},
			{Name: "Milkshake", Price: decimal.RequireFromString("4.75")},
		}
		for i := range menu {
			menu[i].RestaurantID = restaurant.ID
			menu[i].IsAvailable = true
		}
		if err := tx.Create(&menu).Error; err != nil {
			return fmt.Errorf("seed menu: %w", err)
		}
		return nil
	})
}
