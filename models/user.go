package models

import (
	"time"
)

// UserRole defines allowed roles in the system
type UserRole string

const (
	RoleCustomer   UserRole = "customer"
	RoleRestaurant UserRole = "restaurant"
	RoleDriver     UserRole = "driver"
	RoleAdmin      UserRole = "admin"
)

// Valid reports whether r is one of the known roles
func (r UserRole) Valid() bool {
	switch r {
	case RoleCustomer, RoleRestaurant, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         UserRole  `json:"role" gorm:"not null;default:'customer'"`
	Phone        string    `json:"phone"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Caller is the identity a request acts as. It is resolved from the bearer
// token and passed explicitly into every service call.
type Caller struct {
	UserID uint
	Role   UserRole
}

func (c Caller) Is(role UserRole) bool { return c.Role == role }
