// Package events fans order lifecycle changes out to the message broker and
// to connected websocket clients. Publishing happens after the database
// commit; a failed publish never undoes a committed change.
package events

import (
	"context"
	"errors"
	"time"

	"food-marketplace-api/models"
)

type EventType string

const (
	OrderCreated        EventType = "order.created"
	OrderStatusChanged  EventType = "order.status_changed"
	OrderDriverAssigned EventType = "order.driver_assigned"
)

type OrderEvent struct {
	Type              EventType          `json:"type"`
	OrderID           uint               `json:"order_id"`
	CustomerID        uint               `json:"customer_id"`
	RestaurantID      uint               `json:"restaurant_id"`
	RestaurantOwnerID uint               `json:"restaurant_owner_id"`
	DriverID          *uint              `json:"driver_id,omitempty"`
	OldStatus         models.OrderStatus `json:"old_status,omitempty"`
	NewStatus         models.OrderStatus `json:"new_status"`
	Note              string             `json:"note,omitempty"`
	At                time.Time          `json:"at"`
}

// RoutingKey is the topic key the event is published under, e.g. "order.on_way".
func (e OrderEvent) RoutingKey() string {
	return "order." + string(e.NewStatus)
}

// VisibleTo reports whether the caller is a party to the order. Unassigned
// on_way orders are visible to every driver so they can be claimed.
func (e OrderEvent) VisibleTo(c models.Caller) bool {
	switch c.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return c.UserID == e.CustomerID
	case models.RoleRestaurant:
		return c.UserID == e.RestaurantOwnerID
	case models.RoleDriver:
		if e.DriverID != nil {
			return *e.DriverID == c.UserID
		}
		return e.NewStatus == models.StatusOnWay
	}
	return false
}

//go:generate mockgen -destination=../mocks/publisher_mock.go -package=mocks food-marketplace-api/events Publisher

type Publisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, OrderEvent) error { return nil }

// Multi publishes to each publisher in turn and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event OrderEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
