package events

import (
	"context"
	"errors"
	"testing"

	"food-marketplace-api/models"

	"github.com/stretchr/testify/assert"
)

func TestVisibleTo(t *testing.T) {
	driver := uint(7)
	assigned := OrderEvent{CustomerID: 1, RestaurantOwnerID: 2, DriverID: &driver, NewStatus: models.StatusOnWay}
	unassigned := OrderEvent{CustomerID: 1, RestaurantOwnerID: 2, NewStatus: models.StatusOnWay}
	preparing := OrderEvent{CustomerID: 1, RestaurantOwnerID: 2, NewStatus: models.StatusPreparing}

	tests := []struct {
		name   string
		event  OrderEvent
		caller models.Caller
		want   bool
	}{
		{"admin sees everything", preparing, models.Caller{UserID: 99, Role: models.RoleAdmin}, true},
		{"own customer", preparing, models.Caller{UserID: 1, Role: models.RoleCustomer}, true},
		{"other customer", preparing, models.Caller{UserID: 3, Role: models.RoleCustomer}, false},
		{"owning restaurant", preparing, models.Caller{UserID: 2, Role: models.RoleRestaurant}, true},
		{"other restaurant", preparing, models.Caller{UserID: 1, Role: models.RoleRestaurant}, false},
		{"assigned driver", assigned, models.Caller{UserID: 7, Role: models.RoleDriver}, true},
		{"other driver on assigned order", assigned, models.Caller{UserID: 8, Role: models.RoleDriver}, false},
		{"any driver on unassigned pickup", unassigned, models.Caller{UserID: 8, Role: models.RoleDriver}, true},
		{"driver on kitchen order", preparing, models.Caller{UserID: 8, Role: models.RoleDriver}, false},
		{"unknown role", preparing, models.Caller{UserID: 1, Role: "ghost"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.event.VisibleTo(tt.caller))
		})
	}
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "order.on_way", OrderEvent{NewStatus: models.StatusOnWay}.RoutingKey())
}

type recordingPublisher struct {
	got []OrderEvent
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, e OrderEvent) error {
	r.got = append(r.got, e)
	return r.err
}

func TestMultiPublishesToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingPublisher{err: boom}
	b := &recordingPublisher{}

	err := Multi{a, Nop{}, b}.Publish(context.Background(), OrderEvent{OrderID: 5})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, a.got, 1)
	assert.Len(t, b.got, 1, "a failing publisher must not stop the others")
	assert.NoError(t, Multi{Nop{}}.Publish(context.Background(), OrderEvent{}))
}
