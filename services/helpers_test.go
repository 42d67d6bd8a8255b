package services_test

import (
	"sync"
	"testing"
	"time"

	"food-marketplace-api/cache"
	"food-marketplace-api/config"
	"food-marketplace-api/events"
	"food-marketplace-api/logging"
	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/testutil"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// stepClock advances one second per reading so history rows keep a strict order.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type fixture struct {
	db         *gorm.DB
	repos      services.Repositories
	orders     *services.OrderService
	restaurant *services.RestaurantService
	clock      *stepClock

	customer *models.User
	owner    *models.User
	driver   *models.User
	admin    *models.User
	rest     *models.Restaurant
	burger   *models.MenuItem
	fries    *models.MenuItem
}

func newFixture(t *testing.T, publisher events.Publisher, etaMode string) *fixture {
	t.Helper()
	db := testutil.NewDB(t)
	clock := newStepClock()
	opts := services.Options{
		ETAMode:     etaMode,
		DeliveryFee: decimal.RequireFromString("1.00"),
		Now:         clock.Now,
	}
	repos := services.NewRepositories(db)
	log := logging.Discard()

	f := &fixture{
		db:         db,
		repos:      repos,
		orders:     services.NewOrderService(repos, publisher, log, opts),
		restaurant: services.NewRestaurantService(repos, cache.NewMemory(), log, opts),
		clock:      clock,
	}
	f.customer = testutil.CreateUser(t, db, "customer", models.RoleCustomer)
	f.owner = testutil.CreateUser(t, db, "owner", models.RoleRestaurant)
	f.driver = testutil.CreateUser(t, db, "driver", models.RoleDriver)
	f.admin = testutil.CreateUser(t, db, "admin", models.RoleAdmin)
	f.rest = testutil.CreateRestaurant(t, db, f.owner.ID, "Grill House", 20)
	f.burger = testutil.CreateMenuItem(t, db, f.rest.ID, "Burger", "5.00")
	f.fries = testutil.CreateMenuItem(t, db, f.rest.ID, "Fries", "3.50")
	return f
}

func newFlatFixture(t *testing.T) *fixture {
	return newFixture(t, events.Nop{}, config.ETAModeFlat)
}

func caller(u *models.User) models.Caller {
	return models.Caller{UserID: u.ID, Role: u.Role}
}

func (f *fixture) placeInput() services.PlaceOrderInput {
	return services.PlaceOrderInput{
		RestaurantID:    f.rest.ID,
		DeliveryAddress: "12 Rainbow Street, Amman",
		Items: []services.OrderItemInput{
			{MenuItemID: f.burger.ID, Quantity: 2},
			{MenuItemID: f.fries.ID, Quantity: 1},
		},
	}
}
