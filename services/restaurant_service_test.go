package services_test

import (
	"context"
	"testing"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRestaurantHidesUnavailableItemsAndInvalidatesOnToggle(t *testing.T) {
	f := newFlatFixture(t)
	ctx := context.Background()

	r, err := f.restaurant.GetRestaurant(ctx, f.rest.ID)
	require.NoError(t, err)
	assert.Len(t, r.MenuItems, 2)

	item, err := f.restaurant.ToggleMenuItemAvailability(ctx, caller(f.owner), f.fries.ID)
	require.NoError(t, err)
	assert.False(t, item.IsAvailable)

	r, err = f.restaurant.GetRestaurant(ctx, f.rest.ID)
	require.NoError(t, err)
	require.Len(t, r.MenuItems, 1, "cached detail must be dropped after a menu change")
	assert.Equal(t, "Burger", r.MenuItems[0].Name)

	mine, err := f.restaurant.MyRestaurant(ctx, caller(f.owner))
	require.NoError(t, err)
	assert.Len(t, mine.MenuItems, 2, "owners see unavailable items too")
}

func TestListRestaurantsSearchAndCache(t *testing.T) {
	f := newFlatFixture(t)
	ctx := context.Background()

	list, err := f.restaurant.ListRestaurants(ctx, "grill")
	require.NoError(t, err)
	require.Len(t, list, 1)

	newcomer := testutil.CreateUser(t, f.db, "newcomer", models.RoleRestaurant)
	_, err = f.restaurant.CreateRestaurant(ctx, caller(newcomer), services.RestaurantInput{Name: "Grill Two"})
	require.NoError(t, err)

	list, err = f.restaurant.ListRestaurants(ctx, "grill")
	require.NoError(t, err)
	assert.Len(t, list, 2, "creating a restaurant invalidates cached listings")
}

func TestCreateRestaurantOnePerOwner(t *testing.T) {
	f := newFlatFixture(t)
	ctx := context.Background()

	_, err := f.restaurant.CreateRestaurant(ctx, caller(f.owner), services.RestaurantInput{Name: "Second"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.restaurant.CreateRestaurant(ctx, caller(f.customer), services.RestaurantInput{Name: "Nope"})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	fresh := testutil.CreateUser(t, f.db, "fresh", models.RoleRestaurant)
	r, err := f.restaurant.CreateRestaurant(ctx, caller(fresh), services.RestaurantInput{Name: "  Falafel Corner "})
	require.NoError(t, err)
	assert.Equal(t, "Falafel Corner", r.Name)
	assert.True(t, r.IsActive)
	assert.Equal(t, 20, r.AvgPrepTime)

	prep := 35
	updated, err := f.restaurant.UpdateRestaurant(ctx, caller(fresh), services.RestaurantInput{Name: "Falafel Corner", AvgPrepTime: &prep})
	require.NoError(t, err)
	assert.Equal(t, 35, updated.AvgPrepTime)
}

func TestUpsertMenuItem(t *testing.T) {
	f := newFlatFixture(t)
	ctx := context.Background()

	created, err := f.restaurant.UpsertMenuItem(ctx, caller(f.owner), services.MenuItemInput{
		Name:  "Salad",
		Price: decimal.RequireFromString("4.255"),
	})
	require.NoError(t, err)
	assert.True(t, created.IsAvailable)
	assert.True(t, created.Price.Equal(decimal.RequireFromString("4.26")))

	off := false
	updated, err := f.restaurant.UpsertMenuItem(ctx, caller(f.owner), services.MenuItemInput{
		ID:          &created.ID,
		Name:        "Green Salad",
		Price:       decimal.RequireFromString("4.50"),
		IsAvailable: &off,
	})
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Green Salad", updated.Name)
	assert.False(t, updated.IsAvailable)

	_, err = f.restaurant.UpsertMenuItem(ctx, caller(f.owner), services.MenuItemInput{Name: "Free", Price: decimal.Zero})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	require.NoError(t, f.restaurant.DeleteMenuItem(ctx, caller(f.owner), created.ID))
	_, err = f.repos.Menu.Get(ctx, created.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMenuChangesScopedToOwner(t *testing.T) {
	f := newFlatFixture(t)
	ctx := context.Background()

	rival := testutil.CreateUser(t, f.db, "rival", models.RoleRestaurant)
	testutil.CreateRestaurant(t, f.db, rival.ID, "Rival", 10)

	_, err := f.restaurant.ToggleMenuItemAvailability(ctx, caller(rival), f.burger.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	err = f.restaurant.DeleteMenuItem(ctx, caller(rival), f.burger.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = f.restaurant.UpsertMenuItem(ctx, caller(rival), services.MenuItemInput{ID: &f.burger.ID, Name: "Stolen", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	homeless := testutil.CreateUser(t, f.db, "homeless", models.RoleRestaurant)
	_, err = f.restaurant.MyRestaurant(ctx, caller(homeless))
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
