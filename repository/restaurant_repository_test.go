package repository_test

import (
	"context"
	"testing"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"
	"food-marketplace-api/repository"
	"food-marketplace-api/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListActiveOrdersByAccuracyAndFilters(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewRestaurantRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner", models.RoleRestaurant)

	slow := testutil.CreateRestaurant(t, db, owner.ID, "Slow Pizza", 20)
	fast := testutil.CreateRestaurant(t, db, owner.ID, "Fast Burgers", 10)
	closed := testutil.CreateRestaurant(t, db, owner.ID, "Closed Pizza", 10)
	require.NoError(t, db.Model(slow).Update("on_time_accuracy", 70).Error)
	require.NoError(t, db.Model(fast).Update("on_time_accuracy", 99).Error)
	require.NoError(t, db.Model(closed).Update("is_active", false).Error)

	all, err := repo.ListActive(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, fast.ID, all[0].ID)
	assert.Equal(t, slow.ID, all[1].ID)

	pizza, err := repo.ListActive(ctx, "PIZZA")
	require.NoError(t, err)
	require.Len(t, pizza, 1)
	assert.Equal(t, slow.ID, pizza[0].ID)
}

func TestGetWithMenuAvailability(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewRestaurantRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner", models.RoleRestaurant)
	rest := testutil.CreateRestaurant(t, db, owner.ID, "Grill", 20)

	testutil.CreateMenuItem(t, db, rest.ID, "Wrap", "4.00")
	hidden := testutil.CreateMenuItem(t, db, rest.ID, "Burger", "5.00")
	require.NoError(t, db.Model(hidden).Update("is_available", false).Error)

	public, err := repo.GetWithMenu(ctx, rest.ID, true)
	require.NoError(t, err)
	require.Len(t, public.MenuItems, 1)
	assert.Equal(t, "Wrap", public.MenuItems[0].Name)

	full, err := repo.GetWithMenu(ctx, rest.ID, false)
	require.NoError(t, err)
	require.Len(t, full.MenuItems, 2)
	assert.Equal(t, "Burger", full.MenuItems[0].Name, "sorted by name")

	_, err = repo.GetWithMenu(ctx, 999, true)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestOwnership(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewRestaurantRepository(db)
	ctx := context.Background()
	owner := testutil.CreateUser(t, db, "owner", models.RoleRestaurant)
	other := testutil.CreateUser(t, db, "other", models.RoleRestaurant)

	first := testutil.CreateRestaurant(t, db, owner.ID, "A", 20)
	second := testutil.CreateRestaurant(t, db, owner.ID, "B", 20)

	ids, err := repo.IDsOwnedBy(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{first.ID, second.ID}, ids)

	ids, err = repo.IDsOwnedBy(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, ids)

	got, err := repo.FirstOwnedBy(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	_, err = repo.FirstOwnedBy(ctx, other.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestUserCreateRejectsDuplicateEmail(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewUserRepository(db)
	ctx := context.Background()

	u := &models.User{Name: "Ann", Email: "Ann@Example.com", PasswordHash: "x", Role: models.RoleCustomer}
	require.NoError(t, repo.Create(ctx, u))

	dup := &models.User{Name: "Ann2", Email: "ann@example.com", PasswordHash: "x", Role: models.RoleCustomer}
	assert.ErrorIs(t, repo.Create(ctx, dup), apperr.ErrConflict)

	got, err := repo.GetByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
}

func TestMenuDeleteMissing(t *testing.T) {
	db := testutil.NewDB(t)
	repo := repository.NewMenuRepository(db)

	assert.ErrorIs(t, repo.Delete(context.Background(), 42), apperr.ErrNotFound)
}
