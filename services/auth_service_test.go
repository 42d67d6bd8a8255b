package services_test

import (
	"context"
	"fmt"
	"testing"

	"food-marketplace-api/apperr"
	"food-marketplace-api/logging"
	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIssuer struct{}

func (fakeIssuer) Issue(u *models.User) (string, error) {
	return fmt.Sprintf("token-%d-%s", u.ID, u.Role), nil
}

func newAuthService(t *testing.T) *services.AuthService {
	db := testutil.NewDB(t)
	return services.NewAuthService(services.NewRepositories(db), fakeIssuer{}, logging.Discard())
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, services.RegisterInput{Name: "Lina", Email: "Lina@Example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, res.User.Role, "role defaults to customer")
	assert.Equal(t, "lina@example.com", res.User.Email)
	assert.NotEqual(t, "secret123", res.User.PasswordHash)
	assert.Equal(t, fmt.Sprintf("token-%d-customer", res.User.ID), res.Token)

	login, err := svc.Login(ctx, services.LoginInput{Email: "lina@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, services.LoginInput{Email: "lina@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	_, err = svc.Login(ctx, services.LoginInput{Email: "nobody@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperr.ErrAuthentication)

	_, err = svc.Register(ctx, services.RegisterInput{Name: "Lina", Email: "lina@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	profile, err := svc.Profile(ctx, models.Caller{UserID: res.User.ID, Role: models.RoleCustomer})
	require.NoError(t, err)
	assert.Equal(t, "Lina", profile.Name)
}

func TestRegisterValidation(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	cases := []services.RegisterInput{
		{Name: "", Email: "a@example.com", Password: "secret123"},
		{Name: "A", Email: "not-an-email", Password: "secret123"},
		{Name: "A", Email: "a@example.com", Password: "123"},
		{Name: "A", Email: "a@example.com", Password: "secret123", Role: models.RoleAdmin},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, apperr.ErrValidation, "%+v", in)
	}
}

func TestListUsersAdminOnly(t *testing.T) {
	svc := newAuthService(t)
	ctx := context.Background()

	_, err := svc.ListUsers(ctx, models.Caller{UserID: 1, Role: models.RoleCustomer})
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	users, err := svc.ListUsers(ctx, models.Caller{UserID: 1, Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Empty(t, users)
}
