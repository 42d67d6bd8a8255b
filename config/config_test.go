package config_test

import (
	"testing"
	"time"

	"food-marketplace-api/config"
	"food-marketplace-api/models"
	"food-marketplace-api/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "DB_DRIVER", "ETA_MODE", "DELIVERY_FEE", "TOKEN_TTL", "REDIS_ADDR"} {
		t.Setenv(k, "")
	}
	cfg := config.FromEnv()

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, config.ETAModeFlat, cfg.ETAMode)
	assert.True(t, cfg.DeliveryFee.Equal(decimal.RequireFromString("1.00")))
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Empty(t, cfg.RedisAddr)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "Postgres")
	t.Setenv("ETA_MODE", "estimator")
	t.Setenv("DELIVERY_FEE", "2.499")
	t.Setenv("TOKEN_TTL", "90m")
	t.Setenv("RATE_LIMIT_BURST", "not-a-number")

	cfg := config.FromEnv()
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, config.ETAModeEstimator, cfg.ETAMode)
	assert.Equal(t, "2.5", cfg.DeliveryFee.String())
	assert.Equal(t, 90*time.Minute, cfg.TokenTTL)
	assert.Equal(t, 20, cfg.RateLimitBurst)
}

func TestUnknownETAModeFallsBackToFlat(t *testing.T) {
	t.Setenv("ETA_MODE", "psychic")
	assert.Equal(t, config.ETAModeFlat, config.FromEnv().ETAMode)
}

func TestOpenDBRejectsUnknownDriver(t *testing.T) {
	_, err := config.OpenDB(config.Config{DBDriver: "oracle", DatabaseDSN: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported DB_DRIVER")
}

func TestSeedIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	require.NoError(t, config.Seed(db))
	require.NoError(t, config.Seed(db))

	var users, restaurants, items int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Restaurant{}).Count(&restaurants).Error)
	require.NoError(t, db.Model(&models.MenuItem{}).Count(&items).Error)
	assert.EqualValues(t, 4, users)
	assert.EqualValues(t, 1, restaurants)
	assert.EqualValues(t, 4, items)

	var admin models.User
	require.NoError(t, db.Where("role = ?", models.RoleAdmin).First(&admin).Error)
	assert.Equal(t, "admin@example.com", admin.Email)
}
