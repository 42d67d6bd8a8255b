package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"food-marketplace-api/logging"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newAuthRouter(tm *TokenManager) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(logging.Discard()))
	authed := r.Group("/", AuthRequired(tm))
	authed.GET("/me", func(c *gin.Context) {
		caller := GetCaller(c)
		c.JSON(http.StatusOK, gin.H{"user_id": caller.UserID, "role": caller.Role})
	})
	authed.GET("/drivers-only", RoleRequired(models.RoleDriver), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func do(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	tm := NewTokenManager([]byte("test-secret"), time.Hour)
	r := newAuthRouter(tm)

	token, err := tm.Issue(&models.User{ID: 7, Email: "c@example.com", Role: models.RoleCustomer})
	require.NoError(t, err)

	t.Run("valid bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := do(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"user_id":7,"role":"customer"}`, w.Body.String())
	})

	t.Run("missing header", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/me", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("query token ignored outside websocket handshakes", func(t *testing.T) {
		w := do(r, httptest.NewRequest(http.MethodGet, "/me?token="+token, nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("query token accepted for websocket", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/me?token="+token, nil)
		req.Header.Set("Upgrade", "websocket")
		w := do(r, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("token signed with another secret", func(t *testing.T) {
		other, err := NewTokenManager([]byte("other"), time.Hour).Issue(&models.User{ID: 7, Role: models.RoleCustomer})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+other)
		assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
	})

	t.Run("expired token", func(t *testing.T) {
		past := NewTokenManager([]byte("test-secret"), time.Minute)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := past.Issue(&models.User{ID: 7, Role: models.RoleCustomer})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+old)
		assert.Equal(t, http.StatusUnauthorized, do(r, req).Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/drivers-only", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(t, http.StatusForbidden, do(r, req).Code)
	})
}

func TestRequestLoggerSetsRequestID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(logging.Discard()))
	r.GET("/", func(c *gin.Context) {
		_, ok := entryFrom(c)
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})

	w := do(r, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w = do(r, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	frozen := time.Now()
	rl.now = func() time.Time { return frozen }

	r := gin.New()
	r.Use(rl.Middleware())
	r.POST("/login", func(c *gin.Context) { c.Status(http.StatusOK) })

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/login", nil)
		req.RemoteAddr = ip + ":1234"
		return do(r, req).Code
	}

	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("10.0.0.1"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2"), "other clients keep their own bucket")

	frozen = frozen.Add(time.Second)
	assert.Equal(t, http.StatusOK, send("10.0.0.1"), "bucket refills over time")
}

func TestRateLimiterForgetsIdleClientsPeriodically(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	frozen := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return frozen }

	rl.allow("10.0.0.2")
	assert.Len(t, rl.clients, 1)

	frozen = frozen.Add(rl.ttl)
	rl.allow("10.0.0.1")
	assert.Len(t, rl.clients, 2, "idle for exactly ttl is kept")

	// 10.0.0.2 is stale now, but the next sweep is not due yet
	frozen = frozen.Add(rl.ttl / 2)
	rl.allow("10.0.0.1")
	assert.Len(t, rl.clients, 2)

	frozen = frozen.Add(rl.ttl / 2)
	rl.allow("10.0.0.1")
	assert.Len(t, rl.clients, 1)
	assert.Contains(t, rl.clients, "10.0.0.1")
}

func TestCORSPreflight(t *testing.T) {
	r := gin.New()
	r.Use(CORS())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := do(r, httptest.NewRequest(http.MethodOptions, "/", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
