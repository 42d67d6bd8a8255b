package routes

import (
	"food-marketplace-api/handlers"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler, tokens *middleware.TokenManager, limiter *middleware.RateLimiter) {
	authRequired := middleware.AuthRequired(tokens)

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth, throttled per client IP
		authGroup := public.Group("/auth")
		if limiter != nil {
			authGroup.Use(limiter.Middleware())
		}
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)

		// Restaurants & menus (no auth needed)
		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurants/:id/menu", h.GetMenu)

		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(authRequired)
	{
		auth.GET("/profile", h.GetProfile)

		auth.GET("/orders", h.ListOrders)
		auth.GET("/orders/:id", h.GetOrder)
		auth.GET("/orders/:id/eta", h.GetOrderETA)
		auth.PATCH("/orders/:id/status", h.UpdateOrderStatus)

		auth.GET("/ws", h.Events)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(authRequired, middleware.RoleRequired(models.RoleCustomer))
	{
		customer.POST("/orders", h.PlaceOrder)
		customer.GET("/orders", h.GetMyOrders)
		customer.GET("/orders/:id", h.GetOrder)
		customer.PUT("/orders/:id/cancel", h.CancelOrder)
	}

	// ── Restaurant owner routes ────────────────────────────────────
	restaurant := r.Group("/api/restaurant")
	restaurant.Use(authRequired, middleware.RoleRequired(models.RoleRestaurant))
	{
		restaurant.POST("", h.CreateRestaurant)
		restaurant.GET("", h.GetMyRestaurant)
		restaurant.PUT("", h.UpdateRestaurant)

		// Menu management
		restaurant.PUT("/menu", h.UpsertMenuItem)
		restaurant.POST("/menu", h.UpsertMenuItem)
		restaurant.PUT("/menu/:itemId", h.UpdateMenuItem)
		restaurant.DELETE("/menu/:itemId", h.DeleteMenuItem)
		restaurant.PATCH("/menu/:itemId/availability", h.ToggleMenuItemAvailability)

		// Order management
		restaurant.GET("/orders", h.GetRestaurantOrders)
		restaurant.PUT("/orders/:id/status", h.UpdateOrderStatus)
	}

	// ── Driver routes ──────────────────────────────────────────────
	driver := r.Group("/api/driver")
	driver.Use(authRequired, middleware.RoleRequired(models.RoleDriver))
	{
		driver.GET("/orders/available", h.GetAvailableOrders)
		driver.GET("/orders/my-deliveries", h.GetMyDeliveries)
		driver.PUT("/orders/:id/accept", h.AcceptDelivery)
		driver.PUT("/orders/:id/pickup", h.PickupOrder)
		driver.PUT("/orders/:id/deliver", h.DeliverOrder)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(authRequired, middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.PUT("/orders/:id/status", h.UpdateOrderStatus)
		admin.GET("/users", h.AdminGetAllUsers)
	}
}
