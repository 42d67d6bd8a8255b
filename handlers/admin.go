package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// AdminGetAllOrders returns every order with a dashboard summary (admin only)
func (h *Handler) AdminGetAllOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), middleware.GetCaller(c), models.RoleAdmin, models.OrderStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary := map[models.OrderStatus]int{}
	revenue := decimal.Zero
	for _, o := range orders {
		summary[o.Status]++
		if o.Status == models.StatusDelivered {
			revenue = revenue.Add(o.GrandTotal())
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"total_revenue": revenue.StringFixed(2),
		"count":         len(orders),
		"orders":        orders,
	})
}

// AdminGetAllUsers returns all users, optionally filtered by ?role= (admin only)
func (h *Handler) AdminGetAllUsers(c *gin.Context) {
	users, err := h.auth.ListUsers(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	if role := models.UserRole(c.Query("role")); role != "" {
		filtered := users[:0]
		for _, u := range users {
			if u.Role == role {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}
