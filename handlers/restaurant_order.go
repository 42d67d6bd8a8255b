package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
)

// GetRestaurantOrders returns the owner's orders with a per-status summary
func (h *Handler) GetRestaurantOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), middleware.GetCaller(c), models.RoleRestaurant, models.OrderStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}

	summary := map[models.OrderStatus]int{}
	for _, o := range orders {
		summary[o.Status]++
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}
