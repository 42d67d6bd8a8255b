package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// ListOrders returns the orders visible to the caller. ?role= picks the view
// (defaults to the caller's role) and ?status= filters.
func (h *Handler) ListOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), middleware.GetCaller(c),
		models.UserRole(c.Query("role")), models.OrderStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrder returns a single order with its status history
func (h *Handler) GetOrder(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	detail, err := h.orders.GetOrder(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// GetOrderETA runs the estimator against the order's current state
func (h *Handler) GetOrderETA(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	est, err := h.orders.EstimateDelivery(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"order_id": id, "eta": est})
}

// UpdateOrderStatus applies one lifecycle transition for whichever party is calling
func (h *Handler) UpdateOrderStatus(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req services.UpdateStatusInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	order, err := h.orders.UpdateStatus(c.Request.Context(), middleware.GetCaller(c), id, req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        "Order status updated",
		"order":          order,
		"current_status": order.Status,
	})
}

// Events upgrades to a websocket streaming the caller's order events
func (h *Handler) Events(c *gin.Context) {
	h.hub.ServeWS(c.Writer, c.Request, middleware.GetCaller(c))
}
