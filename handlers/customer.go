package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// PlaceOrder creates a new order (customer only)
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req services.PlaceOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	order, err := h.orders.PlaceOrder(c.Request.Context(), middleware.GetCaller(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":                 "Order placed successfully",
		"order":                   order,
		"grand_total":             order.GrandTotal().StringFixed(2),
		"estimated_delivery_time": order.EstimatedDeliveryTime,
	})
}

// GetMyOrders returns all orders for the logged-in customer
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), middleware.GetCaller(c), models.RoleCustomer, models.OrderStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// CancelOrder cancels a pending order
func (h *Handler) CancelOrder(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	// body is optional
	_ = c.ShouldBindJSON(&req)
	note := req.Note
	if note == "" {
		note = "Order cancelled by customer"
	}

	order, err := h.orders.UpdateStatus(c.Request.Context(), middleware.GetCaller(c), id, services.UpdateStatusInput{
		Status: models.StatusCancelled,
		Note:   note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled successfully", "order": order})
}
