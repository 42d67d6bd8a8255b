package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// GetAvailableOrders shows on_way orders that have no driver assigned
func (h *Handler) GetAvailableOrders(c *gin.Context) {
	orders, err := h.orders.AvailableForPickup(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetMyDeliveries returns all orders assigned to the logged-in driver
func (h *Handler) GetMyDeliveries(c *gin.Context) {
	orders, err := h.orders.ListOrders(c.Request.Context(), middleware.GetCaller(c), models.RoleDriver, models.OrderStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// AcceptDelivery assigns an unassigned on_way order to the driver. When two
// drivers race, the loser gets 409.
func (h *Handler) AcceptDelivery(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&req)

	order, err := h.orders.ClaimDelivery(c.Request.Context(), middleware.GetCaller(c), id, req.Note)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delivery accepted", "order": order})
}

// PickupOrder takes an order straight from the kitchen: preparing → on_way
func (h *Handler) PickupOrder(c *gin.Context) {
	h.driverTransition(c, models.StatusOnWay, "Order picked up")
}

// DeliverOrder transitions on_way → delivered
func (h *Handler) DeliverOrder(c *gin.Context) {
	h.driverTransition(c, models.StatusDelivered, "Order delivered")
}

func (h *Handler) driverTransition(c *gin.Context, to models.OrderStatus, message string) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
	}
	_ = c.ShouldBindJSON(&req)

	order, err := h.orders.UpdateStatus(c.Request.Context(), middleware.GetCaller(c), id, services.UpdateStatusInput{
		Status: to,
		Note:   req.Note,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "order": order})
}
