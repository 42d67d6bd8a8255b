package handlers

import (
	"net/http"

	"food-marketplace-api/models"
	"food-marketplace-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListRestaurants returns active restaurants, most punctual first (public)
func (h *Handler) ListRestaurants(c *gin.Context) {
	restaurants, err := h.restaurants.ListRestaurants(c.Request.Context(), c.Query("search"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":       len(restaurants),
		"restaurants": restaurants,
	})
}

// GetRestaurant returns a restaurant with its available menu items
func (h *Handler) GetRestaurant(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	restaurant, err := h.restaurants.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

// GetMenu returns only the available menu of a restaurant (public)
func (h *Handler) GetMenu(c *gin.Context) {
	id, ok := h.idParam(c, "id")
	if !ok {
		return
	}
	restaurant, err := h.restaurants.GetRestaurant(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restaurant": restaurant.Name,
		"count":      len(restaurant.MenuItems),
		"menu":       restaurant.MenuItems,
	})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	terminal := []models.OrderStatus{}
	for _, s := range models.AllStatuses {
		if statemachine.IsTerminal(s) {
			terminal = append(terminal, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"state_machine":   statemachine.AllTransitions(),
		"states":          models.AllStatuses,
		"terminal_states": terminal,
		"description":     "Food delivery order lifecycle. Admins may perform any listed transition.",
	})
}
