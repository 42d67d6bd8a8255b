package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

// CreateRestaurant registers the caller's restaurant
func (h *Handler) CreateRestaurant(c *gin.Context) {
	var req services.RestaurantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	restaurant, err := h.restaurants.CreateRestaurant(c.Request.Context(), middleware.GetCaller(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Restaurant created", "restaurant": restaurant})
}

// GetMyRestaurant returns the owner's restaurant with the full menu
func (h *Handler) GetMyRestaurant(c *gin.Context) {
	restaurant, err := h.restaurants.MyRestaurant(c.Request.Context(), middleware.GetCaller(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restaurant": restaurant})
}

func (h *Handler) UpdateRestaurant(c *gin.Context) {
	var req services.RestaurantInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	restaurant, err := h.restaurants.UpdateRestaurant(c.Request.Context(), middleware.GetCaller(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Restaurant updated", "restaurant": restaurant})
}

// UpsertMenuItem creates a menu item, or updates it when the body carries an id
func (h *Handler) UpsertMenuItem(c *gin.Context) {
	var req services.MenuItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	h.saveMenuItem(c, req)
}

// UpdateMenuItem updates the item named in the path
func (h *Handler) UpdateMenuItem(c *gin.Context) {
	id, ok := h.idParam(c, "itemId")
	if !ok {
		return
	}
	var req services.MenuItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, err)
		return
	}
	req.ID = &id
	h.saveMenuItem(c, req)
}

func (h *Handler) saveMenuItem(c *gin.Context, req services.MenuItemInput) {
	created := req.ID == nil
	item, err := h.restaurants.UpsertMenuItem(c.Request.Context(), middleware.GetCaller(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if created {
		c.JSON(http.StatusCreated, gin.H{"message": "Menu item added", "item": item})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item updated", "item": item})
}

func (h *Handler) DeleteMenuItem(c *gin.Context) {
	id, ok := h.idParam(c, "itemId")
	if !ok {
		return
	}
	if err := h.restaurants.DeleteMenuItem(c.Request.Context(), middleware.GetCaller(c), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item deleted", "item_id": id})
}

// ToggleMenuItemAvailability flips whether customers can order the item
func (h *Handler) ToggleMenuItemAvailability(c *gin.Context) {
	id, ok := h.idParam(c, "itemId")
	if !ok {
		return
	}
	item, err := h.restaurants.ToggleMenuItemAvailability(c.Request.Context(), middleware.GetCaller(c), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Menu item availability updated", "item": item})
}
