package handlers

import (
	"net/http"
	"strconv"

	"food-marketplace-api/apperr"
	"food-marketplace-api/events"
	"food-marketplace-api/logging"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler adapts HTTP requests onto the services. It holds no state of its own.
type Handler struct {
	orders      *services.OrderService
	restaurants *services.RestaurantService
	auth        *services.AuthService
	hub         *events.Hub
	log         *logrus.Logger
}

func New(orders *services.OrderService, restaurants *services.RestaurantService, auth *services.AuthService, hub *events.Hub, log *logrus.Logger) *Handler {
	return &Handler{orders: orders, restaurants: restaurants, auth: auth, hub: hub, log: log}
}

// respondError maps an apperr kind onto its HTTP status. Backend failures are
// logged and reported without detail.
func (h *Handler) respondError(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if kind == apperr.KindBackend {
		logging.FromContext(c.Request.Context(), h.log).WithError(err).Error("request failed")
		_ = c.Error(err)
	}

	body := gin.H{"error": apperr.PublicMessage(err), "kind": kind}
	for k, v := range apperr.DetailsOf(err) {
		body[k] = v
	}
	c.AbortWithStatusJSON(status, body)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error(), "kind": apperr.KindValidation})
}

// idParam parses a positive numeric path parameter.
func (h *Handler) idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		h.respondError(c, apperr.Validation("%s must be a positive integer", name))
		return 0, false
	}
	return uint(id), true
}
