package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthCheck probes one dependency; nil means healthy.
type HealthCheck func(ctx context.Context) error

// Health reports 200 when every check passes and 503 otherwise, with the
// state of each dependency by name.
func Health(service string, checks map[string]HealthCheck, info gin.H) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		states := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				states[name] = "unavailable"
				continue
			}
			states[name] = "ok"
		}

		body := gin.H{
			"status":  http.StatusText(status),
			"service": service,
			"checks":  states,
		}
		for k, v := range info {
			body[k] = v
		}
		c.JSON(status, body)
	}
}
