package middleware

import (
	"time"

	"food-marketplace-api/logging"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const ctxLogEntry = "logEntry"

// RequestLogger tags each request with an id, stores a request-scoped logrus
// entry in the request context and writes one access line when it finishes.
func RequestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)

		entry := log.WithField("request_id", id)
		setEntry(c, entry)

		c.Next()

		if e, ok := entryFrom(c); ok {
			entry = e
		}
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		fields := logrus.Fields{
			"method":  c.Request.Method,
			"path":    path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			fields["errors"] = c.Errors.String()
		}
		switch status := c.Writer.Status(); {
		case status >= 500:
			entry.WithFields(fields).Error("request")
		case status >= 400:
			entry.WithFields(fields).Warn("request")
		default:
			entry.WithFields(fields).Info("request")
		}
	}
}

// setEntry stores entry on the gin context and in the request context, so
// services called with c.Request.Context() log with the same fields.
func setEntry(c *gin.Context, entry *logrus.Entry) {
	c.Set(ctxLogEntry, entry)
	c.Request = c.Request.WithContext(logging.WithEntry(c.Request.Context(), entry))
}

func entryFrom(c *gin.Context) (*logrus.Entry, bool) {
	v, ok := c.Get(ctxLogEntry)
	if !ok {
		return nil, false
	}
	e, ok := v.(*logrus.Entry)
	return e, ok && e != nil
}
