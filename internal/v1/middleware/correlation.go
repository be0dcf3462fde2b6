// Package middleware holds the gin middlewares of the HTTP surface.
package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quizdome/quizdome/backend/go/internal/v1/logging"
)

// HeaderXCorrelationID carries the request correlation ID in both directions.
const HeaderXCorrelationID = "X-Correlation-ID"

// CorrelationID accepts a caller-provided correlation ID or mints one, and
// threads it through the response header, the gin context and the request
// context so log lines and downstream calls share it.
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		correlationID := c.GetHeader(HeaderXCorrelationID)
		if correlationID == "" {
			correlationID = uuid.New().String()
		}

		// Set in header for response
		c.Header(HeaderXCorrelationID, correlationID)

		// Set in gin context and the request context, so both gin handlers
		// and anything logging through c.Request.Context() see it
		c.Set(string(logging.CorrelationIDKey), correlationID)
		ctx := context.WithValue(c.Request.Context(), logging.CorrelationIDKey, correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
