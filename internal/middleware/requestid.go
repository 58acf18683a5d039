package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iixiiartist/founderhq-enrichment/internal/observability"
)

// RequestID tags every request with a pipeline correlation ID and echoes it
// back in the response headers. Caller-supplied IDs are ignored so log
// correlation cannot be spoofed.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := observability.NewRequestID()
			c.Set(ContextKeyRequestID, rid)
			c.Response().Header().Set("X-Request-Id", rid)
			return next(c)
		}
	}
}

// RequestIDFromContext extracts the request identifier if available.
func RequestIDFromContext(c echo.Context) string {
	if val, ok := c.Get(ContextKeyRequestID).(string); ok {
		return val
	}
	return ""
}
