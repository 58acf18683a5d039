package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iixiiartist/founderhq-enrichment/internal/observability"
	"github.com/iixiiartist/founderhq-enrichment/internal/service"
)

// ErrorBody is the caller-facing error shape.
type ErrorBody struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse is the error envelope returned by every endpoint.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// WriteError classifies the error and renders the envelope with the fixed
// user-safe message for its category. Rate-limit failures additionally carry
// the standard retry headers.
func WriteError(c echo.Context, err error) error {
	classified := observability.Classify(err)

	var rateErr *service.RateLimitError
	if errors.As(err, &rateErr) {
		setRateHeaders(c, rateErr.Result.Limit, rateErr.Result.Remaining, rateErr.Result.ResetAt)
		retryAfter := int(time.Until(rateErr.Result.ResetAt).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))
	}

	return c.JSON(classified.Status, ErrorResponse{Error: ErrorBody{
		Message: classified.UserMessage,
		Code:    string(classified.Category),
	}})
}

func setRateHeaders(c echo.Context, limit, remaining int, resetAt time.Time) {
	h := c.Response().Header()
	h.Set("X-RateLimit-Limit", fmt.Sprintf("%d", limit))
	h.Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))
	h.Set("X-RateLimit-Reset", fmt.Sprintf("%d", resetAt.Unix()))
}
