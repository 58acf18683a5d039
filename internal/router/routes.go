package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iixiiartist/founderhq-enrichment/internal/handler"
	middlewarepkg "github.com/iixiiartist/founderhq-enrichment/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Enrich *handler.EnrichHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
	})

	api := e.Group("/api")
	api.Use(middlewarepkg.Bearer())
	api.POST("/enrich", handlers.Enrich.Enrich)
	api.DELETE("/enrich/cache", handlers.Enrich.InvalidateCache)
}
