package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iixiiartist/founderhq-enrichment/internal/dto"
	"github.com/iixiiartist/founderhq-enrichment/internal/middleware"
	"github.com/iixiiartist/founderhq-enrichment/internal/service"
	"github.com/iixiiartist/founderhq-enrichment/internal/service/urlcheck"
)

// EnrichHandler exposes the enrichment pipeline over HTTP.
type EnrichHandler struct {
	access *service.AccessService
	enrich *service.EnrichService
	logger *zap.Logger
}

// NewEnrichHandler wires a new EnrichHandler instance.
func NewEnrichHandler(access *service.AccessService, enrich *service.EnrichService, logger *zap.Logger) *EnrichHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrichHandler{access: access, enrich: enrich, logger: logger}
}

// Enrich handles POST /api/enrich.
func (h *EnrichHandler) Enrich(c echo.Context) error {
	requestID := middleware.RequestIDFromContext(c)

	var req dto.EnrichRequest
	if err := decodeBody(c, &req); err != nil {
		return WriteError(c, err)
	}

	workspaceID := req.WorkspaceID
	if workspaceID == "" {
		workspaceID = c.Request().Header.Get("X-Workspace-Id")
	}

	principal, err := h.access.Authorize(c.Request().Context(), middleware.BearerFromContext(c), workspaceID)
	if err != nil {
		return WriteError(c, err)
	}

	if err := urlcheck.ValidatePayload(req.URLs, principal.WorkspaceID.String()); err != nil {
		return WriteError(c, err)
	}

	outcome, err := h.enrich.Enrich(c.Request().Context(), service.EnrichCommand{
		Principal: principal,
		RequestID: requestID,
		URLs:      req.URLs,
		UseCache:  req.CacheEnabled(),
		Provider:  req.Provider,
	})
	if err != nil {
		return WriteError(c, err)
	}

	setRateHeaders(c, outcome.Rate.Limit, outcome.Rate.Remaining, outcome.Rate.ResetAt)

	return c.JSON(http.StatusOK, dto.EnrichResponse{
		Success:    true,
		Enrichment: outcome.Data,
		Provider:   outcome.Provider,
		DurationMs: outcome.DurationMs,
		Cached:     outcome.Cached,
		Degraded:   outcome.Degraded,
		RequestID:  requestID,
	})
}

// InvalidateCache handles DELETE /api/enrich/cache. Without a domain it
// clears the whole workspace cache.
func (h *EnrichHandler) InvalidateCache(c echo.Context) error {
	var req dto.InvalidateCacheRequest
	if c.Request().ContentLength > 0 {
		if err := decodeBody(c, &req); err != nil {
			return WriteError(c, err)
		}
	}

	workspaceID := req.WorkspaceID
	if workspaceID == "" {
		workspaceID = c.Request().Header.Get("X-Workspace-Id")
	}

	principal, err := h.access.Authorize(c.Request().Context(), middleware.BearerFromContext(c), workspaceID)
	if err != nil {
		return WriteError(c, err)
	}

	removed, err := h.enrich.InvalidateCache(c.Request().Context(), principal, req.Domain)
	if err != nil {
		return WriteError(c, err)
	}

	return c.JSON(http.StatusOK, dto.InvalidateCacheResponse{Success: true, Removed: removed})
}

// decodeBody parses JSON with the size cap enforced before any parsing.
func decodeBody(c echo.Context, out any) error {
	if c.Request().ContentLength > urlcheck.MaxBodyBytes {
		return errors.New("request body exceeds the maximum allowed size")
	}

	limited := io.LimitReader(c.Request().Body, urlcheck.MaxBodyBytes+1)
	payload, err := io.ReadAll(limited)
	if err != nil {
		return errors.New("request body could not be read")
	}
	if len(payload) > urlcheck.MaxBodyBytes {
		return errors.New("request body exceeds the maximum allowed size")
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return errors.New("request body is not valid JSON")
	}
	return nil
}
