package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apperrors "bcmaccess/internal/errors"
	"bcmaccess/internal/middleware"
	"bcmaccess/internal/services"
	api "bcmaccess/pkg/contracts/api/v1"
)

// CacheHandler handles administrative grant cache endpoints
type CacheHandler struct {
	service *services.AccessService
	errors  *apperrors.ErrorHandler
	logger  *slog.Logger
}

// NewCacheHandler creates a new cache handler
func NewCacheHandler(service *services.AccessService, logger *slog.Logger) *CacheHandler {
	return &CacheHandler{
		service: service,
		errors:  apperrors.NewErrorHandler(logger),
		logger:  logger.With(slog.String("handler", "cache")),
	}
}

// Routes returns a chi router for cache endpoints
func (h *CacheHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/invalidate", h.Invalidate)
	return r
}

// invalidatePayload wraps the contract type with validation
type invalidatePayload struct {
	api.CacheInvalidate
}

// Bind implements the render.Binder interface
func (p *invalidatePayload) Bind(r *http.Request) error {
	return validate.Struct(p.CacheInvalidate)
}

// Invalidate handles POST /api/cache/invalidate
func (h *CacheHandler) Invalidate(w http.ResponseWriter, r *http.Request) {
	payload := &invalidatePayload{}
	if err := render.Bind(r, payload); err != nil {
		h.errors.HandleError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}

	id := middleware.IdentityFromContext(r.Context())
	if err := h.service.InvalidateCache(r.Context(), id, &payload.CacheInvalidate); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, api.CacheInvalidateResponse{
		OrganizationID: payload.OrganizationID,
		Invalidated:    true,
		Timestamp:      time.Now().UTC(),
	})
}
