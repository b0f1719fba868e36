package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"bcmaccess/internal/catalog"
	apperrors "bcmaccess/internal/errors"
	"bcmaccess/internal/middleware"
	"bcmaccess/internal/services"
)

// ModulesHandler handles organization module listing requests
type ModulesHandler struct {
	service *services.AccessService
	errors  *apperrors.ErrorHandler
	logger  *slog.Logger
}

// NewModulesHandler creates a new modules handler
func NewModulesHandler(service *services.AccessService, logger *slog.Logger) *ModulesHandler {
	return &ModulesHandler{
		service: service,
		errors:  apperrors.NewErrorHandler(logger),
		logger:  logger.With(slog.String("handler", "modules")),
	}
}

// Routes returns a chi router for organization module endpoints
func (h *ModulesHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/{orgID}/modules", h.ListModules)
	r.Get("/{orgID}/modules/{moduleRef}", h.CheckModule)
	return r
}

// ListModules handles GET /api/organizations/{orgID}/modules
func (h *ModulesHandler) ListModules(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	orgID := chi.URLParam(r, "orgID")

	resp, err := h.service.ListModules(r.Context(), id, orgID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

// CheckModule handles GET /api/organizations/{orgID}/modules/{moduleRef}.
// The reference is a numeric module ID or a module name; names resolve
// through the catalog's alias table.
func (h *ModulesHandler) CheckModule(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	if chi.URLParam(r, "orgID") != id.OrganizationID {
		h.errors.HandleError(w, r, apperrors.ForbiddenError("cannot view modules of another organization"))
		return
	}

	raw := chi.URLParam(r, "moduleRef")
	ref := catalog.Ref{Name: raw}
	if moduleID, err := strconv.Atoi(raw); err == nil {
		ref = catalog.Ref{ID: moduleID}
	}

	status, err := h.service.CheckModule(r.Context(), id, ref)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, status)
}
