package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apperrors "bcmaccess/internal/errors"
	"bcmaccess/internal/middleware"
	"bcmaccess/internal/services"
	api "bcmaccess/pkg/contracts/api/v1"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RequestsHandler handles module access request endpoints
type RequestsHandler struct {
	service *services.AccessService
	errors  *apperrors.ErrorHandler
	logger  *slog.Logger
}

// NewRequestsHandler creates a new requests handler
func NewRequestsHandler(service *services.AccessService, logger *slog.Logger) *RequestsHandler {
	return &RequestsHandler{
		service: service,
		errors:  apperrors.NewErrorHandler(logger),
		logger:  logger.With(slog.String("handler", "module_requests")),
	}
}

// Routes returns a chi router for module access request endpoints
func (h *RequestsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Submit)
	r.Get("/mine", h.Mine)
	r.Get("/pending", h.Pending)
	r.Get("/{requestID}", h.Get)
	r.Post("/{requestID}/decide", h.Decide)
	return r
}

// createPayload wraps the contract type with request binding and validation
type createPayload struct {
	api.ModuleRequestCreate
}

// Bind implements the render.Binder interface
func (p *createPayload) Bind(r *http.Request) error {
	if err := validate.Struct(p.ModuleRequestCreate); err != nil {
		return err
	}
	if p.ModuleID == 0 && strings.TrimSpace(p.ModuleName) == "" {
		return errors.New("module_id or module_name is required")
	}
	return nil
}

// decidePayload wraps the decision contract type with validation
type decidePayload struct {
	api.ModuleRequestDecide
}

// Bind implements the render.Binder interface
func (p *decidePayload) Bind(r *http.Request) error {
	return validate.Struct(p.ModuleRequestDecide)
}

// Submit handles POST /api/module-requests
func (h *RequestsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	payload := &createPayload{}
	if err := render.Bind(r, payload); err != nil {
		h.errors.HandleError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}

	id := middleware.IdentityFromContext(r.Context())
	resp, err := h.service.SubmitRequest(r.Context(), id, &payload.ModuleRequestCreate)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// Mine handles GET /api/module-requests/mine
func (h *RequestsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	resp, err := h.service.MyRequests(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

// Pending handles GET /api/module-requests/pending
func (h *RequestsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())

	resp, err := h.service.PendingApprovals(r.Context(), id)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

// Get handles GET /api/module-requests/{requestID}
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := middleware.IdentityFromContext(r.Context())
	requestID := chi.URLParam(r, "requestID")

	resp, err := h.service.GetRequest(r.Context(), id, requestID)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}

// Decide handles POST /api/module-requests/{requestID}/decide
func (h *RequestsHandler) Decide(w http.ResponseWriter, r *http.Request) {
	payload := &decidePayload{}
	if err := render.Bind(r, payload); err != nil {
		h.errors.HandleError(w, r, apperrors.InvalidRequestWithError(err))
		return
	}

	id := middleware.IdentityFromContext(r.Context())
	requestID := chi.URLParam(r, "requestID")

	resp, err := h.service.Decide(r.Context(), id, requestID, &payload.ModuleRequestDecide)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, resp)
}
