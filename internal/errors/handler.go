package errors

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
)

// ErrorHandler converts domain errors to API error responses and logs them
// with request context.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{logger: logger.With(slog.String("component", "error_handler"))}
}

// HandleError maps err onto the access-control taxonomy and writes the
// corresponding APIError response.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := h.toAPIError(err)

	ctx := r.Context()
	if apiErr.StatusCode >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, "request failed",
			slog.String("error", err.Error()),
			slog.String("error_code", apiErr.ErrorCode),
			slog.Int("status", apiErr.StatusCode),
			slog.String("path", r.URL.Path),
		)
	} else {
		h.logger.WarnContext(ctx, "request rejected",
			slog.String("error", err.Error()),
			slog.String("error_code", apiErr.ErrorCode),
			slog.Int("status", apiErr.StatusCode),
			slog.String("path", r.URL.Path),
		)
	}

	if renderErr := render.Render(w, r, apiErr); renderErr != nil {
		h.logger.ErrorContext(ctx, "failed to render error response",
			slog.String("error", renderErr.Error()))
	}
}

// toAPIError maps the typed access-control taxonomy and APIError passthrough
// onto HTTP responses. Unrecognized errors become 500 without leaking detail.
func (h *ErrorHandler) toAPIError(err error) *APIError {
	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}

	switch {
	case IsUnknownModule(err):
		return NewWithDetails(http.StatusNotFound, "UNKNOWN_MODULE", "Module not found in catalog", err.Error())
	case IsDuplicateRequest(err):
		return NewWithDetails(http.StatusConflict, "DUPLICATE_REQUEST", "A request for this module is already pending", err.Error())
	case IsInvalidTransition(err):
		return NewWithDetails(http.StatusConflict, "INVALID_TRANSITION", "Request is not in a state that accepts this decision", err.Error())
	case IsVersionConflict(err):
		return NewWithDetails(http.StatusConflict, "VERSION_CONFLICT", "Request was modified concurrently; re-read and retry", err.Error())
	case IsRoleNotPermitted(err):
		return NewWithDetails(http.StatusForbidden, "ROLE_NOT_PERMITTED", "Caller role is not permitted to perform this operation", err.Error())
	case IsStoreUnavailable(err):
		return New(http.StatusServiceUnavailable, "STORE_UNAVAILABLE", "Backing store temporarily unavailable")
	default:
		return ErrInternalServer
	}
}
