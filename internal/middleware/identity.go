package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"bcmaccess/internal/infrastructure"
	"bcmaccess/pkg/contracts/domain"
)

// Identity propagation headers, installed by the platform's authentication
// gateway before requests reach this service.
const (
	HeaderUserID         = "X-User-ID"
	HeaderOrganizationID = "X-Organization-ID"
	HeaderUserRole       = "X-User-Role"
)

type identityContextKey struct{}

// Identity extracts the caller identity headers into the request context.
// Requests missing any of the three headers are refused; every operation
// downstream requires an explicit caller triple.
func Identity(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			id := domain.Identity{
				UserID:         r.Header.Get(HeaderUserID),
				OrganizationID: r.Header.Get(HeaderOrganizationID),
				Role:           r.Header.Get(HeaderUserRole),
			}

			if id.UserID == "" || id.OrganizationID == "" || id.Role == "" {
				logger.WarnContext(ctx, "request missing identity headers",
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
				)

				w.Header().Set("Content-Type", "application/problem+json")
				w.WriteHeader(http.StatusUnauthorized)

				traceID := infrastructure.GetTraceID(ctx)
				response := `{"type":"/errors/unauthorized","title":"Unauthorized","status":401,"detail":"Caller identity headers are required","trace_id":"` + traceID + `"}`
				w.Write([]byte(response))
				return
			}

			ctx = context.WithValue(ctx, identityContextKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// IdentityFromContext returns the caller identity set by the Identity
// middleware. The zero Identity is returned when the middleware did not run.
func IdentityFromContext(ctx context.Context) domain.Identity {
	if id, ok := ctx.Value(identityContextKey{}).(domain.Identity); ok {
		return id
	}
	return domain.Identity{}
}
