package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/reelhunter/recruiter/internal/workspace"
	apperrors "github.com/reelhunter/recruiter/pkg/errors"
	"github.com/reelhunter/recruiter/pkg/httputil"
	"github.com/reelhunter/recruiter/pkg/logger"
	"github.com/reelhunter/recruiter/pkg/middleware"
)

type contextKey int

const workspaceKey contextKey = iota

// ContentTypeJSON enforces that requests with a body have Content-Type:
// application/json. Bodyless commands such as cancel pass through.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength != 0 && !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnsupportedMediaType)
			_, _ = w.Write([]byte(`{"error":{"code":"UNSUPPORTED_MEDIA_TYPE","message":"Content-Type must be application/json"}}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithWorkspace opens the caller's workspace and stores it in the request
// context. It must run after middleware.Auth.
func WithWorkspace(manager *workspace.Manager, fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			ws, err := manager.Open(ctx, middleware.ClaimsFromContext(ctx))
			if err != nil {
				httputil.WriteError(w, r, err, fallback)
				return
			}

			if id := ws.ProfileID(); !id.IsZero() {
				ctx = logger.WithProfileID(ctx, id.String())
				ctx = logger.NewContext(ctx, logger.FromContext(ctx).With(slog.String("profile_id", id.String())))
			}
			ctx = context.WithValue(ctx, workspaceKey, ws)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRecruiter rejects callers whose profile cannot own a pipeline.
func RequireRecruiter(fallback *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ws := workspaceFrom(r.Context())
			if ws == nil || !ws.Resolver.State().IsRecruiter() {
				httputil.WriteError(w, r, apperrors.Forbidden("recruiter access required"), fallback)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func workspaceFrom(ctx context.Context) *workspace.Workspace {
	ws, _ := ctx.Value(workspaceKey).(*workspace.Workspace)
	return ws
}
