package middleware

import (
	"log/slog"
	"net/http"

	"github.com/reelhunter/recruiter/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, enriched
// with the correlation id, authenticated user and trace ids. Mount it after
// RequestLogging, Tracing and Auth so those values are present.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if claims := ClaimsFromContext(ctx); claims != nil {
				ctx = logger.WithUserID(ctx, claims.UserID)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
