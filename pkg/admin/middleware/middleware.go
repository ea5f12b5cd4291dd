// Package middleware provides HTTP middleware for the admin server.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/marmos91/srvkit/internal/logger"
	"github.com/marmos91/srvkit/pkg/admin/auth"
	"github.com/marmos91/srvkit/pkg/admin/handlers"
	"github.com/marmos91/srvkit/pkg/metrics"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// ClaimsFromContext returns the token claims stored by RequireScope, or nil.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}

// extractBearerToken extracts the token from a Bearer Authorization header.
func extractBearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// RequireScope rejects requests without a valid bearer token granting scope.
// A nil service disables the check.
func RequireScope(svc *auth.TokenService, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if svc == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := extractBearerToken(r)
			if !ok {
				handlers.WriteProblem(w, http.StatusUnauthorized, "Unauthorized", "Authorization header required")
				return
			}

			claims, err := svc.ValidateScope(token, scope)
			if err != nil {
				status := http.StatusUnauthorized
				if errors.Is(err, auth.ErrMissingScope) {
					status = http.StatusForbidden
				}
				handlers.WriteProblem(w, status, http.StatusText(status), err.Error())
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger logs every request on log. Completion is logged at DEBUG so
// frequent scrapes of /admin/metrics do not flood the output.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			if ww.Status() >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			log.Log(r.Context(), level, "Admin request completed",
				logger.KeyRequestID, chimw.GetReqID(r.Context()),
				logger.KeyMethod, r.Method,
				logger.KeyRoute, r.URL.Path,
				logger.KeyStatus, ww.Status(),
				logger.KeyClientIP, r.RemoteAddr,
				logger.KeyDurationMs, logger.Duration(start),
			)
		})
	}
}

// Instrument records each request on m, labelled by the matched route pattern
// so path parameters do not explode label cardinality.
func Instrument(m metrics.AdminMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			metrics.ObserveRequest(m, route, r.Method, status, time.Since(start))
		})
	}
}
