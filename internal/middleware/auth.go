package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/service"
)

type identityKey struct{}

type Resolver interface {
	Resolve(ctx context.Context, token string) (service.Identity, error)
}

func WithIdentity(ctx context.Context, id service.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func IdentityFrom(ctx context.Context) (service.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(service.Identity)
	return id, ok
}

// Authenticate resolves the bearer token and stores the caller's Identity in
// the request context. Requests without a valid token get 401.
func Authenticate(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				unauthorized(w, r, "Not authenticated")
				return
			}

			identity, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				var busErr *service.BusinessError
				if errors.As(err, &busErr) {
					unauthorized(w, r, busErr.Message)
					return
				}
				logger.Error("HTTP: token resolution failed", err, zap.String("request_id", GetRequestID(r.Context())))
				writeJSON(w, http.StatusInternalServerError, map[string]any{
					"error":   "INTERNAL_ERROR",
					"message": "Internal server error",
				})
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// RequireAdmin must run after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := IdentityFrom(r.Context())
		if !ok {
			unauthorized(w, r, "Not authenticated")
			return
		}
		if !identity.IsAdmin {
			logger.Warn("HTTP: admin route refused",
				zap.Int64("user_id", identity.UserID),
				zap.String("path", r.URL.Path))
			writeJSON(w, http.StatusForbidden, map[string]any{
				"error":   service.CodeForbidden,
				"message": "Admin privileges required",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, r *http.Request, message string) {
	logger.Debug("HTTP: unauthenticated request",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("path", r.URL.Path))
	w.Header().Set("WWW-Authenticate", "Bearer")
	writeJSON(w, http.StatusUnauthorized, map[string]any{
		"error":   service.CodeAuth,
		"message": message,
	})
}
