package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"eventdesk/pkg/requestcontext"
)

// TokenValidator validates a bearer token and yields the owner it belongs
// to. Implemented by internal/jwtauth.
type TokenValidator interface {
	ValidateToken(tokenString string) (*TokenClaims, error)
}

// TokenClaims are the claims the middleware needs from a validated token.
type TokenClaims struct {
	OwnerID string
}

// RequireAuth enforces a valid bearer token and stores the owner ID in the
// request context for owner-scoped services.
func RequireAuth(validator TokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err.Error(),
					"request_id", requestID,
				)
				writeUnauthorized(w)
				return
			}

			ctx = requestcontext.WithOwnerID(ctx, claims.OwnerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":"invalid or missing token"}`))
}
