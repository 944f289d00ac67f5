package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/partycasino/internal/api/apierr"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/auth"
)

type contextKey string

const callerContextKey contextKey = "caller"

// Caller attaches the capability of the request's session, if any. Requests
// without a valid session continue as an unprivileged caller.
func Caller(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller := authService.Caller(extractToken(r))
			ctx := context.WithValue(r.Context(), callerContextKey, caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin rejects requests that do not carry a valid admin session
func RequireAdmin(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := authService.ValidateSession(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), callerContextKey, session.Caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractToken extracts the session token from the request
func extractToken(r *http.Request) string {
	// Check Authorization header first
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Fall back to cookie
	cookie, err := r.Cookie("session")
	if err == nil {
		return cookie.Value
	}

	return ""
}

// GetCaller returns the caller attached by Caller or RequireAdmin
func GetCaller(ctx context.Context) model.Caller {
	caller, _ := ctx.Value(callerContextKey).(model.Caller)
	return caller
}
