package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pollsystem/api/internal/core/domain"
	"github.com/pollsystem/api/internal/core/ports"
)

type contextKey string

const IdentityKey contextKey = "identity"

// Authenticate resolves the caller from a Bearer token or the access_token cookie. Requests
// without a valid token continue anonymously.
func Authenticate(auth ports.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := auth.Authenticate(token)
			if err != nil {
				slog.Debug("ignoring invalid token", slog.String("path", r.URL.Path), slog.Any("error", err))
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), IdentityKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole rejects anonymous callers with 401 and callers holding none of roles with 403.
// With no roles any authenticated caller passes.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := identityFrom(r)
			if identity == nil {
				writeErrorMessage(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if len(roles) > 0 && !identity.HasAnyRole(roles...) {
				writeErrorMessage(w, http.StatusForbidden, "insufficient role")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func identityFrom(r *http.Request) *domain.Identity {
	identity, ok := r.Context().Value(IdentityKey).(domain.Identity)
	if !ok {
		return nil
	}
	return &identity
}

func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := r.Cookie(accessTokenCookie); err == nil {
		return cookie.Value
	}
	return ""
}
