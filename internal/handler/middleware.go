package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/snake-arena/backend/internal/domain"
)

type contextKey string

const userKey contextKey = "user"

// RequireAuth validates the bearer token and injects the resolved user into
// the request context. Missing, malformed, expired and forged tokens all
// produce the same 401.
func (h *Handler) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if authHeader == "" || token == authHeader {
			h.writeDomainError(w, domain.ErrInvalidToken)
			return
		}

		user, err := h.auth.CurrentUser(r.Context(), token)
		if err != nil {
			h.writeDomainError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// userFrom returns the authenticated user stored by RequireAuth
func userFrom(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userKey).(domain.User)
	return user, ok
}
