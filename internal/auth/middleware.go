package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/groupdesk/groupdesk-be/internal/apperr"
	"github.com/groupdesk/groupdesk-be/internal/models"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "session"

type contextKey string

// userKey is the context key under which the authenticated user rides.
const userKey = contextKey("authUser")

// SessionValidator resolves a session token to its user. Implemented by
// services.SessionService.
type SessionValidator interface {
	Validate(ctx context.Context, token string) (models.User, error)
}

// TokenFromRequest extracts the session token from the request: the session
// cookie first, then an Authorization bearer header. Empty when absent.
func TokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if h := r.Header.Get("Authorization"); h != "" {
		if parts := strings.SplitN(h, "Bearer ", 2); len(parts) == 2 {
			return strings.TrimSpace(parts[1])
		}
	}
	return ""
}

// SessionMiddleware is the request gate's authentication step: extract the
// token, validate it, and put the user on the context. Missing tokens and
// invalid sessions fail with 401 before any resource is touched.
func SessionMiddleware(sessions SessionValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, apperr.Unauthorized("Authentication required"))
				return
			}

			user, err := sessions.Validate(r.Context(), token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, apperr.Unauthorized("Invalid session"))
				return
			}

			ctx := context.WithValue(r.Context(), userKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin gates admin-only routes. It must run inside SessionMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, apperr.Unauthorized("Authentication required"))
			return
		}
		if !user.IsAdmin {
			writeError(w, http.StatusForbidden, apperr.Forbidden("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// UserFromContext returns the authenticated user placed by SessionMiddleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

// ContextWithUser is used by tests and the websocket handler to fabricate an
// authenticated context.
func ContextWithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// CanAccessGroup implements the group-scoping rule: admins see everything,
// everyone else only their own group.
func CanAccessGroup(user models.User, groupID string) bool {
	return user.IsAdmin || user.GroupID == groupID
}

func writeError(w http.ResponseWriter, status int, e *apperr.Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   e,
	})
}
