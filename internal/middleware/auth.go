package middleware

import (
	"net/http"

	"github.com/dvanbeek/boodschap/internal/auth"
	"github.com/dvanbeek/boodschap/internal/store"
)

// SessionCookieName is the cookie that carries the session token.
const SessionCookieName = "boodschap_session"

// RequireAuth validates the session cookie against the user's persisted
// session token and populates AuthContext. A token that no longer matches
// (because a later login rotated it) gets 401 like any other bad session.
func RequireAuth(users *store.UserStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookieName)
			if err != nil || cookie.Value == "" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			user, err := users.GetBySessionToken(cookie.Value)
			if err != nil || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ac := auth.AuthContext{
				UserID: user.ID,
				Name:   user.Name,
				Color:  user.Color,
			}

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
