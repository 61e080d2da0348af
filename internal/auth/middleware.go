// Marker Editor - out-of-band marker annotation editor for media server libraries
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gomarkereditor/markereditor/internal/apperr"
)

type contextKey string

// sessionContextKey retrieves the authenticated Session from a request
// context set up by Middleware.
const sessionContextKey contextKey = "auth_session"

// SessionFromContext returns the session attached by Middleware, if any.
func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(Session)
	return s, ok
}

// bearerFromRequest reads the session token from the Authorization header
// or, failing that, the session cookie.
func bearerFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("marker_editor_session"); err == nil {
		return c.Value
	}
	return ""
}

// Middleware gates every request behind a or, when a is nil, lets every
// request through unauthenticated (the server's "auth disabled" mode).
// isExempt identifies requests that never require a session: the login
// command and static asset paths.
func Middleware(a *Authenticator, isExempt func(*http.Request) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if a == nil || isExempt(r) {
				next.ServeHTTP(w, r)
				return
			}

			session, err := a.Authenticate(r.Context(), bearerFromRequest(r))
			if err != nil {
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(apperr.Status(err))
	_ = json.NewEncoder(w).Encode(map[string]string{"Error": apperr.SafeMessage(err)})
}
