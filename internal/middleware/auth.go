package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/arcadehq/arcade/internal/auth"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "arcade_session"

// RequireAuth validates the session token on each request and stores the
// authenticated user ID in the context. The token is read from the session
// cookie, or from an Authorization: Bearer header as a fallback for
// non-browser clients. Requests without a valid token get a 401.
func RequireAuth(sessions *auth.SessionService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := sessionToken(r)
			if token == "" {
				writeUnauthenticated(w, r, "authentication required")
				return
			}

			userID, err := sessions.ValidateSessionToken(token)
			if err != nil {
				writeUnauthenticated(w, r, "invalid or expired session")
				return
			}

			ctx := SetUserID(r.Context(), userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// writeUnauthenticated emits the standard error envelope without importing
// the api package, which would create an import cycle.
func writeUnauthenticated(w http.ResponseWriter, r *http.Request, message string) {
	UpdateResponseContext(w, SetErrorCode(r.Context(), "unauthenticated"))

	body := struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}{}
	body.Error.Code = "unauthenticated"
	body.Error.Message = message

	data, err := json.Marshal(body)
	if err != nil {
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write(data)
}
