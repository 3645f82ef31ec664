package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/arcadehq/arcade/internal/auth"
	"github.com/arcadehq/arcade/internal/middleware"
	"github.com/arcadehq/arcade/internal/user"
)

// stateCookieName holds the anti-CSRF state between the consent redirect and
// the provider callback.
const stateCookieName = "arcade_oauth_state"

// stateCookieMaxAge bounds how long a login attempt can stay pending.
const stateCookieMaxAge = 10 * time.Minute

// OAuthProvider is the slice of the OAuth flow the handlers need. Satisfied
// by *auth.GoogleOAuth.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (user.Profile, error)
}

// AuthHandlers holds dependencies for the login flow and session endpoints.
type AuthHandlers struct {
	oauth     OAuthProvider
	users     user.Repository
	sessions  *auth.SessionService
	clientURL string
	secure    bool
}

// NewAuthHandlers creates a new AuthHandlers instance. secure controls the
// Secure flag on issued cookies and should be true outside development.
func NewAuthHandlers(oauth OAuthProvider, users user.Repository, sessions *auth.SessionService, clientURL string, secure bool) *AuthHandlers {
	return &AuthHandlers{
		oauth:     oauth,
		users:     users,
		sessions:  sessions,
		clientURL: clientURL,
		secure:    secure,
	}
}

// GoogleLogin handles GET /auth/google - starts the login flow by redirecting
// the browser to the provider consent screen.
func (h *AuthHandlers) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state := uuid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(stateCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// GoogleCallback handles GET /auth/google/callback - completes the login
// flow. On success the browser gets a session cookie and lands on the
// dashboard; any failure redirects to the login page with an error marker.
func (h *AuthHandlers) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		h.loginFailed(w, r)
		return
	}

	// State is single-use
	h.clearCookie(w, stateCookieName)

	code := r.URL.Query().Get("code")
	if code == "" {
		h.loginFailed(w, r)
		return
	}

	profile, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.loginFailed(w, r)
		return
	}

	u, err := h.users.FindOrCreate(r.Context(), profile)
	if err != nil {
		h.loginFailed(w, r)
		return
	}

	token, err := h.sessions.GenerateSessionToken(u.ID)
	if err != nil {
		h.loginFailed(w, r)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.SessionTokenExpiry.Seconds()),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.clientURL+"/dashboard", http.StatusTemporaryRedirect)
}

// Me handles GET /auth/me - returns the authenticated user's profile.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, user.ErrUserNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeUnauthenticated)
			WriteError(w, ctx, http.StatusUnauthorized, ErrCodeUnauthenticated, "Unknown user")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load user")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, u)
}

// Logout handles POST /auth/logout - clears the session cookie. The token
// itself stays valid until expiry; logout only forgets it client-side.
func (h *AuthHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, middleware.SessionCookieName)
	WriteJSON(w, r.Context(), http.StatusOK, map[string]string{"message": "Logged out"})
}

func (h *AuthHandlers) loginFailed(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.clientURL+"/login?error=auth_failed", http.StatusTemporaryRedirect)
}

func (h *AuthHandlers) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
