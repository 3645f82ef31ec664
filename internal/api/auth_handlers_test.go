package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/arcadehq/arcade/internal/auth"
	"github.com/arcadehq/arcade/internal/middleware"
	"github.com/arcadehq/arcade/internal/user"
)

const testClientURL = "http://localhost:3000"

// fakeOAuth satisfies OAuthProvider without talking to the network.
type fakeOAuth struct {
	profile     user.Profile
	exchangeErr error
	gotCode     string
}

func (f *fakeOAuth) AuthCodeURL(state string) string {
	return "https://accounts.example.com/consent?state=" + state
}

func (f *fakeOAuth) Exchange(ctx context.Context, code string) (user.Profile, error) {
	f.gotCode = code
	if f.exchangeErr != nil {
		return user.Profile{}, f.exchangeErr
	}
	return f.profile, nil
}

func newAuthHandlers(oauth OAuthProvider) (*AuthHandlers, *user.InMemoryRepository, *auth.SessionService) {
	users := user.NewInMemoryRepository()
	sessions := auth.NewSessionService("test-secret-for-auth-handlers-1234")
	return NewAuthHandlers(oauth, users, sessions, testClientURL, false), users, sessions
}

// findCookie returns the named cookie from the recorded response, or nil.
func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGoogleLogin(t *testing.T) {
	h, _, _ := newAuthHandlers(&fakeOAuth{})

	req := httptest.NewRequest(http.MethodGet, "/auth/google", nil)
	rr := httptest.NewRecorder()
	h.GoogleLogin(rr, req)

	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rr.Code)
	}

	state := findCookie(rr, stateCookieName)
	if state == nil || state.Value == "" {
		t.Fatal("expected a state cookie")
	}
	if !state.HttpOnly {
		t.Error("state cookie must be HttpOnly")
	}

	location := rr.Header().Get("Location")
	if !strings.Contains(location, "state="+state.Value) {
		t.Errorf("redirect %q does not carry the state cookie value", location)
	}
}

func TestGoogleCallback_Success(t *testing.T) {
	oauth := &fakeOAuth{profile: user.Profile{
		ProviderID: "google-123",
		Name:       "Demo User",
		Email:      "demo@example.com",
	}}
	h, users, sessions := newAuthHandlers(oauth)

	req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc&code=the-code", nil)
	req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})
	rr := httptest.NewRecorder()
	h.GoogleCallback(rr, req)

	if rr.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307: %s", rr.Code, rr.Body.String())
	}
	if location := rr.Header().Get("Location"); location != testClientURL+"/dashboard" {
		t.Errorf("Location = %q, want dashboard redirect", location)
	}
	if oauth.gotCode != "the-code" {
		t.Errorf("exchanged code = %q, want the-code", oauth.gotCode)
	}

	// Session cookie carries a token that validates to the created user
	session := findCookie(rr, middleware.SessionCookieName)
	if session == nil || session.Value == "" {
		t.Fatal("expected a session cookie")
	}
	if !session.HttpOnly {
		t.Error("session cookie must be HttpOnly")
	}

	userID, err := sessions.ValidateSessionToken(session.Value)
	if err != nil {
		t.Fatalf("session token invalid: %v", err)
	}
	u, err := users.GetByID(context.Background(), userID)
	if err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.Email != "demo@example.com" {
		t.Errorf("Email = %q, want demo@example.com", u.Email)
	}

	// State cookie is cleared
	state := findCookie(rr, stateCookieName)
	if state == nil || state.MaxAge >= 0 {
		t.Error("state cookie should be cleared after callback")
	}
}

func TestGoogleCallback_Failures(t *testing.T) {
	tests := []struct {
		name  string
		build func(h *AuthHandlers) *http.Request
		oauth *fakeOAuth
	}{
		{
			name:  "missing state cookie",
			oauth: &fakeOAuth{},
			build: func(h *AuthHandlers) *http.Request {
				return httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc&code=c", nil)
			},
		},
		{
			name:  "state mismatch",
			oauth: &fakeOAuth{},
			build: func(h *AuthHandlers) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=evil&code=c", nil)
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})
				return req
			},
		},
		{
			name:  "missing code",
			oauth: &fakeOAuth{},
			build: func(h *AuthHandlers) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc", nil)
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})
				return req
			},
		},
		{
			name:  "exchange fails",
			oauth: &fakeOAuth{exchangeErr: errors.New("provider down")},
			build: func(h *AuthHandlers) *http.Request {
				req := httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc&code=c", nil)
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: "abc"})
				return req
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newAuthHandlers(tt.oauth)

			rr := httptest.NewRecorder()
			h.GoogleCallback(rr, tt.build(h))

			if rr.Code != http.StatusTemporaryRedirect {
				t.Fatalf("status = %d, want 307", rr.Code)
			}
			if location := rr.Header().Get("Location"); location != testClientURL+"/login?error=auth_failed" {
				t.Errorf("Location = %q, want login error redirect", location)
			}
			if session := findCookie(rr, middleware.SessionCookieName); session != nil && session.Value != "" {
				t.Error("failed login must not set a session cookie")
			}
		})
	}
}

func TestMe(t *testing.T) {
	h, users, _ := newAuthHandlers(&fakeOAuth{})

	u, err := users.FindOrCreate(context.Background(), user.Profile{
		ProviderID: "google-123",
		Name:       "Demo User",
		Email:      "demo@example.com",
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	t.Run("known user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req = req.WithContext(middleware.SetUserID(req.Context(), u.ID))
		rr := httptest.NewRecorder()
		h.Me(rr, req)

		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), "demo@example.com") {
			t.Errorf("body missing profile: %s", rr.Body.String())
		}
	})

	t.Run("unknown user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
		req = req.WithContext(middleware.SetUserID(req.Context(), "ghost"))
		rr := httptest.NewRecorder()
		h.Me(rr, req)

		if rr.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", rr.Code)
		}
	})
}

func TestLogout(t *testing.T) {
	h, _, _ := newAuthHandlers(&fakeOAuth{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rr := httptest.NewRecorder()
	h.Logout(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	session := findCookie(rr, middleware.SessionCookieName)
	if session == nil {
		t.Fatal("expected a cleared session cookie")
	}
	if session.Value != "" || session.MaxAge >= 0 {
		t.Errorf("session cookie not cleared: value=%q maxAge=%d", session.Value, session.MaxAge)
	}
}
