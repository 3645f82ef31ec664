package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 44-character base64 string, as produced by `openssl rand -base64 32`
const testSecret = "rB2Xm7Pq4v9Qw1Zb2l8Qk9J3p6Qk8Qn1v9Qw1Zb2l8Q="

func TestGenerateSessionToken(t *testing.T) {
	svc := NewSessionService(testSecret)

	tests := []struct {
		name    string
		userID  string
		wantErr bool
	}{
		{name: "valid token", userID: "user-123"},
		{name: "empty userID", userID: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := svc.GenerateSessionToken(tt.userID)
			if (err != nil) != tt.wantErr {
				t.Errorf("GenerateSessionToken() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if err == nil {
				if token == "" {
					t.Error("GenerateSessionToken() returned empty token")
				}
				if strings.Count(token, ".") != 2 {
					t.Errorf("token is not a JWT: %q", token)
				}
			}
		})
	}
}

func TestValidateSessionToken_RoundTrip(t *testing.T) {
	svc := NewSessionService(testSecret)

	token, err := svc.GenerateSessionToken("user-123")
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	userID, err := svc.ValidateSessionToken(token)
	if err != nil {
		t.Fatalf("ValidateSessionToken() error = %v", err)
	}
	if userID != "user-123" {
		t.Errorf("userID = %q, want user-123", userID)
	}
}

func TestValidateSessionToken_WrongSecret(t *testing.T) {
	token, err := NewSessionService(testSecret).GenerateSessionToken("user-123")
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	other := NewSessionService("a-completely-different-secret-value-here")
	if _, err := other.ValidateSessionToken(token); err != ErrInvalidToken {
		t.Errorf("ValidateSessionToken() = %v, want ErrInvalidToken", err)
	}
}

func TestValidateSessionToken_Garbage(t *testing.T) {
	svc := NewSessionService(testSecret)
	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.ValidateSessionToken(token); err != ErrInvalidToken {
			t.Errorf("ValidateSessionToken(%q) = %v, want ErrInvalidToken", token, err)
		}
	}
}

func TestValidateSessionToken_Expired(t *testing.T) {
	svc := NewSessionService(testSecret)
	svc.leeway = 0

	// Hand-craft a token that expired well in the past
	now := time.Now().Add(-48 * time.Hour)
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
		Type: tokenTypeSession,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.ValidateSessionToken(token); err != ErrExpiredToken {
		t.Errorf("ValidateSessionToken() = %v, want ErrExpiredToken", err)
	}
}

func TestValidateSessionToken_RejectsWrongType(t *testing.T) {
	svc := NewSessionService(testSecret)

	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-123",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Type: "refresh",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := svc.ValidateSessionToken(token); err != ErrInvalidToken {
		t.Errorf("ValidateSessionToken() = %v, want ErrInvalidToken", err)
	}
}

func TestValidateSessionToken_SecretRotation(t *testing.T) {
	oldSvc := NewSessionService(testSecret)
	token, err := oldSvc.GenerateSessionToken("user-123")
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}

	// After rotation, tokens signed with the previous secret still validate
	rotated := NewSessionServiceWithRotation("brand-new-secret-after-rotation", testSecret)
	userID, err := rotated.ValidateSessionToken(token)
	if err != nil {
		t.Fatalf("ValidateSessionToken() after rotation error = %v", err)
	}
	if userID != "user-123" {
		t.Errorf("userID = %q, want user-123", userID)
	}

	// New tokens sign with the current secret
	newToken, err := rotated.GenerateSessionToken("user-456")
	if err != nil {
		t.Fatalf("GenerateSessionToken() error = %v", err)
	}
	if _, err := rotated.ValidateSessionToken(newToken); err != nil {
		t.Errorf("ValidateSessionToken() of fresh token = %v", err)
	}
}

func TestAuthCodeURL(t *testing.T) {
	g := NewGoogleOAuth("client-id", "client-secret", "http://localhost:8080/auth/google/callback")
	url := g.AuthCodeURL("state-token")

	if !strings.Contains(url, "accounts.google.com") {
		t.Errorf("consent URL does not point at Google: %q", url)
	}
	if !strings.Contains(url, "state=state-token") {
		t.Errorf("consent URL is missing the state parameter: %q", url)
	}
	if !strings.Contains(url, "client_id=client-id") {
		t.Errorf("consent URL is missing the client ID: %q", url)
	}
}
