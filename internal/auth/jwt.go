// Package auth provides session token management and the Google OAuth login
// flow. The OAuth handshake itself is delegated to the provider; this package
// only exchanges the authorization code, fetches the profile, and issues the
// server's own session tokens.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionTokenExpiry is how long an issued session token remains valid.
const SessionTokenExpiry = 7 * 24 * time.Hour

// DefaultLeeway for token validation.
const DefaultLeeway = 30 * time.Second

// tokenTypeSession is the typ claim value for session tokens.
const tokenTypeSession = "session"

// Session token errors.
var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token has expired")
	ErrEmptyUserID  = errors.New("userID cannot be empty")
)

// SessionClaims are the JWT claims carried by a session token.
type SessionClaims struct {
	jwt.RegisteredClaims
	Type string `json:"typ"`
}

// SessionService issues and validates session tokens. Tokens are signed with
// currentSecret; during secret rotation they can still be validated with
// previousSecret, so live sessions survive a rotation.
type SessionService struct {
	currentSecret  []byte
	previousSecret []byte
	leeway         time.Duration
}

// NewSessionService creates a SessionService with a single signing secret.
func NewSessionService(secret string) *SessionService {
	return &SessionService{
		currentSecret: []byte(secret),
		leeway:        DefaultLeeway,
	}
}

// NewSessionServiceWithRotation creates a SessionService that signs with
// currentSecret and additionally accepts tokens signed with previousSecret.
// Pass an empty previousSecret when no rotation is in progress.
func NewSessionServiceWithRotation(currentSecret, previousSecret string) *SessionService {
	svc := &SessionService{
		currentSecret: []byte(currentSecret),
		leeway:        DefaultLeeway,
	}
	if previousSecret != "" {
		svc.previousSecret = []byte(previousSecret)
	}
	return svc
}

// GenerateSessionToken creates a new session token for the user.
func (s *SessionService) GenerateSessionToken(userID string) (string, error) {
	if userID == "" {
		return "", ErrEmptyUserID
	}

	now := time.Now()
	claims := SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTokenExpiry)),
		},
		Type: tokenTypeSession,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.currentSecret)
}

// ValidateSessionToken parses and validates a session token, returning the
// user ID it was issued for. Tries currentSecret first, then previousSecret
// if one is configured.
func (s *SessionService) ValidateSessionToken(tokenString string) (string, error) {
	claims, err := s.parseWith(tokenString, s.currentSecret)
	if err == nil {
		return claims.Subject, nil
	}

	if s.previousSecret != nil {
		if claims, prevErr := s.parseWith(tokenString, s.previousSecret); prevErr == nil {
			return claims.Subject, nil
		}
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return "", ErrExpiredToken
	}
	return "", ErrInvalidToken
}

func (s *SessionService) parseWith(tokenString string, secret []byte) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithLeeway(s.leeway))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Type != tokenTypeSession {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
