// Package user provides the user model and repository. Users are created on
// first successful OAuth login and are otherwise read-only from this
// service's perspective.
package user

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrUserNotFound is returned when a user does not exist.
var ErrUserNotFound = errors.New("user not found")

// User is an authenticated creator identity backed by an external OAuth
// provider profile.
type User struct {
	ID         string    `json:"id"`
	ProviderID string    `json:"providerId"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Profile is the subset of an OAuth provider profile this service persists.
type Profile struct {
	ProviderID string
	Name       string
	Email      string
	AvatarURL  string
}

// Repository defines user data operations.
type Repository interface {
	// FindOrCreate returns the user for the given provider profile,
	// creating it on first login. An existing user's stored fields are
	// left as-is.
	FindOrCreate(ctx context.Context, profile Profile) (*User, error)

	// GetByID retrieves a user by its ID.
	GetByID(ctx context.Context, id string) (*User, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu        sync.RWMutex
	users     map[string]*User  // ID -> User
	providers map[string]string // provider ID -> user ID
}

// NewInMemoryRepository creates a new in-memory user repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		users:     make(map[string]*User),
		providers: make(map[string]string),
	}
}

// FindOrCreate returns the user for the provider profile, creating it on
// first login.
func (r *InMemoryRepository) FindOrCreate(ctx context.Context, profile Profile) (*User, error) {
	if profile.ProviderID == "" {
		return nil, errors.New("provider ID is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.providers[profile.ProviderID]; ok {
		u := *r.users[id]
		return &u, nil
	}

	u := &User{
		ID:         uuid.New().String(),
		ProviderID: profile.ProviderID,
		Name:       profile.Name,
		Email:      profile.Email,
		AvatarURL:  profile.AvatarURL,
		CreatedAt:  time.Now(),
	}
	r.users[u.ID] = u
	r.providers[u.ProviderID] = u.ID

	out := *u
	return &out, nil
}

// GetByID retrieves a user by its ID.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}
