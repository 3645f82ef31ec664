package tour

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTourNotFound is returned when a tour does not exist or is not visible to
// the caller. Owner-scoped lookups deliberately do not distinguish "absent"
// from "owned by someone else".
var ErrTourNotFound = errors.New("tour not found")

// TourRepository defines the persistence contract for tours. All owner-scoped
// operations filter jointly on (id, ownerID); a request for another owner's
// tour reports ErrTourNotFound, never a permission error.
type TourRepository interface {
	// ListByOwner returns the owner's tours ordered by creation recency,
	// newest first.
	ListByOwner(ctx context.Context, ownerID string) ([]*Tour, error)

	// GetByIDForOwner retrieves a tour by (id, ownerID).
	GetByIDForOwner(ctx context.Context, id, ownerID string) (*Tour, error)

	// GetByShareToken retrieves a public tour by its share token and
	// increments its view count as a side effect. Private tours do not
	// resolve through this path.
	GetByShareToken(ctx context.Context, token string) (*Tour, error)

	// Create persists a new tour for the owner: assigns a fresh ID and
	// share token, normalizes and reindexes steps, and stamps timestamps.
	Create(ctx context.Context, ownerID string, draft Draft) (*Tour, error)

	// Update replaces title, description, visibility, thumbnail, and steps
	// wholesale from the draft, reindexing steps. ID, share token, view
	// count, and creator are preserved.
	Update(ctx context.Context, id, ownerID string, draft Draft) (*Tour, error)

	// Delete removes a tour owned by ownerID.
	Delete(ctx context.Context, id, ownerID string) error
}

// InMemoryTourRepository is an in-memory implementation of TourRepository.
// Thread-safe via RWMutex. Used for testing and for running without a
// database.
type InMemoryTourRepository struct {
	mu     sync.RWMutex
	tours  map[string]*Tour  // ID -> Tour
	tokens map[string]string // share token -> ID
}

// NewInMemoryTourRepository creates a new in-memory tour repository.
func NewInMemoryTourRepository() *InMemoryTourRepository {
	return &InMemoryTourRepository{
		tours:  make(map[string]*Tour),
		tokens: make(map[string]string),
	}
}

// cloneTour returns a deep copy so callers cannot mutate stored state.
func cloneTour(t *Tour) *Tour {
	c := *t
	c.Steps = make([]Step, len(t.Steps))
	copy(c.Steps, t.Steps)
	return &c
}

// ListByOwner returns the owner's tours, newest first.
func (r *InMemoryTourRepository) ListByOwner(ctx context.Context, ownerID string) ([]*Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Tour
	for _, t := range r.tours {
		if t.CreatorID == ownerID {
			out = append(out, cloneTour(t))
		}
	}

	// Newest first, ID as tie-breaker for stable ordering
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})

	return out, nil
}

// GetByIDForOwner retrieves a tour by (id, ownerID).
func (r *InMemoryTourRepository) GetByIDForOwner(ctx context.Context, id, ownerID string) (*Tour, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.tours[id]
	if !ok || t.CreatorID != ownerID {
		return nil, ErrTourNotFound
	}
	return cloneTour(t), nil
}

// GetByShareToken retrieves a public tour by share token, incrementing its
// view count.
func (r *InMemoryTourRepository) GetByShareToken(ctx context.Context, token string) (*Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.tokens[token]
	if !ok {
		return nil, ErrTourNotFound
	}
	t := r.tours[id]
	if t.Visibility != VisibilityPublic {
		return nil, ErrTourNotFound
	}

	t.ViewCount++
	return cloneTour(t), nil
}

// Create persists a new tour for the owner.
func (r *InMemoryTourRepository) Create(ctx context.Context, ownerID string, draft Draft) (*Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	t := &Tour{
		ID:          uuid.New().String(),
		Title:       draft.Title,
		Description: draft.Description,
		CreatorID:   ownerID,
		Steps:       NormalizeSteps(draft.Steps),
		Visibility:  draft.Visibility,
		ShareToken:  NewShareToken(),
		Thumbnail:   draft.Thumbnail,
		ViewCount:   0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Visibility == "" {
		t.Visibility = VisibilityPrivate
	}

	r.tours[t.ID] = t
	r.tokens[t.ShareToken] = t.ID
	return cloneTour(t), nil
}

// Update replaces the mutable fields wholesale from the draft. Last writer
// wins; there is no version token, and concurrent editors of the same tour
// overwrite each other.
func (r *InMemoryTourRepository) Update(ctx context.Context, id, ownerID string, draft Draft) (*Tour, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tours[id]
	if !ok || t.CreatorID != ownerID {
		return nil, ErrTourNotFound
	}

	t.Title = draft.Title
	t.Description = draft.Description
	t.Visibility = draft.Visibility
	if t.Visibility == "" {
		t.Visibility = VisibilityPrivate
	}
	t.Thumbnail = draft.Thumbnail
	t.Steps = NormalizeSteps(draft.Steps)
	t.UpdatedAt = time.Now()

	return cloneTour(t), nil
}

// Delete removes a tour owned by ownerID.
func (r *InMemoryTourRepository) Delete(ctx context.Context, id, ownerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tours[id]
	if !ok || t.CreatorID != ownerID {
		return ErrTourNotFound
	}

	delete(r.tokens, t.ShareToken)
	delete(r.tours, id)
	return nil
}
