package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/arcadehq/arcade/internal/metrics"
	"github.com/arcadehq/arcade/internal/middleware"
	"github.com/arcadehq/arcade/internal/tour"
	"github.com/arcadehq/arcade/internal/validate"
)

// TourRequest represents the request body for creating or updating a tour.
// Updates are full-document writes: the submitted steps replace the stored
// steps wholesale. Steps is a pointer so a missing array can be told apart
// from an empty one.
type TourRequest struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Visibility  string       `json:"visibility"`
	Thumbnail   string       `json:"thumbnail,omitempty"`
	Steps       *[]tour.Step `json:"steps"`
}

// TourHandlers holds dependencies for tour HTTP handlers.
type TourHandlers struct {
	repo    tour.TourRepository
	metrics *metrics.Metrics
}

// NewTourHandlers creates a new TourHandlers instance. metrics may be nil.
func NewTourHandlers(repo tour.TourRepository, m *metrics.Metrics) *TourHandlers {
	return &TourHandlers{repo: repo, metrics: m}
}

// draftFromRequest validates the request and converts it to a Draft.
// Returns a non-empty message and field name on validation failure.
func draftFromRequest(req *TourRequest) (tour.Draft, string, string) {
	title, err := validate.TourTitle(req.Title)
	if err != nil {
		return tour.Draft{}, "title is required and must be at most 200 characters", "title"
	}

	description, err := validate.Description(req.Description)
	if err != nil {
		return tour.Draft{}, "description must be at most 5000 characters", "description"
	}

	if req.Steps == nil {
		return tour.Draft{}, "steps array is required", "steps"
	}

	visibility := tour.Visibility(req.Visibility)
	if req.Visibility == "" {
		visibility = tour.VisibilityPrivate
	} else if !visibility.Valid() {
		return tour.Draft{}, "visibility must be 'public' or 'private'", "visibility"
	}

	steps := make([]tour.Step, len(*req.Steps))
	copy(steps, *req.Steps)
	for i := range steps {
		if steps[i].DurationMs == 0 {
			steps[i].DurationMs = tour.DefaultStepDurationMs
		}
		if err := tour.ValidateStep(steps[i]); err != nil {
			return tour.Draft{}, err.Error(), "steps"
		}
	}

	return tour.Draft{
		Title:       title,
		Description: description,
		Visibility:  visibility,
		Thumbnail:   req.Thumbnail,
		Steps:       steps,
	}, "", ""
}

// ListTours handles GET /tours - lists the authenticated user's tours,
// newest first.
func (h *TourHandlers) ListTours(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	tours, err := h.repo.ListByOwner(r.Context(), ownerID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list tours")
		return
	}
	if tours == nil {
		tours = []*tour.Tour{}
	}

	WriteJSON(w, r.Context(), http.StatusOK, tours)
}

// CreateTour handles POST /tours - creates a new tour for the authenticated
// user.
func (h *TourHandlers) CreateTour(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())

	var req TourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	draft, errMsg, field := draftFromRequest(&req)
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteFieldError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg, field)
		return
	}

	created, err := h.repo.Create(r.Context(), ownerID, draft)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create tour")
		return
	}

	if h.metrics != nil {
		h.metrics.IncToursCreated()
	}

	WriteJSON(w, r.Context(), http.StatusCreated, created)
}

// GetTour handles GET /tours/{id} - retrieves one of the authenticated
// user's tours. Another owner's tour reports not found.
func (h *TourHandlers) GetTour(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	id := r.PathValue("id")

	t, err := h.repo.GetByIDForOwner(r.Context(), id, ownerID)
	if err != nil {
		if errors.Is(err, tour.ErrTourNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Tour not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve tour")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, t)
}

// GetSharedTour handles GET /tours/share/{token} - resolves a public tour by
// its share token without authentication, counting the view.
func (h *TourHandlers) GetSharedTour(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	t, err := h.repo.GetByShareToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, tour.ErrTourNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Tour not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve tour")
		return
	}

	if h.metrics != nil {
		h.metrics.IncSharedTourViews()
	}

	WriteJSON(w, r.Context(), http.StatusOK, t)
}

// UpdateTour handles PUT /tours/{id} - replaces the tour's mutable fields
// with the submitted draft. Identity fields (ID, share token, view count,
// creator) are preserved.
func (h *TourHandlers) UpdateTour(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	id := r.PathValue("id")

	var req TourRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	draft, errMsg, field := draftFromRequest(&req)
	if errMsg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteFieldError(w, ctx, http.StatusBadRequest, ErrCodeValidation, errMsg, field)
		return
	}

	updated, err := h.repo.Update(r.Context(), id, ownerID, draft)
	if err != nil {
		if errors.Is(err, tour.ErrTourNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Tour not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update tour")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, updated)
}

// DeleteTour handles DELETE /tours/{id} - removes a tour and invalidates its
// share token.
func (h *TourHandlers) DeleteTour(w http.ResponseWriter, r *http.Request) {
	ownerID := middleware.GetUserID(r.Context())
	id := r.PathValue("id")

	if err := h.repo.Delete(r.Context(), id, ownerID); err != nil {
		if errors.Is(err, tour.ErrTourNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Tour not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete tour")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, map[string]string{"message": "Tour deleted"})
}
