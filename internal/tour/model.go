// Package tour provides the models, repository, and editing/playback state
// machines for product-demo tours: ordered sequences of media steps with
// annotations and transitions, owned by a creator and shareable by token.
package tour

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StepKind identifies the media type of a step.
type StepKind string

// Supported step kinds.
const (
	StepKindImage StepKind = "image"
	StepKindVideo StepKind = "video"
)

// Valid reports whether the step kind is a known value.
func (k StepKind) Valid() bool {
	return k == StepKindImage || k == StepKindVideo
}

// Transition identifies the visual transition applied when a step enters.
type Transition string

// Supported transitions.
const (
	TransitionFade  Transition = "fade"
	TransitionSlide Transition = "slide"
	TransitionZoom  Transition = "zoom"
)

// ParseTransition maps a raw string to a Transition, defaulting to fade for
// any unrecognized value.
func ParseTransition(s string) Transition {
	switch Transition(s) {
	case TransitionSlide:
		return TransitionSlide
	case TransitionZoom:
		return TransitionZoom
	default:
		return TransitionFade
	}
}

// Visibility controls who can read a tour.
type Visibility string

// Supported visibility modes.
const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// Valid reports whether the visibility is a known value.
func (v Visibility) Valid() bool {
	return v == VisibilityPublic || v == VisibilityPrivate
}

// Step duration bounds in milliseconds.
const (
	MinStepDurationMs     = 1000
	MaxStepDurationMs     = 10000
	DefaultStepDurationMs = 3000
)

// Position is an annotation anchor expressed in percent of the media frame.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Annotation is a text overlay positioned on a step's media.
type Annotation struct {
	Text     string   `json:"text"`
	Position Position `json:"position"`
}

// Step is one unit of a tour: a media reference plus presentation metadata.
type Step struct {
	ID         string     `json:"id"`
	Kind       StepKind   `json:"kind"`
	ContentRef string     `json:"contentRef"`
	Annotation Annotation `json:"annotation"`
	Transition Transition `json:"transition"`
	DurationMs int        `json:"durationMs"`
	Order      int        `json:"order"`
}

// Tour is a saved, ordered sequence of steps with sharing metadata.
type Tour struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	CreatorID   string     `json:"creatorId"`
	Steps       []Step     `json:"steps"`
	Visibility  Visibility `json:"visibility"`
	ShareToken  string     `json:"shareToken"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	ViewCount   int        `json:"viewCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Draft is the mutable, not-yet-persisted shape of a tour. The repository
// treats create and update as full-document writes of a Draft; there is no
// merge-patch path, so editors must always submit the complete draft.
type Draft struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Visibility  Visibility `json:"visibility"`
	Thumbnail   string     `json:"thumbnail,omitempty"`
	Steps       []Step     `json:"steps"`
}

// Validation errors for steps and drafts.
var (
	ErrInvalidStepKind = errors.New("invalid step kind")
	ErrMissingContent  = errors.New("step content reference is required")
	ErrInvalidDuration = fmt.Errorf("step duration must be between %d and %d ms", MinStepDurationMs, MaxStepDurationMs)
)

// ValidationError reports a draft field that failed validation.
type ValidationError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Validation failure reasons.
const (
	ReasonMissingTitle = "missing_title"
	ReasonNoSteps      = "no_steps"
)

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s (%s)", e.Field, e.Reason)
}

// ValidateStep checks a single step's fields against the model constraints.
// Order is not checked here; it is always reassigned by normalization.
func ValidateStep(s Step) error {
	if !s.Kind.Valid() {
		return ErrInvalidStepKind
	}
	if strings.TrimSpace(s.ContentRef) == "" {
		return ErrMissingContent
	}
	if s.DurationMs < MinStepDurationMs || s.DurationMs > MaxStepDurationMs {
		return ErrInvalidDuration
	}
	return nil
}

// NormalizeSteps prepares a step slice for persistence: steps without an ID
// get a fresh one, unrecognized transitions collapse to fade, a zero duration
// gets the default, and Order is reassigned to the positional index. The
// input slice is not modified.
func NormalizeSteps(steps []Step) []Step {
	out := make([]Step, len(steps))
	copy(out, steps)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.New().String()
		}
		out[i].Transition = ParseTransition(string(out[i].Transition))
		if out[i].DurationMs == 0 {
			out[i].DurationMs = DefaultStepDurationMs
		}
	}
	ReindexSteps(out)
	return out
}

// ReindexSteps reassigns every step's Order to its positional index. Called
// after every structural mutation so order values stay a contiguous 0-based
// permutation.
func ReindexSteps(steps []Step) {
	for i := range steps {
		steps[i].Order = i
	}
}

// NewShareToken returns a fresh globally unique opaque share token.
func NewShareToken() string {
	return uuid.New().String()
}
