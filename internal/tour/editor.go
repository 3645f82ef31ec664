package tour

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Editor errors.
var (
	ErrStepNotFound = errors.New("step not found in draft")
)

// StepPatch is the explicit partial-update type for a step in the editor.
// Only the fields callers may change are enumerated; media kind and content
// reference are fixed once a step exists, and order is owned by the editor's
// reindexing.
type StepPatch struct {
	Annotation *Annotation `json:"annotation,omitempty"`
	Transition *Transition `json:"transition,omitempty"`
	DurationMs *int        `json:"durationMs,omitempty"`
}

// Editor is the in-memory mutation surface over a tour draft. It is not
// safe for concurrent use; the owning caller drives it from one event loop.
// Every structural mutation fully reindexes step order, so order values are
// always a contiguous 0-based permutation.
type Editor struct {
	draft Draft
}

// NewEditor creates an editor over a copy of the given draft. Steps are
// normalized (IDs assigned, transitions and durations defaulted, order
// reindexed) so later identity-based operations are well defined.
func NewEditor(draft Draft) *Editor {
	draft.Steps = NormalizeSteps(draft.Steps)
	return &Editor{draft: draft}
}

// Draft returns a copy of the current draft, complete and ready for
// submission. Repository updates are full-document replaces, so this is the
// only shape the editor ever hands out.
func (e *Editor) Draft() Draft {
	d := e.draft
	d.Steps = make([]Step, len(e.draft.Steps))
	copy(d.Steps, e.draft.Steps)
	return d
}

// SetTitle replaces the draft title.
func (e *Editor) SetTitle(title string) { e.draft.Title = title }

// SetDescription replaces the draft description.
func (e *Editor) SetDescription(desc string) { e.draft.Description = desc }

// SetVisibility replaces the draft visibility.
func (e *Editor) SetVisibility(v Visibility) { e.draft.Visibility = v }

// AddStep appends a step at the end of the draft with order = len(steps).
// A step without an ID gets a fresh one; transition and duration are
// defaulted like normalization does.
func (e *Editor) AddStep(step Step) Step {
	if step.ID == "" {
		step.ID = uuid.New().String()
	}
	step.Transition = ParseTransition(string(step.Transition))
	if step.DurationMs == 0 {
		step.DurationMs = DefaultStepDurationMs
	}
	step.Order = len(e.draft.Steps)
	e.draft.Steps = append(e.draft.Steps, step)
	return step
}

// ReorderStep removes the step at fromIndex and reinserts it at toIndex,
// then reassigns every step's order to its new positional index. The full
// reindex (rather than a delta patch) is what keeps order values free of
// collisions and gaps.
func (e *Editor) ReorderStep(fromIndex, toIndex int) error {
	n := len(e.draft.Steps)
	if fromIndex < 0 || fromIndex >= n {
		return fmt.Errorf("reorder: from index %d out of range [0,%d)", fromIndex, n)
	}
	if toIndex < 0 || toIndex >= n {
		return fmt.Errorf("reorder: to index %d out of range [0,%d)", toIndex, n)
	}
	if fromIndex == toIndex {
		return nil
	}

	moved := e.draft.Steps[fromIndex]
	rest := append(e.draft.Steps[:fromIndex], e.draft.Steps[fromIndex+1:]...)

	steps := make([]Step, 0, n)
	steps = append(steps, rest[:toIndex]...)
	steps = append(steps, moved)
	steps = append(steps, rest[toIndex:]...)

	ReindexSteps(steps)
	e.draft.Steps = steps
	return nil
}

// UpdateStep merges a patch onto the step with the given ID. Identity is by
// ID, not index: a drag-reorder may have shifted positions since the caller
// captured the step.
func (e *Editor) UpdateStep(stepID string, patch StepPatch) error {
	for i := range e.draft.Steps {
		if e.draft.Steps[i].ID != stepID {
			continue
		}
		if patch.Annotation != nil {
			e.draft.Steps[i].Annotation = *patch.Annotation
		}
		if patch.Transition != nil {
			e.draft.Steps[i].Transition = ParseTransition(string(*patch.Transition))
		}
		if patch.DurationMs != nil {
			e.draft.Steps[i].DurationMs = *patch.DurationMs
		}
		return nil
	}
	return ErrStepNotFound
}

// DeleteStep removes the step with the given ID and reindexes the remainder.
func (e *Editor) DeleteStep(stepID string) error {
	for i := range e.draft.Steps {
		if e.draft.Steps[i].ID != stepID {
			continue
		}
		e.draft.Steps = append(e.draft.Steps[:i], e.draft.Steps[i+1:]...)
		ReindexSteps(e.draft.Steps)
		return nil
	}
	return ErrStepNotFound
}

// ValidateForSave checks the draft before submission. Title is checked
// first, then steps; a draft failing both reports the title error.
func (e *Editor) ValidateForSave() error {
	if strings.TrimSpace(e.draft.Title) == "" {
		return &ValidationError{Field: "title", Reason: ReasonMissingTitle}
	}
	if len(e.draft.Steps) == 0 {
		return &ValidationError{Field: "steps", Reason: ReasonNoSteps}
	}
	return nil
}
