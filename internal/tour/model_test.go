package tour

import "testing"

func TestNormalizeSteps_AssignsIDsAndDefaults(t *testing.T) {
	steps := []Step{
		{Kind: StepKindImage, ContentRef: "/uploads/a.png"},
		{ID: "keep-me", Kind: StepKindVideo, ContentRef: "/uploads/b.mp4", Transition: "wipe", DurationMs: 5000},
	}

	out := NormalizeSteps(steps)

	if out[0].ID == "" {
		t.Error("expected a generated ID for the first step")
	}
	if out[1].ID != "keep-me" {
		t.Errorf("expected existing ID to be preserved, got %q", out[1].ID)
	}
	if out[0].DurationMs != DefaultStepDurationMs {
		t.Errorf("expected default duration %d, got %d", DefaultStepDurationMs, out[0].DurationMs)
	}
	if out[1].Transition != TransitionFade {
		t.Errorf("expected unrecognized transition to collapse to fade, got %q", out[1].Transition)
	}

	// Input must not be modified
	if steps[0].ID != "" {
		t.Error("NormalizeSteps modified its input")
	}
}

func TestNormalizeSteps_ReindexesRegardlessOfInputOrder(t *testing.T) {
	steps := []Step{
		{ID: "a", Kind: StepKindImage, ContentRef: "x", Order: 7},
		{ID: "b", Kind: StepKindImage, ContentRef: "y", Order: 7},
		{ID: "c", Kind: StepKindImage, ContentRef: "z", Order: -3},
	}

	out := NormalizeSteps(steps)

	for i, s := range out {
		if s.Order != i {
			t.Errorf("step %d: expected order %d, got %d", i, i, s.Order)
		}
	}
}

func TestParseTransition(t *testing.T) {
	tests := []struct {
		in   string
		want Transition
	}{
		{"fade", TransitionFade},
		{"slide", TransitionSlide},
		{"zoom", TransitionZoom},
		{"", TransitionFade},
		{"spin", TransitionFade},
	}

	for _, tt := range tests {
		if got := ParseTransition(tt.in); got != tt.want {
			t.Errorf("ParseTransition(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateStep(t *testing.T) {
	tests := []struct {
		name    string
		step    Step
		wantErr error
	}{
		{
			name: "valid image step",
			step: Step{Kind: StepKindImage, ContentRef: "/uploads/a.png", DurationMs: 3000},
		},
		{
			name:    "unknown kind",
			step:    Step{Kind: "gif", ContentRef: "/uploads/a.gif", DurationMs: 3000},
			wantErr: ErrInvalidStepKind,
		},
		{
			name:    "missing content",
			step:    Step{Kind: StepKindImage, ContentRef: "  ", DurationMs: 3000},
			wantErr: ErrMissingContent,
		},
		{
			name:    "duration too short",
			step:    Step{Kind: StepKindImage, ContentRef: "x", DurationMs: 500},
			wantErr: ErrInvalidDuration,
		},
		{
			name:    "duration too long",
			step:    Step{Kind: StepKindImage, ContentRef: "x", DurationMs: 20000},
			wantErr: ErrInvalidDuration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStep(tt.step)
			if err != tt.wantErr {
				t.Errorf("ValidateStep() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
