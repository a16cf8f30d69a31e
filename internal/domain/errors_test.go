package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKindSurvivesWrapping(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")
	tagged := NewError(KindPublishFailed, "", cause)
	wrapped := fmt.Errorf("keyword a: %w", tagged)

	if KindOf(wrapped) != KindPublishFailed {
		t.Fatalf("expected publish kind, got %q", KindOf(wrapped))
	}
	if !errors.Is(wrapped, cause) {
		t.Fatalf("expected cause to be reachable")
	}
	if tagged.Error() != "connection refused" {
		t.Fatalf("unexpected message: %s", tagged.Error())
	}
	if KindOf(cause) != "" {
		t.Fatalf("untagged errors must have no kind")
	}
}

func TestProgress(t *testing.T) {
	t.Parallel()

	cases := []struct {
		step, total, want int
	}{
		{0, 5, 0},
		{1, 5, 20},
		{5, 5, 100},
		{1, 3, 33},
		{2, 3, 67},
		{3, 0, 0},
	}
	for _, tc := range cases {
		if got := Progress(tc.step, tc.total); got != tc.want {
			t.Fatalf("Progress(%d, %d) = %d, want %d", tc.step, tc.total, got, tc.want)
		}
	}
}

func TestStateWithDoesNotMutate(t *testing.T) {
	t.Parallel()

	base := InitialState()
	next := base.With(func(s *WorkflowState) {
		s.Status = StatusRunning
		s.CurrentStep = StepSearch
	})

	if base.Status != StatusIdle || base.CurrentStep != 0 {
		t.Fatalf("base snapshot mutated: %+v", base)
	}
	if next.Status != StatusRunning || next.CurrentStep != StepSearch {
		t.Fatalf("unexpected next snapshot: %+v", next)
	}
}
