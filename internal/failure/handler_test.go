package failure

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubCheckpoints is a CheckpointSource with a fixed answer per task.
type stubCheckpoints struct {
	has map[string]bool
	err error
}

func (s *stubCheckpoints) HasCheckpoint(taskID string) (bool, error) {
	return s.has[taskID], s.err
}

func TestClassifyTaggedErrors(t *testing.T) {
	cases := []struct {
		err  error
		want Kind
	}{
		{Wrap(KindTimeout, errors.New("deadline")), KindTimeout},
		{Wrap(KindRateLimit, errors.New("429")), KindRateLimit},
		{Wrap(KindUnsuitableTool, errors.New("wrong tool")), KindUnsuitableTool},
		{Wrap(KindUnrecoverable, errors.New("boom")), KindUnrecoverable},
		{context.DeadlineExceeded, KindTimeout},
		{errors.New("untagged"), KindUnrecoverable},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
		}
	}
}

func TestClassifyWrappedExecError(t *testing.T) {
	inner := Wrap(KindRateLimit, errors.New("throttled"))
	outer := errors.New("execute step: " + inner.Error())
	// Plain string wrapping loses the tag.
	if got := Classify(outer); got != KindUnrecoverable {
		t.Errorf("expected unrecoverable for untagged wrap, got %s", got)
	}
	// %w wrapping keeps it.
	wrapped := errorsJoin(inner)
	if got := Classify(wrapped); got != KindRateLimit {
		t.Errorf("expected rate_limit through %%w chain, got %s", got)
	}
}

func errorsJoin(err error) error {
	return &wrapper{err}
}

type wrapper struct{ err error }

func (w *wrapper) Error() string { return "execute step: " + w.err.Error() }
func (w *wrapper) Unwrap() error { return w.err }

func TestHandleResumesWhenCheckpointed(t *testing.T) {
	h := NewHandler(&stubCheckpoints{has: map[string]bool{"t1": true}})

	action := h.Handle("t1", Wrap(KindTimeout, errors.New("deadline")), 0)
	if action != ActionResume {
		t.Errorf("expected resume, got %s", action)
	}
	// Even at the attempt ceiling, a checkpoint wins for transient errors.
	action = h.Handle("t1", Wrap(KindRateLimit, errors.New("429")), 5)
	if action != ActionResume {
		t.Errorf("expected resume at high attempt count, got %s", action)
	}
}

func TestHandleRetriesTransientWithoutCheckpoint(t *testing.T) {
	h := NewHandler(&stubCheckpoints{has: map[string]bool{}})

	for attempt := 0; attempt < 3; attempt++ {
		action := h.Handle("t1", Wrap(KindTimeout, errors.New("deadline")), attempt)
		if action != ActionRetry {
			t.Errorf("attempt %d: expected retry, got %s", attempt, action)
		}
	}
	action := h.Handle("t1", Wrap(KindTimeout, errors.New("deadline")), 3)
	if action != ActionEscalate {
		t.Errorf("expected escalate at attempt 3, got %s", action)
	}
}

func TestHandleReassignsUnsuitableTool(t *testing.T) {
	h := NewHandler(&stubCheckpoints{has: map[string]bool{"t1": true}})

	// Unsuitable tool is not transient, so the checkpoint rule does not apply.
	action := h.Handle("t1", Wrap(KindUnsuitableTool, errors.New("wrong tool")), 0)
	if action != ActionReassign {
		t.Errorf("expected reassign, got %s", action)
	}
}

func TestHandleEscalatesUnrecoverable(t *testing.T) {
	h := NewHandler(&stubCheckpoints{has: map[string]bool{"t1": true}})

	action := h.Handle("t1", errors.New("corrupted state"), 0)
	if action != ActionEscalate {
		t.Errorf("expected escalate, got %s", action)
	}
}

func TestBackoffGrowthAndCap(t *testing.T) {
	h := NewHandler(&stubCheckpoints{})

	prevMin := time.Duration(0)
	for attempt := 0; attempt < 10; attempt++ {
		d := h.Backoff(attempt)
		base := 1 * time.Second
		want := base
		for i := 0; i < attempt; i++ {
			want *= 2
			if want >= 30*time.Second {
				want = 30 * time.Second
				break
			}
		}
		if d < want {
			t.Errorf("attempt %d: delay %v below base %v", attempt, d, want)
		}
		if d > 30*time.Second {
			t.Errorf("attempt %d: delay %v exceeds cap", attempt, d)
		}
		if want < prevMin {
			t.Errorf("attempt %d: base schedule decreased", attempt)
		}
		prevMin = want
	}
}

func TestBackoffNegativeAttempt(t *testing.T) {
	h := NewHandler(&stubCheckpoints{})
	if d := h.Backoff(-1); d < 1*time.Second {
		t.Errorf("expected at least base delay, got %v", d)
	}
}
