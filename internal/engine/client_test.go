package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/ShayCichocki/flotilla/internal/failure"
)

func TestClassifyCallErrorTransientKinds(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   failure.Kind
	}{
		{"throttled", 429, failure.KindRateLimit},
		{"overloaded", 529, failure.KindRateLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			apiErr := &anthropic.Error{StatusCode: tc.status}
			err := classifyCallError(context.Background(), apiErr)
			if got := failure.Classify(err); got != tc.want {
				t.Errorf("status %d classified as %s, want %s", tc.status, got, tc.want)
			}
		})
	}
}

func TestClassifyCallErrorDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel()
	<-ctx.Done()

	err := classifyCallError(ctx, context.DeadlineExceeded)
	if got := failure.Classify(err); got != failure.KindTimeout {
		t.Errorf("deadline expiry classified as %s, want %s", got, failure.KindTimeout)
	}
}

func TestClassifyCallErrorOtherStatusesUnrecoverable(t *testing.T) {
	for _, status := range []int{400, 401, 500} {
		apiErr := &anthropic.Error{StatusCode: status}
		err := classifyCallError(context.Background(), apiErr)
		if got := failure.Classify(err); got != failure.KindUnrecoverable {
			t.Errorf("status %d classified as %s, want %s", status, got, failure.KindUnrecoverable)
		}
	}
}

func TestClassifyCallErrorPlainError(t *testing.T) {
	err := classifyCallError(context.Background(), errors.New("connection reset"))
	if got := failure.Classify(err); got != failure.KindUnrecoverable {
		t.Errorf("plain error classified as %s, want %s", got, failure.KindUnrecoverable)
	}
}
