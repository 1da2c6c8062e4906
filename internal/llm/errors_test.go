package llm_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/akarpov/weatherchat/internal/llm"
)

func TestBackendError_Unwrap(t *testing.T) {
	underlying := errors.New("connection refused")
	err := &llm.BackendError{Kind: llm.ErrorTransient, Err: underlying}

	if !errors.Is(err, underlying) {
		t.Error("expected errors.Is to find the underlying error")
	}

	wrapped := fmt.Errorf("pipeline: %w", err)
	var backendErr *llm.BackendError
	if !errors.As(wrapped, &backendErr) {
		t.Fatal("expected errors.As to find BackendError through wrapping")
	}
	if backendErr.Kind != llm.ErrorTransient {
		t.Errorf("expected transient kind, got %s", backendErr.Kind)
	}
}

func TestIsRateLimited(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "rate limited",
			err:  &llm.BackendError{Kind: llm.ErrorRateLimited, Err: errors.New("429")},
			want: true,
		},
		{
			name: "wrapped rate limited",
			err:  fmt.Errorf("handling: %w", &llm.BackendError{Kind: llm.ErrorRateLimited, Err: errors.New("429")}),
			want: true,
		},
		{
			name: "transient",
			err:  &llm.BackendError{Kind: llm.ErrorTransient, Err: errors.New("timeout")},
			want: false,
		},
		{
			name: "plain error",
			err:  errors.New("boom"),
			want: false,
		},
		{
			name: "nil",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := llm.IsRateLimited(tt.err); got != tt.want {
				t.Errorf("IsRateLimited = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorKind_String(t *testing.T) {
	if got := llm.ErrorRateLimited.String(); got != "rate_limited" {
		t.Errorf("unexpected name %q", got)
	}
	if got := llm.ErrorTransient.String(); got != "transient" {
		t.Errorf("unexpected name %q", got)
	}
	if got := llm.ErrorUnknown.String(); got != "unknown" {
		t.Errorf("unexpected name %q", got)
	}
}
