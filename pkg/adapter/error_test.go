package adapter

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestIsTransient(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"canceled", context.Canceled, false},
		{"rate limited", &GenerationError{Status: 429}, true},
		{"server error", &GenerationError{Status: 503}, true},
		{"bad request", &GenerationError{Status: 400}, false},
		{"temporary", &GenerationError{Temporary: true}, true},
		{"wrapped", fmt.Errorf("call: %w", &GenerationError{Status: 500}), true},
		{"plain", errors.New("boom"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsTransient(tc.err); got != tc.want {
				t.Fatalf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestNewGenerationErrorKeepsExisting(t *testing.T) {
	inner := &GenerationError{Provider: "openai", Status: 500, Err: errors.New("down")}
	err := NewGenerationError("mock", "mock-1", 0, fmt.Errorf("wrapped: %w", inner))

	var genErr *GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("expected GenerationError, got %T", err)
	}
	if genErr.Provider != "openai" || genErr.Status != 500 {
		t.Fatalf("expected original error to be kept, got %+v", genErr)
	}
}

func TestGenerationErrorMessage(t *testing.T) {
	err := &GenerationError{Provider: "deepseek", Err: errors.New("no choices")}
	if got := err.Error(); got != "deepseek generation error: no choices" {
		t.Fatalf("unexpected message: %q", got)
	}
	if !errors.Is(err, err.Err) {
		t.Fatalf("expected Unwrap to expose cause")
	}
}
