package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestTriageErrorMessage(t *testing.T) {
	err := New(ErrorTypeInput, "parse_csv", "upload.csv", fmt.Errorf("bad header"))
	want := "parse_csv failed on upload.csv: bad header"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	err = New(ErrorTypeInternal, "score_rows", "", fmt.Errorf("boom"))
	want = "score_rows failed: boom"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestErrorsIsMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
		want   bool
	}{
		{"not found matches", NotFound("get_session", "abc"), ErrNotFound, true},
		{"input matches", Input("parse_csv", "x", errors.New("x")), ErrInvalidInput, true},
		{"dependency matches", Dependency("ask_generator", "openai", errors.New("503")), ErrDependency, true},
		{"timeout matches", Timeout("ask_generator", "openai", errors.New("deadline")), ErrTimeout, true},
		{"input is not dependency", Input("parse_csv", "x", errors.New("x")), ErrDependency, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := errors.Is(tt.err, tt.target); got != tt.want {
				t.Errorf("errors.Is = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRetryable(t *testing.T) {
	if !IsRetryable(Dependency("ask_generator", "openai", errors.New("down"))) {
		t.Error("dependency errors should be retryable")
	}
	if !IsRetryable(Timeout("embed_query", "embedder", errors.New("deadline"))) {
		t.Error("timeouts should be retryable")
	}
	if IsRetryable(Input("parse_csv", "x", errors.New("bad"))) {
		t.Error("input errors should not be retryable")
	}
}

func TestIsDependencyError(t *testing.T) {
	if !IsDependencyError(Timeout("ask_generator", "openai", errors.New("deadline"))) {
		t.Error("timeout should count as a dependency failure")
	}
	if !IsDependencyError(fmt.Errorf("wrap: %w", Dependency("embed", "svc", errors.New("503")))) {
		t.Error("wrapped dependency error should be detected")
	}
	if IsDependencyError(NotFound("get_session", "abc")) {
		t.Error("not-found is not a dependency failure")
	}
}
