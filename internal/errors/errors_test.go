package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil error", err: nil, want: ""},
		{name: "plain error", err: stderrors.New("boom"), want: "Error: boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Format(tt.err); got != tt.want {
				t.Errorf("Format() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSyncErrorMatchesSentinel(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("toggle: %w", &SyncError{Op: "toggle_completion", HabitID: "h1", Err: cause})

	if !Is(err, ErrSyncFailed) {
		t.Error("expected SyncError to match ErrSyncFailed")
	}
	if !Is(err, cause) {
		t.Error("expected SyncError to unwrap to its cause")
	}
	if Is(err, ErrValidation) {
		t.Error("SyncError must not match ErrValidation")
	}

	var se *SyncError
	if !As(err, &se) || se.HabitID != "h1" {
		t.Errorf("expected to extract SyncError with habit id, got %+v", se)
	}
}

func TestValidationf(t *testing.T) {
	err := Validationf("date %s outside window", "2024-01-20")
	if !Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if err.Error() != "validation error: date 2024-01-20 outside window" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
