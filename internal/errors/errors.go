package errors

import (
	stderrors "errors"
	"fmt"
	"os"

	"github.com/FahimKhamsa/madhabits/internal/logger"
)

var (
	// ErrValidation marks input rejected before any state was touched.
	ErrValidation = stderrors.New("validation error")
	// ErrAuthRequired is returned by mutations attempted without a signed-in user.
	ErrAuthRequired = stderrors.New("authentication required")
	// ErrSyncFailed is returned when the remote store rejected a mutation and
	// the local state was rolled back.
	ErrSyncFailed = stderrors.New("sync failed")
	// ErrNotFound is returned when a habit or record does not exist.
	ErrNotFound = stderrors.New("not found")
	// ErrBackendUnavailable is returned by the remote store when no backend is
	// configured or reachable.
	ErrBackendUnavailable = stderrors.New("remote backend unavailable")
)

// Validationf returns an error wrapping ErrValidation.
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// NotFoundf returns an error wrapping ErrNotFound.
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

// SyncError reports a remote failure for a mutation that was rolled back.
type SyncError struct {
	Op      string
	HabitID string
	Err     error
}

func (e *SyncError) Error() string {
	if e.HabitID == "" {
		return fmt.Sprintf("sync failed: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("sync failed: %s %s: %v", e.Op, e.HabitID, e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrSyncFailed) match any SyncError.
func (e *SyncError) Is(target error) bool {
	return target == ErrSyncFailed
}

// Is re-exports errors.Is so callers importing this package under an alias
// need not import the standard package as well.
func Is(err, target error) bool {
	return stderrors.Is(err, target)
}

// As re-exports errors.As.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
