package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRunning is returned when work is submitted while the runner is
	// not in the running state.
	ErrNotRunning = errors.New("runner: not running")

	// ErrSubmissionTimeout is returned by SubmitAndWait when the caller's
	// wait elapses. The work item keeps running; it is not cancelled.
	ErrSubmissionTimeout = errors.New("runner: submission wait timed out")

	// ErrShutdownTimeout is returned by Stop when in-flight work ignores
	// cancellation beyond the grace period.
	ErrShutdownTimeout = errors.New("runner: shutdown grace period exceeded")
)

// WrongContextError reports a handle being closed from a context other than
// its owner. It is never recovered silently: it marks the exact cross-context
// misuse the registry exists to prevent.
type WrongContextError struct {
	Caller ContextID
	Owner  ContextID
}

func (e *WrongContextError) Error() string {
	return fmt.Sprintf("runner: handle owned by context %s closed from context %s", e.Owner, e.Caller)
}

// SubmissionError wraps an error raised by a work item and delivered to a
// blocking caller.
type SubmissionError struct {
	Err error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("runner: work item failed: %v", e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}
