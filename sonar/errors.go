package sonar

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks input or configuration errors. They are never retried.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrOperation marks failures caused by remote state: bad responses, failed tasks, timeouts.
	ErrOperation = errors.New("operation failed")
)

var (
	ErrMissingField      = fmt.Errorf("%w: missing field", ErrOperation)
	ErrUnknownTaskStatus = fmt.Errorf("%w: unknown task status", ErrOperation)
	ErrTaskFailed        = fmt.Errorf("%w: task failed", ErrOperation)
	ErrTaskCanceled      = fmt.Errorf("%w: task canceled", ErrOperation)
	ErrPollTimeout       = fmt.Errorf("%w: timed out waiting for task", ErrOperation)
	ErrMissingAnalysisID = fmt.Errorf("%w: task has no analysis id", ErrOperation)
)

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request to %s failed: status=%d body=%s", e.URL, e.StatusCode, e.Body)
}

func (e *APIError) Is(target error) bool {
	return target == ErrOperation
}

// requireField returns v, or an ErrMissingField naming the key when v is nil.
func requireField[T any](v *T, name string) (*T, error) {
	if v == nil {
		return nil, fmt.Errorf("%w '%s'", ErrMissingField, name)
	}
	return v, nil
}

// valueOr dereferences v, falling back to def when the field was absent.
func valueOr[T any](v *T, def T) T {
	if v == nil {
		return def
	}
	return *v
}
