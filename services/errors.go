package services

import (
	"errors"
	"fmt"

	"github.com/camden-git/imagestudio/repository"
	"github.com/camden-git/imagestudio/workers"
)

var (
	// ErrNotFound matches repository.ErrNotFound.
	ErrNotFound = repository.ErrNotFound
	// ErrBusy is returned when the transform queue has no free slot.
	ErrBusy = workers.ErrQueueFull
	// ErrInvalidInput marks rejected uploads, URLs and prompts.
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when the caller does not own the target.
	ErrForbidden = errors.New("forbidden")
)

// UpstreamError is a failure of an external dependency (AI service or a
// remote URL) while serving a request.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func invalidInput(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
