package image

import (
	"fmt"
	"net/http"

	"server/internal/domain"
)

// StatusResult is one parsed poll response from the generation backend.
type StatusResult struct {
	Status      domain.JobStatus
	Output      []string
	ErrorReason string
}

// StatusError is returned when the backend answers a poll or submit with a
// non-2xx status. Callers use Permanent to distinguish client errors (4xx,
// stop polling) from transient server-side failures.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("image backend: status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("image backend: status %d", e.Code)
}

// Permanent reports whether the error is a client error that retrying cannot
// fix.
func (e *StatusError) Permanent() bool {
	return e.Code >= http.StatusBadRequest && e.Code < http.StatusInternalServerError
}
