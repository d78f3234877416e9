package job

import (
	"fmt"

	"github.com/google/uuid"
)

// ConflictError is returned when a job is requested while another is still
// active. It carries the active job's id so the caller can attach to it.
type ConflictError struct {
	ExistingID uuid.UUID
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("a job is already active: %s", e.ExistingID)
}

// NotFoundError is returned for an unknown job id.
type NotFoundError struct {
	ID uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("job not found: %s", e.ID)
}

// NotRunningError is returned when cancelling a job that is already terminal.
type NotRunningError struct {
	ID     uuid.UUID
	Status Status
}

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("job %s is not running (status %s)", e.ID, e.Status)
}
