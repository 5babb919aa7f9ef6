package job

import (
	"errors"
	"fmt"
)

var (
	ErrNotTracked       = errors.New("job with given pid not found")
	ErrNotContinuable   = errors.New("job with given pid cannot be continued")
	ErrCapacityExceeded = errors.New("background job table is full")
	ErrForegroundBusy   = errors.New("a foreground job already exists")
	ErrWaitFailed       = errors.New("wait failed")
	ErrInvalidJob       = errors.New("invalid job")
)

// InvalidTransitionError is returned when a status update would break the
// allowed status transitions of a stored job.
type InvalidTransitionError struct {
	PID  int
	From Status
	To   Status
}

func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("job %d: cannot go from %s to %s", e.PID, e.From, e.To)
}
