package booking

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned when a booking id does not exist.
var ErrNotFound = errors.New("booking: not found")

// ValidationError reports bad input to a transition. Never retried.
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Detail)
}

// InvalidTransitionError reports a target status unreachable from the
// expected status per the lifecycle graph.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("booking: no transition from %s to %s", e.From, e.To)
}

// ConflictError reports a stale expected status: another actor already
// transitioned the booking. Actual carries the authoritative stored status
// so the caller can refresh and re-decide.
type ConflictError struct {
	BookingID string
	Expected  Status
	Actual    Status
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking %s: expected status %s but store holds %s", e.BookingID, e.Expected, e.Actual)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}
