package capacity

import (
	"errors"
	"fmt"
)

var ErrPlanLimitExceeded = errors.New("plan limit exceeded")

// PlanLimitError carries the counts the client displays.
// errors.Is(err, ErrPlanLimitExceeded) matches it.
type PlanLimitError struct {
	Resource string
	Current  int
	Limit    int
}

func (e *PlanLimitError) Error() string {
	return fmt.Sprintf("plan limit exceeded for %s: %d of %d in use", e.Resource, e.Current, e.Limit)
}

func (e *PlanLimitError) Unwrap() error { return ErrPlanLimitExceeded }

// FromCheck builds the error for a disallowed check.
func FromCheck(resource string, c Check) *PlanLimitError {
	return &PlanLimitError{Resource: resource, Current: c.Current, Limit: c.Limit}
}
