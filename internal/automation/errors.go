package automation

import (
	"fmt"
)

// ServiceError is a failed call to the tracker.
type ServiceError struct {
	// Op names the tracker operation, e.g. "list issues" or "add label".
	Op string
	// Number is the issue the call targeted, or 0 for repository-wide calls.
	Number int
	Err    error
}

func (e *ServiceError) Error() string {
	if e.Number > 0 {
		return fmt.Sprintf("%s for issue #%d: %v", e.Op, e.Number, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err as a *ServiceError. It returns nil when err is nil.
func NewServiceError(op string, number int, err error) error {
	if err == nil {
		return nil
	}
	return &ServiceError{Op: op, Number: number, Err: err}
}

// PartialClaimError means the handoff comment was posted but the doing label was not
// applied. The issue stays eligible until an operator adds the label by hand.
type PartialClaimError struct {
	Number int
	Body   string
	Label  string
	Err    error
}

func (e *PartialClaimError) Error() string {
	return fmt.Sprintf("issue #%d: comment posted but label '%s' not applied: %v", e.Number, e.Label, e.Err)
}

func (e *PartialClaimError) Unwrap() error {
	return e.Err
}
