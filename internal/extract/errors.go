package extract

import "fmt"

// InfrastructureError reports that the page-source capability itself broke
// while a locator was being evaluated: a dead session, an unparseable
// document, a malformed pattern. It is deliberately distinct from a locator
// that simply matches nothing, which is a plain miss and never an error.
type InfrastructureError struct {
	Op      string
	Locator string
	Err     error
}

func (e *InfrastructureError) Error() string {
	return fmt.Sprintf("page source failed during %s (%s): %v", e.Op, e.Locator, e.Err)
}

func (e *InfrastructureError) Unwrap() error {
	return e.Err
}
