package interfaces

import "fmt"

// DeletionBlockedError is returned when a record cannot be deleted because
// other records still reference it, e.g. a car with payment history.
type DeletionBlockedError struct {
	Resource   string
	References map[string]int64
}

func (e *DeletionBlockedError) Error() string {
	return fmt.Sprintf("%s deletion blocked", e.Resource)
}
