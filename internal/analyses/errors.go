package analyses

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("user identity required")
	// ErrPendingNotFound is returned when a pending save expired or never existed.
	ErrPendingNotFound = errors.New("pending analysis not found")
)

// PersistenceError reports a computed analysis that could not be saved. The
// result is held under PendingID and can be saved again without re-running
// the analysis.
type PersistenceError struct {
	PendingID string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist analysis %s: %v", e.PendingID, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
