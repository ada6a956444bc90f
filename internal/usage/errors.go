package usage

import (
	"errors"
	"fmt"
	"time"
)

var ErrLimitReached = errors.New("analysis limit reached")

// LimitError carries the exhausted window so callers can say when credits
// come back. It matches ErrLimitReached under errors.Is.
type LimitError struct {
	Usage Usage
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("%v: %d of %d used, resets %s", ErrLimitReached, e.Usage.Used, e.Usage.Limit, e.Usage.ResetsAt.Format(time.RFC3339))
}

func (e *LimitError) Unwrap() error { return ErrLimitReached }
