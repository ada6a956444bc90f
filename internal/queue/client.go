package queue

import (
	"context"
	"errors"
)

var (
	ErrQueueFull   = errors.New("queue full")
	ErrQueueClosed = errors.New("queue closed")
)

// Client hands analysis jobs to whatever runs them.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// HandlerFunc processes one job. Returned errors are logged by the caller
// that owns redelivery.
type HandlerFunc func(ctx context.Context, msg Message) error
