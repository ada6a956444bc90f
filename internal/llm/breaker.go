package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"ats-backend/internal/shared/telemetry"
)

// BreakerSettings configures the circuit breaker around a provider.
type BreakerSettings struct {
	Name string
	// MaxRequests is the number of trial calls allowed while half-open.
	MaxRequests uint32
	// Interval clears the closed-state counts; zero keeps them until a trip.
	Interval time.Duration
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker. Zero disables the breaker.
	ConsecutiveFailures uint32
}

// BreakerClient guards a Client with a circuit breaker. A nil breaker passes
// calls straight through.
type BreakerClient struct {
	next Client
	cb   *gobreaker.CircuitBreaker[string]
}

// WithBreaker wraps next. When s.ConsecutiveFailures is zero the returned
// client has no breaker.
func WithBreaker(next Client, s BreakerSettings) *BreakerClient {
	if s.ConsecutiveFailures == 0 {
		return &BreakerClient{next: next}
	}
	name := s.Name
	if name == "" {
		name = "inference"
	}
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Interval:    s.Interval,
		Timeout:     s.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.ConsecutiveFailures
		},
		// A caller giving up is not a provider failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			telemetry.Info("llm.breaker_state", map[string]any{
				"name": name,
				"from": from.String(),
				"to":   to.String(),
			})
		},
	}
	return &BreakerClient{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Complete runs the call through the breaker.
func (b *BreakerClient) Complete(ctx context.Context, req Request) (string, error) {
	if b.cb == nil {
		return b.next.Complete(ctx, req)
	}
	out, err := b.cb.Execute(func() (string, error) {
		return b.next.Complete(ctx, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrCircuitOpen, err)
	}
	return out, err
}

// State reports the breaker state, or "disabled".
func (b *BreakerClient) State() string {
	if b == nil || b.cb == nil {
		return "disabled"
	}
	return b.cb.State().String()
}

var _ Client = (*BreakerClient)(nil)
