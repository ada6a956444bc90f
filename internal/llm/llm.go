package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Request is a single inference call. System carries the fixed scoring
// instructions and User the per-profile prompt.
type Request struct {
	System        string
	User          string
	PromptVersion string
	// JSONOutput asks the provider for a JSON object response when it
	// supports that mode.
	JSONOutput bool
	// Fields is a structured copy of the prompt inputs for providers that
	// score locally. It is not sent over the wire and not hashed.
	Fields map[string]string
}

// Hash returns a stable sha256 of the request content.
func (r Request) Hash() string {
	var b strings.Builder
	b.WriteString("system: ")
	b.WriteString(r.System)
	b.WriteString("\n\nuser: ")
	b.WriteString(r.User)
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

// Client abstracts an inference provider. Implementations make exactly one
// attempt per call and return the raw text the model produced.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

var (
	// ErrCircuitOpen is returned when recent failures have tripped the breaker.
	ErrCircuitOpen = errors.New("inference circuit open")
	// ErrEmptyResponse is returned when the provider answered without content.
	ErrEmptyResponse = errors.New("inference response empty")
	// ErrNotConfigured marks a pipeline run with no provider wired.
	ErrNotConfigured = errors.New("inference provider not configured")
)

// StatusError reports a non-2xx provider response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, body)
}
