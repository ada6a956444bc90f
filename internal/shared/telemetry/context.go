package telemetry

import "context"

type requestIDKey struct{}

// WithRequestID tags ctx so context-aware log lines carry request_id.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Detach keeps the values of ctx (request id, span) but drops its deadline
// and cancellation, for work that outlives the request.
func Detach(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
