package queue

import (
	"context"
	"sync"

	"ats-backend/internal/shared/telemetry"
)

// Local runs jobs on a fixed set of goroutines inside the API process. It
// backs async analyses when no SQS queue is configured; queued jobs are lost
// on restart.
type Local struct {
	handle HandlerFunc
	jobs   chan Message
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewLocal(workers, buffer int, handle HandlerFunc) *Local {
	if workers < 1 {
		workers = 1
	}
	if buffer < 0 {
		buffer = 0
	}
	l := &Local{handle: handle, jobs: make(chan Message, buffer)}
	for i := 0; i < workers; i++ {
		l.wg.Add(1)
		go l.run()
	}
	return l
}

// Send never blocks: a full buffer returns ErrQueueFull.
func (l *Local) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return ErrQueueClosed
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case l.jobs <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops intake and waits for queued jobs to finish.
func (l *Local) Close() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	close(l.jobs)
	l.mu.Unlock()
	l.wg.Wait()
}

func (l *Local) run() {
	defer l.wg.Done()
	for msg := range l.jobs {
		ctx := telemetry.WithRequestID(context.Background(), msg.RequestID)
		if err := l.handle(ctx, msg); err != nil {
			telemetry.ErrorContext(ctx, "queue.local.job_failed", map[string]any{
				"analysis_id": msg.AnalysisID,
				"user_id":     msg.UserID,
				"error":       err.Error(),
			})
		}
	}
}

var _ Client = (*Local)(nil)
