package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	"ats-backend/internal/analyses"
	"ats-backend/internal/profile"
	"ats-backend/internal/queue"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/usage"
)

// Runner is the slice of the analyses service a worker drives.
type Runner interface {
	Run(ctx context.Context, sub analyses.Submission) (analyses.Outcome, error)
	Get(ctx context.Context, userID, analysisID string) (analyses.Analysis, error)
}

// PendingSaver is implemented by runners that keep a computed analysis
// whose save failed so the write can be retried without re-scoring.
type PendingSaver interface {
	SavePending(ctx context.Context, userID, pendingID string) (analyses.Analysis, error)
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a payload that failed to decode or validate.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrProcess indicates processing failed after successful parsing. Retryable
// is false when redelivering the same message cannot succeed.
type ErrProcess struct {
	AnalysisID string
	RequestID  string
	Retryable  bool
	Err        error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process analysis"
	}
	return "process analysis: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Status is what happened to a job that did not fail.
type Status string

const (
	StatusCompleted    Status = "completed"
	StatusDegraded     Status = "degraded"
	StatusInsufficient Status = "insufficient_data"
	StatusDuplicate    Status = "duplicate"
)

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}
	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return msg, meta, ErrDecode{Meta: meta, Err: err}
	}
	return msg, meta, nil
}

// Process runs one decoded job. A job whose analysis already exists is
// acknowledged without another inference call, so redelivery is safe.
func Process(ctx context.Context, runner Runner, msg queue.Message) (Status, error) {
	if runner == nil {
		return "", errors.New("analysis service not configured")
	}
	ctx = telemetry.WithRequestID(ctx, msg.RequestID)

	if _, err := runner.Get(ctx, msg.UserID, msg.AnalysisID); err == nil {
		return StatusDuplicate, nil
	} else if !errors.Is(err, analyses.ErrNotFound) {
		return "", ErrProcess{AnalysisID: msg.AnalysisID, RequestID: msg.RequestID, Retryable: true, Err: err}
	}

	out, err := runner.Run(ctx, analyses.SubmissionFromMessage(msg))
	var perr *analyses.PersistenceError
	if errors.As(err, &perr) {
		if saver, ok := runner.(PendingSaver); ok {
			if _, saveErr := saver.SavePending(ctx, msg.UserID, perr.PendingID); saveErr == nil {
				telemetry.InfoContext(ctx, "worker.pending_saved", map[string]any{
					"analysis_id": perr.PendingID,
				})
				err = nil
			} else {
				err = saveErr
			}
		}
	}
	if err != nil {
		return "", ErrProcess{
			AnalysisID: msg.AnalysisID,
			RequestID:  msg.RequestID,
			Retryable:  retryable(err),
			Err:        err,
		}
	}
	switch out.Kind {
	case analyses.OutcomeInsufficient:
		return StatusInsufficient, nil
	case analyses.OutcomeDegraded:
		return StatusDegraded, nil
	default:
		return StatusCompleted, nil
	}
}

// HandleMessage parses and processes a raw payload.
func HandleMessage(ctx context.Context, runner Runner, body string) (Status, error) {
	msg, _, err := ParseMessage(body)
	if err != nil {
		return "", err
	}
	return Process(ctx, runner, msg)
}

// Unrecoverable reports whether the message should be dropped rather than
// left for redelivery.
func Unrecoverable(err error) bool {
	var (
		empty  ErrEmptyBody
		decode ErrDecode
		proc   ErrProcess
	)
	switch {
	case errors.As(err, &empty), errors.As(err, &decode):
		return true
	case errors.As(err, &proc):
		return !proc.Retryable
	default:
		return false
	}
}

func retryable(err error) bool {
	switch {
	case errors.Is(err, profile.ErrValidation),
		errors.Is(err, analyses.ErrNotFound),
		errors.Is(err, analyses.ErrUnauthorized),
		errors.Is(err, usage.ErrLimitReached):
		return false
	default:
		return true
	}
}
