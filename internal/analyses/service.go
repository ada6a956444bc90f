package analyses

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"ats-backend/internal/completeness"
	"ats-backend/internal/documents"
	"ats-backend/internal/llm"
	"ats-backend/internal/profile"
	"ats-backend/internal/scoring"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/telemetry"
	"ats-backend/internal/usage"
)

const (
	MaxTargetRoleLength     = 200
	MaxJobDescriptionLength = 20000

	defaultInferenceTimeout = 60 * time.Second
)

// DocumentSource resolves a stored document to its extracted text.
type DocumentSource interface {
	Text(ctx context.Context, userID, documentID string) (string, error)
}

// Service runs the scoring pipeline and owns analysis history.
type Service struct {
	Repo          Repo
	Usage         *usage.Service
	Documents     DocumentSource
	LLM           llm.Client
	Provider      string
	Model         string
	PromptVersion string
	// Timeout bounds the single inference call.
	Timeout    time.Duration
	PendingTTL time.Duration
	Now        func() time.Time

	pendingOnce sync.Once
	pending     *pendingStore
}

// Run normalizes the submission, evaluates completeness and, unless the
// input is insufficient, scores it with exactly one inference call and
// appends the result to the user's history.
//
// A *PersistenceError is returned together with the computed outcome when
// the save fails; the analysis can then be saved with SavePending. A rerun
// of a submission whose id still has a pending save only retries that save.
func (s *Service) Run(ctx context.Context, sub Submission) (Outcome, error) {
	if strings.TrimSpace(sub.UserID) == "" {
		return Outcome{}, ErrUnauthorized
	}
	if err := validateContext(sub); err != nil {
		return Outcome{}, err
	}
	if id := strings.TrimSpace(sub.ID); id != "" {
		if analysis, ok := s.pendingSaves().Get(sub.UserID, id); ok {
			return s.resumePending(ctx, sub, analysis)
		}
	}

	start := s.now()
	ctx, span := telemetry.Tracer().Start(ctx, "analysis.run")
	defer span.End()
	metrics.IncAnalysisStarted()

	in, err := s.normalize(ctx, sub)
	if err != nil {
		span.RecordError(err)
		return Outcome{}, err
	}

	report := completeness.Evaluate(in)
	metrics.ObserveCoverage(report.Coverage)
	span.SetAttributes(
		attribute.String("analysis.source", string(in.Source())),
		attribute.String("analysis.tier", string(report.Tier)),
		attribute.Float64("analysis.coverage", report.DisplayCoverage()),
	)

	if report.Tier == completeness.TierInsufficient {
		rem := completeness.BuildRemediation(report)
		out := Outcome{Kind: OutcomeInsufficient, Completeness: report, Remediation: &rem}
		s.logOutcome(ctx, sub, out, start)
		return out, nil
	}

	if s.Usage != nil {
		if _, err := s.Usage.Check(ctx, sub.UserID); err != nil {
			if errors.Is(err, usage.ErrLimitReached) {
				return Outcome{}, err
			}
			return Outcome{}, fmt.Errorf("check usage: %w", err)
		}
	}

	req := scoring.BuildRequest(in, report, scoring.RequestContext{
		TargetRole:     sub.TargetRole,
		JobDescription: sub.JobDescription,
		PromptVersion:  s.promptVersion(),
	})

	result, err := s.score(ctx, sub.UserID, req, report)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "inference canceled")
		return Outcome{}, err
	}

	analysis := Analysis{
		ID:             newAnalysisID(sub),
		UserID:         sub.UserID,
		DocumentID:     sub.DocumentID,
		Source:         in.Source(),
		TargetRole:     strings.TrimSpace(sub.TargetRole),
		JobDescription: strings.TrimSpace(sub.JobDescription),
		PromptVersion:  req.PromptVersion,
		PromptHash:     req.Hash(),
		Provider:       normalizeProvider(s.Provider),
		Model:          s.Model,
		Completeness:   report,
		Result:         result,
		CreatedAt:      s.now().UTC(),
	}

	// The inference cost is spent at this point, so a scored result uses a
	// credit even if the save below fails.
	if s.Usage != nil && !result.Degraded {
		if _, err := s.Usage.Consume(ctx, sub.UserID, 1); err != nil {
			telemetry.ErrorContext(ctx, "analysis.usage_consume_failed", map[string]any{
				"user_id":     sub.UserID,
				"analysis_id": analysis.ID,
				"error":       err.Error(),
			})
		}
	}

	kind := OutcomeAnalyzed
	if result.Degraded {
		kind = OutcomeDegraded
	}
	out := Outcome{Kind: kind, Completeness: report, Analysis: &analysis}

	if err := s.Repo.Create(ctx, analysis); err != nil {
		s.pendingSaves().Put(analysis)
		metrics.IncPersistFailure()
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist failed")
		telemetry.ErrorContext(ctx, "analysis.persist_failed", map[string]any{
			"user_id":     sub.UserID,
			"analysis_id": analysis.ID,
			"error":       sanitizeError(err),
		})
		s.logOutcome(ctx, sub, out, start)
		return out, &PersistenceError{PendingID: analysis.ID, Err: err}
	}

	s.logOutcome(ctx, sub, out, start)
	return out, nil
}

// score makes the single inference call and validates the response. Any
// provider or parse failure becomes the degraded fallback; only a canceled
// caller context is returned as an error.
func (s *Service) score(ctx context.Context, userID string, req llm.Request, report completeness.Report) (scoring.Result, error) {
	if s.LLM == nil {
		return s.degrade(ctx, userID, scoring.ReasonInferenceUnavailable, llm.ErrNotConfigured, report), nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout())
	defer cancel()
	callCtx, span := telemetry.Tracer().Start(callCtx, "analysis.inference")
	span.SetAttributes(
		attribute.String("llm.provider", normalizeProvider(s.Provider)),
		attribute.String("llm.prompt_version", req.PromptVersion),
	)
	raw, err := s.LLM.Complete(callCtx, req)
	if err != nil {
		span.RecordError(err)
	}
	span.End()

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return scoring.Result{}, ctxErr
		}
		return s.degrade(ctx, userID, classifyInferenceError(err), err, report), nil
	}

	result, err := scoring.ParseOrFallback(raw, report.Tier, report)
	if err != nil {
		s.recordDegraded(ctx, userID, scoring.ReasonParseError, err)
	}
	return result, nil
}

func (s *Service) degrade(ctx context.Context, userID string, reason scoring.DegradedReason, err error, report completeness.Report) scoring.Result {
	s.recordDegraded(ctx, userID, reason, err)
	return scoring.Fallback(reason, report)
}

func (s *Service) recordDegraded(ctx context.Context, userID string, reason scoring.DegradedReason, err error) {
	metrics.IncInferenceFailure(string(reason))
	telemetry.ErrorContext(ctx, "analysis.inference_degraded", map[string]any{
		"user_id": userID,
		"reason":  string(reason),
		"error":   sanitizeError(err),
	})
}

func classifyInferenceError(err error) scoring.DegradedReason {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return scoring.ReasonInferenceTimeout
	case errors.Is(err, llm.ErrCircuitOpen), errors.Is(err, llm.ErrNotConfigured):
		return scoring.ReasonInferenceUnavailable
	default:
		return scoring.ReasonInferenceError
	}
}

func (s *Service) normalize(ctx context.Context, sub Submission) (profile.Input, error) {
	given := 0
	if sub.DocumentID != "" {
		given++
	}
	if sub.Document != nil {
		given++
	}
	if sub.Fields != nil {
		given++
	}
	if sub.Payload != nil {
		given++
	}
	if given != 1 {
		return profile.Input{}, &profile.ValidationError{Reason: "exactly one of document, fields or profile payload is required"}
	}

	switch {
	case sub.DocumentID != "":
		if s.Documents == nil {
			return profile.Input{}, errors.New("document source not configured")
		}
		text, err := s.Documents.Text(ctx, sub.UserID, sub.DocumentID)
		if err != nil {
			if errors.Is(err, documents.ErrNotFound) {
				return profile.Input{}, ErrNotFound
			}
			return profile.Input{}, err
		}
		return profile.FromExtractedText(text)
	case sub.Document != nil:
		return profile.FromDocument(ctx, *sub.Document)
	case sub.Fields != nil:
		return profile.FromFields(sub.Fields)
	default:
		return profile.FromPayload(*sub.Payload)
	}
}

func validateContext(sub Submission) error {
	if utf8.RuneCountInString(strings.TrimSpace(sub.TargetRole)) > MaxTargetRoleLength {
		return &profile.ValidationError{Field: "targetRole", Reason: fmt.Sprintf("must be at most %d characters", MaxTargetRoleLength)}
	}
	if utf8.RuneCountInString(strings.TrimSpace(sub.JobDescription)) > MaxJobDescriptionLength {
		return &profile.ValidationError{Field: "jobDescription", Reason: fmt.Sprintf("must be at most %d characters", MaxJobDescriptionLength)}
	}
	return nil
}

// resumePending finishes a run whose result was computed and charged but not
// stored. No inference call is made and no credit is consumed.
func (s *Service) resumePending(ctx context.Context, sub Submission, pending Analysis) (Outcome, error) {
	start := s.now()
	kind := OutcomeAnalyzed
	if pending.Result.Degraded {
		kind = OutcomeDegraded
	}
	telemetry.InfoContext(ctx, "analysis.pending_resumed", map[string]any{
		"user_id":     sub.UserID,
		"analysis_id": pending.ID,
	})
	saved, err := s.SavePending(ctx, sub.UserID, pending.ID)
	if err != nil {
		out := Outcome{Kind: kind, Completeness: pending.Completeness, Analysis: &pending}
		return out, err
	}
	out := Outcome{Kind: kind, Completeness: saved.Completeness, Analysis: &saved}
	s.logOutcome(ctx, sub, out, start)
	return out, nil
}

// SavePending retries the save of an analysis whose first write failed. The
// stored result is written as computed; nothing is re-analyzed.
func (s *Service) SavePending(ctx context.Context, userID, pendingID string) (Analysis, error) {
	if strings.TrimSpace(userID) == "" {
		return Analysis{}, ErrUnauthorized
	}
	analysis, ok := s.pendingSaves().Get(userID, pendingID)
	if !ok {
		return Analysis{}, ErrPendingNotFound
	}
	if err := s.Repo.Create(ctx, analysis); err != nil {
		metrics.IncPersistFailure()
		return Analysis{}, &PersistenceError{PendingID: pendingID, Err: err}
	}
	s.pendingSaves().Delete(pendingID)
	telemetry.InfoContext(ctx, "analysis.pending_saved", map[string]any{
		"user_id":     userID,
		"analysis_id": analysis.ID,
	})
	return analysis, nil
}

// Get returns an analysis owned by userID.
func (s *Service) Get(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if strings.TrimSpace(userID) == "" {
		return Analysis{}, ErrUnauthorized
	}
	if analysisID == "" {
		return Analysis{}, ErrNotFound
	}
	return s.Repo.GetByID(ctx, userID, analysisID)
}

// List returns analyses for a user ordered newest-first.
func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthorized
	}
	return s.Repo.ListByUser(ctx, userID, limit, offset)
}

// Summary recomputes the user's aggregate from every stored analysis.
func (s *Service) Summary(ctx context.Context, userID string) (Aggregate, error) {
	if strings.TrimSpace(userID) == "" {
		return Aggregate{}, ErrUnauthorized
	}
	points, err := s.Repo.ListScores(ctx, userID)
	if err != nil {
		return Aggregate{}, err
	}
	return ComputeAggregate(points), nil
}

func (s *Service) logOutcome(ctx context.Context, sub Submission, out Outcome, start time.Time) {
	elapsed := s.now().Sub(start)
	metrics.IncOutcome(string(out.Kind), string(out.Completeness.Tier))
	metrics.ObserveAnalysisDuration(elapsed)
	fields := map[string]any{
		"user_id":     sub.UserID,
		"outcome":     string(out.Kind),
		"tier":        string(out.Completeness.Tier),
		"coverage":    out.Completeness.DisplayCoverage(),
		"duration_ms": elapsed.Milliseconds(),
	}
	if sub.DocumentID != "" {
		fields["document_id"] = sub.DocumentID
	}
	if out.Analysis != nil {
		fields["analysis_id"] = out.Analysis.ID
		fields["overall_score"] = out.Analysis.Result.OverallScore
		if out.Analysis.Result.Degraded {
			fields["degraded_reason"] = string(out.Analysis.Result.DegradedReason)
		}
	}
	telemetry.InfoContext(ctx, "analysis.outcome", fields)
}

func (s *Service) pendingSaves() *pendingStore {
	s.pendingOnce.Do(func() {
		s.pending = newPendingStore(s.PendingTTL, s.Now)
	})
	return s.pending
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return defaultInferenceTimeout
}

func (s *Service) promptVersion() string {
	if v := strings.TrimSpace(s.PromptVersion); v != "" {
		return v
	}
	return scoring.DefaultPromptVersion
}

func normalizeProvider(provider string) string {
	if strings.TrimSpace(provider) == "" {
		return "openai"
	}
	return provider
}

// newAnalysisID keeps an id chosen up front by a queued job.
func newAnalysisID(sub Submission) string {
	if id := strings.TrimSpace(sub.ID); id != "" {
		return id
	}
	return uuid.NewString()
}

// sanitizeError trims provider errors before they reach logs.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.Join(strings.Fields(err.Error()), " ")
	if len(msg) > 300 {
		msg = msg[:300]
	}
	return msg
}
