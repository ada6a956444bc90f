package workerproc

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ats-backend/internal/analyses"
	"ats-backend/internal/llm"
	"ats-backend/internal/profile"
	"ats-backend/internal/queue"
	"ats-backend/internal/usage"
)

type fakeRunner struct {
	existing map[string]bool
	outcome  analyses.Outcome
	err      error
	runs     []analyses.Submission
}

func (f *fakeRunner) Run(_ context.Context, sub analyses.Submission) (analyses.Outcome, error) {
	f.runs = append(f.runs, sub)
	return f.outcome, f.err
}

func (f *fakeRunner) Get(_ context.Context, userID, analysisID string) (analyses.Analysis, error) {
	if f.existing[userID+"/"+analysisID] {
		return analyses.Analysis{ID: analysisID, UserID: userID}, nil
	}
	return analyses.Analysis{}, analyses.ErrNotFound
}

func jobBody(t *testing.T) string {
	t.Helper()
	headline := "Data Engineer"
	raw, err := queue.EncodeMessage(queue.Message{
		Version:    queue.MessageVersion,
		RequestID:  "req-1",
		AnalysisID: "analysis-1",
		UserID:     "user-1",
		Payload:    &profile.ThirdPartyProfile{Headline: &headline},
		TargetRole: "Analytics Engineer",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return string(raw)
}

func TestHandleMessageRunsSubmission(t *testing.T) {
	runner := &fakeRunner{outcome: analyses.Outcome{Kind: analyses.OutcomeDegraded}}

	status, err := HandleMessage(context.Background(), runner, jobBody(t))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if status != StatusDegraded {
		t.Fatalf("expected degraded status, got %s", status)
	}
	if len(runner.runs) != 1 {
		t.Fatalf("expected one run, got %d", len(runner.runs))
	}
	sub := runner.runs[0]
	if sub.ID != "analysis-1" || sub.UserID != "user-1" || sub.Payload == nil || sub.TargetRole != "Analytics Engineer" {
		t.Fatalf("unexpected submission: %+v", sub)
	}
}

func TestHandleMessageSkipsStoredAnalysis(t *testing.T) {
	runner := &fakeRunner{existing: map[string]bool{"user-1/analysis-1": true}}

	status, err := HandleMessage(context.Background(), runner, jobBody(t))
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if status != StatusDuplicate || len(runner.runs) != 0 {
		t.Fatalf("expected duplicate without a run, got %s after %d runs", status, len(runner.runs))
	}
}

type countingLLM struct {
	calls atomic.Int32
}

func (c *countingLLM) Complete(context.Context, llm.Request) (string, error) {
	c.calls.Add(1)
	return `{"overallScore": 72}`, nil
}

// failingRepo fails the first n creates.
type failingRepo struct {
	*analyses.MemoryRepo
	failures int
}

func (r *failingRepo) Create(ctx context.Context, analysis analyses.Analysis) error {
	if r.failures > 0 {
		r.failures--
		return errors.New("connection reset by peer")
	}
	return r.MemoryRepo.Create(ctx, analysis)
}

func scoredJob() queue.Message {
	headline := "Data Engineer"
	about := "I build batch and streaming pipelines."
	picture := "https://cdn.example.com/p.png"
	followers := 340
	return queue.Message{
		Version:    queue.MessageVersion,
		RequestID:  "req-7",
		AnalysisID: "analysis-7",
		UserID:     "user-7",
		Payload: &profile.ThirdPartyProfile{
			Headline:       &headline,
			About:          &about,
			Skills:         []string{"Go", "Spark", "Airflow"},
			Followers:      &followers,
			ProfilePicture: &picture,
		},
	}
}

func newScoringService(client llm.Client, failures int) (*analyses.Service, *failingRepo) {
	repo := &failingRepo{MemoryRepo: analyses.NewMemoryRepo(), failures: failures}
	return &analyses.Service{
		Repo:     repo,
		Usage:    usage.NewService(usage.DefaultPolicy()),
		LLM:      client,
		Provider: "test",
		Timeout:  time.Second,
	}, repo
}

func TestProcessRedeliveryAfterFailedSaveDoesNotRescore(t *testing.T) {
	client := &countingLLM{}
	svc, repo := newScoringService(client, 2)
	ctx := context.Background()
	msg := scoredJob()

	_, err := Process(ctx, svc, msg)
	var perr ErrProcess
	if !errors.As(err, &perr) || !perr.Retryable {
		t.Fatalf("expected retryable process error, got %v", err)
	}

	status, err := Process(ctx, svc, msg)
	if err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("expected completed on redelivery, got %s", status)
	}
	if got := client.calls.Load(); got != 1 {
		t.Fatalf("expected one inference call, got %d", got)
	}
	u, _ := svc.Usage.Get(ctx, msg.UserID)
	if u.Used != 1 {
		t.Fatalf("expected one credit used, got %d", u.Used)
	}
	stored, err := repo.GetByID(ctx, msg.UserID, msg.AnalysisID)
	if err != nil {
		t.Fatalf("expected analysis stored: %v", err)
	}
	if stored.Result.OverallScore != 72 {
		t.Fatalf("expected the first result to be stored, got %d", stored.Result.OverallScore)
	}
}

func TestProcessRetriesFailedSaveInProcess(t *testing.T) {
	client := &countingLLM{}
	svc, repo := newScoringService(client, 1)
	ctx := context.Background()
	msg := scoredJob()

	status, err := Process(ctx, svc, msg)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if status != StatusCompleted {
		t.Fatalf("expected completed, got %s", status)
	}
	if _, err := repo.GetByID(ctx, msg.UserID, msg.AnalysisID); err != nil {
		t.Fatalf("expected analysis stored: %v", err)
	}

	status, err = Process(ctx, svc, msg)
	if err != nil || status != StatusDuplicate {
		t.Fatalf("expected duplicate on redelivery, got %s, %v", status, err)
	}
	if got := client.calls.Load(); got != 1 {
		t.Fatalf("expected one inference call, got %d", got)
	}
}

func TestUnrecoverableClassification(t *testing.T) {
	cases := []struct {
		name      string
		runErr    error
		body      string
		wantDrop  bool
		wantError bool
	}{
		{name: "empty body", body: "  ", wantDrop: true, wantError: true},
		{name: "bad json", body: "{bad-json", wantDrop: true, wantError: true},
		{name: "limit reached", runErr: usage.ErrLimitReached, wantDrop: true, wantError: true},
		{name: "validation", runErr: &profile.ValidationError{Field: "profile", Reason: "bad"}, wantDrop: true, wantError: true},
		{name: "persist failure", runErr: &analyses.PersistenceError{PendingID: "analysis-1", Err: errors.New("db down")}, wantDrop: false, wantError: true},
		{name: "canceled", runErr: context.Canceled, wantDrop: false, wantError: true},
		{name: "ok", wantDrop: false, wantError: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := tc.body
			if body == "" {
				body = jobBody(t)
			}
			runner := &fakeRunner{outcome: analyses.Outcome{Kind: analyses.OutcomeAnalyzed}, err: tc.runErr}
			_, err := HandleMessage(context.Background(), runner, body)
			if (err != nil) != tc.wantError {
				t.Fatalf("error = %v, wantError %v", err, tc.wantError)
			}
			if got := Unrecoverable(err); got != tc.wantDrop {
				t.Fatalf("Unrecoverable(%v) = %v, want %v", err, got, tc.wantDrop)
			}
		})
	}
}

func TestComputeMeta(t *testing.T) {
	if meta := ComputeMeta(""); meta.BodyLen != 0 || meta.BodySHA != "" {
		t.Fatalf("unexpected meta for empty body: %+v", meta)
	}
	meta := ComputeMeta("abc")
	if meta.BodyLen != 3 || meta.BodySHA != "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad" {
		t.Fatalf("unexpected meta: %+v", meta)
	}
}
