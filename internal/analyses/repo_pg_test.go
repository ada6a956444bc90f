package analyses

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"ats-backend/internal/completeness"
	"ats-backend/internal/profile"
	"ats-backend/internal/scoring"
)

var analysisColumns = []string{
	"id", "user_id", "document_id", "source", "target_role", "job_description",
	"prompt_version", "prompt_hash", "provider", "model", "completeness", "result", "created_at",
}

func TestPGRepoCreateWritesScoreColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	report := completeness.Report{
		Available: []profile.SectionName{profile.Headline, profile.About},
		Missing:   []profile.SectionName{profile.Experience},
		Coverage:  200.0 / 3.0,
		Tier:      completeness.TierPartial,
	}
	analysis := Analysis{
		ID:            "analysis-1",
		UserID:        "user-1",
		Source:        profile.SourceText,
		TargetRole:    "Backend Engineer",
		PromptVersion: scoring.DefaultPromptVersion,
		PromptHash:    "deadbeef",
		Provider:      "openai",
		Model:         "gpt-4o-mini",
		Completeness:  report,
		Result: scoring.Result{
			OverallScore:   72,
			ScoreCategory:  scoring.Good,
			Degraded:       true,
			DegradedReason: scoring.ReasonParseError,
		},
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec(`INSERT INTO analyses .* ON CONFLICT \(id\) DO NOTHING`).
		WithArgs(
			analysis.ID,
			analysis.UserID,
			nil, // document_id
			"text",
			analysis.TargetRole,
			"",
			analysis.PromptVersion,
			analysis.PromptHash,
			analysis.Provider,
			analysis.Model,
			72,
			"Good",
			"partial",
			66.7,
			true,
			"parse_error",
			sqlmock.AnyArg(), // completeness
			sqlmock.AnyArg(), // result
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), analysis); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDScopesToUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(analysisColumns).AddRow(
		"analysis-1", "user-1", "doc-1", "document", nil, nil,
		"ats-v1", "hash", "openai", "gpt-4o-mini",
		[]byte(`{"availableSections":["headline","about","experience","skills","education","followers","activity"],"missingSections":["profilePicture","backgroundImage"],"coveragePercentage":77.8,"tier":"full"}`),
		[]byte(`{"overallScore":81,"scoreCategory":"Excellent","subScores":{"skills":90}}`),
		created,
	)
	mock.ExpectQuery(`FROM analyses\s+WHERE id = \$1 AND user_id = \$2`).
		WithArgs("analysis-1", "user-1").
		WillReturnRows(rows)

	got, err := repo.GetByID(context.Background(), "user-1", "analysis-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.DocumentID != "doc-1" || got.Source != profile.SourceDocument {
		t.Fatalf("unexpected identity fields: %+v", got)
	}
	if got.TargetRole != "" || got.JobDescription != "" {
		t.Fatalf("expected null text columns to be empty, got %q %q", got.TargetRole, got.JobDescription)
	}
	if got.Result.OverallScore != 81 || got.Result.SubScores[scoring.Skills] != 90 {
		t.Fatalf("unexpected result: %+v", got.Result)
	}
	if got.Completeness.Tier != completeness.TierFull || len(got.Completeness.Available) != 7 {
		t.Fatalf("unexpected completeness: %+v", got.Completeness)
	}
	if !got.CreatedAt.Equal(created) {
		t.Fatalf("created_at = %v", got.CreatedAt)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery("FROM analyses").
		WithArgs("analysis-1", "user-2").
		WillReturnRows(sqlmock.NewRows(analysisColumns))

	if _, err := repo.GetByID(context.Background(), "user-2", "analysis-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoListByUserClampsLimit(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	mock.ExpectQuery(`ORDER BY created_at DESC, id DESC\s+LIMIT \$2 OFFSET \$3`).
		WithArgs("user-1", 100, 0).
		WillReturnRows(sqlmock.NewRows(analysisColumns).AddRow(
			"analysis-2", "user-1", nil, "payload", "SRE", "jd",
			"ats-v1", "hash", "heuristic", "", []byte(`{}`), []byte(`{}`), time.Now().UTC(),
		))

	got, err := repo.ListByUser(context.Background(), "user-1", 500, -3)
	if err != nil {
		t.Fatalf("ListByUser: %v", err)
	}
	if len(got) != 1 || got[0].DocumentID != "" || got[0].TargetRole != "SRE" {
		t.Fatalf("unexpected list: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoListScoresFeedsAggregate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	repo := &PGRepo{DB: db}
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, overall_score, created_at\s+FROM analyses`).
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "overall_score", "created_at"}).
			AddRow("a", 40, base).
			AddRow("b", 55, base.Add(time.Hour)).
			AddRow("c", 70, base.Add(2*time.Hour)))

	points, err := repo.ListScores(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ListScores: %v", err)
	}
	agg := ComputeAggregate(points)
	if agg.BestScore != 70 || agg.ImprovementPercentage != 75 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
}
