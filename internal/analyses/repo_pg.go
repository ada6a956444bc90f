package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"ats-backend/internal/profile"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const selectColumns = `
SELECT id, user_id, document_id, source, target_role, job_description,
       prompt_version, prompt_hash, provider, model, completeness, result, created_at
FROM analyses`

// Create inserts a new analysis. The denormalised score columns feed the
// history aggregate without decoding the result document.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) error {
	const query = `
INSERT INTO analyses (
	id, user_id, document_id, source, target_role, job_description,
	prompt_version, prompt_hash, provider, model,
	overall_score, score_category, tier, coverage_percentage, degraded, degraded_reason,
	completeness, result, created_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
ON CONFLICT (id) DO NOTHING`

	completenessPayload, err := json.Marshal(analysis.Completeness)
	if err != nil {
		return fmt.Errorf("marshal completeness: %w", err)
	}
	resultPayload, err := json.Marshal(analysis.Result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.UserID,
		nullIfEmpty(analysis.DocumentID),
		string(analysis.Source),
		analysis.TargetRole,
		analysis.JobDescription,
		analysis.PromptVersion,
		analysis.PromptHash,
		analysis.Provider,
		analysis.Model,
		analysis.Result.OverallScore,
		string(analysis.Result.ScoreCategory),
		string(analysis.Completeness.Tier),
		analysis.Completeness.DisplayCoverage(),
		analysis.Result.Degraded,
		nullIfEmpty(string(analysis.Result.DegradedReason)),
		completenessPayload,
		resultPayload,
		analysis.CreatedAt,
	)
	return err
}

// GetByID returns an analysis owned by userID.
func (r *PGRepo) GetByID(ctx context.Context, userID, analysisID string) (Analysis, error) {
	query := selectColumns + `
WHERE id = $1 AND user_id = $2
LIMIT 1`
	a, err := scanAnalysis(r.DB.QueryRowContext(ctx, query, analysisID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, err
	}
	return a, nil
}

// ListByUser lists analyses for a user ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	limit, offset = clampPage(limit, offset)

	query := selectColumns + `
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListScores returns every overall score for a user, oldest first.
func (r *PGRepo) ListScores(ctx context.Context, userID string) ([]ScorePoint, error) {
	const query = `
SELECT id, overall_score, created_at
FROM analyses
WHERE user_id = $1
ORDER BY created_at ASC, id ASC`

	rows, err := r.DB.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ScorePoint
	for rows.Next() {
		var p ScorePoint
		if err := rows.Scan(&p.ID, &p.Score, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

var _ Repo = (*PGRepo)(nil)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAnalysis(row rowScanner) (Analysis, error) {
	var a Analysis
	var documentID sql.NullString
	var source string
	var targetRole sql.NullString
	var jobDescription sql.NullString
	var promptVersion sql.NullString
	var promptHash sql.NullString
	var provider sql.NullString
	var model sql.NullString
	var completenessRaw []byte
	var resultRaw []byte
	if err := row.Scan(
		&a.ID,
		&a.UserID,
		&documentID,
		&source,
		&targetRole,
		&jobDescription,
		&promptVersion,
		&promptHash,
		&provider,
		&model,
		&completenessRaw,
		&resultRaw,
		&a.CreatedAt,
	); err != nil {
		return Analysis{}, err
	}
	a.Source = profile.Source(source)
	if documentID.Valid {
		a.DocumentID = documentID.String
	}
	if targetRole.Valid {
		a.TargetRole = targetRole.String
	}
	if jobDescription.Valid {
		a.JobDescription = jobDescription.String
	}
	if promptVersion.Valid {
		a.PromptVersion = promptVersion.String
	}
	if promptHash.Valid {
		a.PromptHash = promptHash.String
	}
	if provider.Valid {
		a.Provider = provider.String
	}
	if model.Valid {
		a.Model = model.String
	}
	if len(completenessRaw) > 0 {
		if err := json.Unmarshal(completenessRaw, &a.Completeness); err != nil {
			return Analysis{}, fmt.Errorf("decode completeness for %s: %w", a.ID, err)
		}
	}
	if len(resultRaw) > 0 {
		if err := json.Unmarshal(resultRaw, &a.Result); err != nil {
			return Analysis{}, fmt.Errorf("decode result for %s: %w", a.ID, err)
		}
	}
	return a, nil
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// ClaimGuest reassigns a guest's analyses to an authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	res, err := r.DB.ExecContext(ctx, `UPDATE analyses SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}
