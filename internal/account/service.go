package account

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"ats-backend/internal/shared/telemetry"
)

// ErrClaimUnsupported is returned when a repository cannot move guest data.
var ErrClaimUnsupported = errors.New("repository does not support guest claims")

// Claimer moves rows owned by a guest id to an authenticated user.
type Claimer interface {
	ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error)
}

// Service carries a guest's documents and analysis history over to the
// account they log in with. Analyses stay append-only; only the owner moves,
// so the aggregate recomputed afterwards covers both histories.
type Service struct {
	Documents Claimer
	Analyses  Claimer
	// DB, when set, runs both moves in one transaction.
	DB *sql.DB
}

type ClaimResult struct {
	MigratedDocuments int `json:"migratedDocuments"`
	MigratedAnalyses  int `json:"migratedAnalyses"`
}

func NewService(docs, analyses Claimer, db *sql.DB) *Service {
	return &Service{Documents: docs, Analyses: analyses, DB: db}
}

func (s *Service) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if strings.TrimSpace(guestUserID) == "" || strings.TrimSpace(authedUserID) == "" {
		return ClaimResult{}, errors.New("guestUserID and authedUserID are required")
	}

	var (
		res ClaimResult
		err error
	)
	if s.DB != nil {
		res, err = claimWithTx(ctx, s.DB, guestUserID, authedUserID)
	} else {
		res, err = s.claimEach(ctx, guestUserID, authedUserID)
	}
	if err != nil {
		return ClaimResult{}, err
	}
	telemetry.InfoContext(ctx, "account.guest_claimed", map[string]any{
		"user_id":            authedUserID,
		"migrated_documents": res.MigratedDocuments,
		"migrated_analyses":  res.MigratedAnalyses,
	})
	return res, nil
}

func (s *Service) claimEach(ctx context.Context, guestUserID, authedUserID string) (ClaimResult, error) {
	if s.Documents == nil || s.Analyses == nil {
		return ClaimResult{}, ErrClaimUnsupported
	}
	docCount, err := s.Documents.ClaimGuest(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim documents: %w", err)
	}
	analysisCount, err := s.Analyses.ClaimGuest(ctx, guestUserID, authedUserID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim analyses: %w", err)
	}
	return ClaimResult{MigratedDocuments: docCount, MigratedAnalyses: analysisCount}, nil
}

func claimWithTx(ctx context.Context, db *sql.DB, guestUserID, authedUserID string) (ClaimResult, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return ClaimResult{}, err
	}
	defer tx.Rollback()

	docRes, err := tx.ExecContext(ctx, `UPDATE documents SET user_id = $1 WHERE user_id = $2 AND deleted_at IS NULL`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim documents: %w", err)
	}
	docCount, _ := docRes.RowsAffected()

	analysisRes, err := tx.ExecContext(ctx, `UPDATE analyses SET user_id = $1 WHERE user_id = $2`, authedUserID, guestUserID)
	if err != nil {
		return ClaimResult{}, fmt.Errorf("claim analyses: %w", err)
	}
	analysisCount, _ := analysisRes.RowsAffected()

	if err := tx.Commit(); err != nil {
		return ClaimResult{}, err
	}
	return ClaimResult{MigratedDocuments: int(docCount), MigratedAnalyses: int(analysisCount)}, nil
}
