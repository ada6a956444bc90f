package documents

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGRepo implements DocumentsRepo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

var _ DocumentsRepo = (*PGRepo)(nil)

const selectColumns = `
SELECT id, user_id, file_name, mime_type, size_bytes, sha256, storage_provider, storage_key, extracted_text_key, extracted_at, created_at
FROM documents`

// Create inserts a new document.
func (r *PGRepo) Create(ctx context.Context, doc Document) error {
	const query = `
INSERT INTO documents (id, user_id, file_name, mime_type, size_bytes, sha256, storage_provider, storage_key, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	provider := doc.StorageProvider
	if provider == "" {
		provider = "local"
	}
	_, err := r.DB.ExecContext(ctx, query,
		doc.ID, doc.UserID, doc.FileName, doc.MimeType, doc.SizeBytes,
		nullIfEmpty(doc.SHA256), provider, nullIfEmpty(doc.StorageKey), doc.CreatedAt,
	)
	return err
}

// GetCurrentByUser returns the latest document for a user.
func (r *PGRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	query := selectColumns + `
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC, id DESC
LIMIT 1`
	return scanOne(r.DB.QueryRowContext(ctx, query, userID))
}

// GetByID fetches a document by ID for a user.
func (r *PGRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	query := selectColumns + `
WHERE user_id = $1 AND id = $2 AND deleted_at IS NULL
LIMIT 1`
	return scanOne(r.DB.QueryRowContext(ctx, query, userID, documentID))
}

// ListByUser lists documents ordered newest-first.
func (r *PGRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	limit, offset = clampPage(limit, offset)
	query := selectColumns + `
WHERE user_id = $1 AND deleted_at IS NULL
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	rows, err := r.DB.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Document, 0, limit)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// UpdateExtraction stores the extracted text metadata for a document.
func (r *PGRepo) UpdateExtraction(ctx context.Context, userID, documentID, extractedKey string, extractedAt time.Time) error {
	const query = `
UPDATE documents
SET extracted_text_key = $1, extracted_at = $2
WHERE user_id = $3 AND id = $4 AND extracted_text_key IS NULL`
	_, err := r.DB.ExecContext(ctx, query, extractedKey, extractedAt, userID, documentID)
	return err
}

// Delete marks a document deleted. The stored file is kept so analyses that
// referenced it stay explainable.
func (r *PGRepo) Delete(ctx context.Context, userID, documentID string, at time.Time) error {
	const query = `
UPDATE documents
SET deleted_at = $1
WHERE user_id = $2 AND id = $3 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, at, userID, documentID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClaimGuest reassigns documents owned by a guest user to an authenticated user.
func (r *PGRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	const query = `
UPDATE documents
SET user_id = $1
WHERE user_id = $2 AND deleted_at IS NULL`
	res, err := r.DB.ExecContext(ctx, query, authedUserID, guestUserID)
	if err != nil {
		return 0, err
	}
	updated, _ := res.RowsAffected()
	return int(updated), nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOne(row rowScanner) (Document, error) {
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, ErrNotFound
		}
		return Document{}, err
	}
	return doc, nil
}

func scanDocument(row rowScanner) (Document, error) {
	var (
		doc                                 Document
		digest, storageProvider, storageKey sql.NullString
		extractedKey                        sql.NullString
		extractedAt                         sql.NullTime
	)
	if err := row.Scan(
		&doc.ID,
		&doc.UserID,
		&doc.FileName,
		&doc.MimeType,
		&doc.SizeBytes,
		&digest,
		&storageProvider,
		&storageKey,
		&extractedKey,
		&extractedAt,
		&doc.CreatedAt,
	); err != nil {
		return Document{}, err
	}
	doc.SHA256 = digest.String
	doc.StorageProvider = storageProvider.String
	doc.StorageKey = storageKey.String
	doc.ExtractedTextKey = extractedKey.String
	if extractedAt.Valid {
		doc.ExtractedAt = &extractedAt.Time
	}
	return doc, nil
}
