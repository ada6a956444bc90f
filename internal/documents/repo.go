package documents

import (
	"context"
	"time"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// DocumentsRepo defines persistence operations for documents. Deleted
// documents are invisible to every read.
type DocumentsRepo interface {
	Create(ctx context.Context, doc Document) error
	GetByID(ctx context.Context, userID, documentID string) (Document, error)
	GetCurrentByUser(ctx context.Context, userID string) (Document, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error)
	UpdateExtraction(ctx context.Context, userID, documentID, extractedKey string, extractedAt time.Time) error
	Delete(ctx context.Context, userID, documentID string, at time.Time) error
}

// clampPage applies the list defaults shared by both repositories.
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
