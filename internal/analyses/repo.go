package analyses

import "context"

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Repo defines persistence operations for analyses. Every read and write is
// scoped to the owning user.
type Repo interface {
	// Create appends an analysis. Creating an id that already exists is a
	// no-op so a retried save cannot duplicate or overwrite a row.
	Create(ctx context.Context, analysis Analysis) error
	GetByID(ctx context.Context, userID, analysisID string) (Analysis, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error)
	ListScores(ctx context.Context, userID string) ([]ScorePoint, error)
}
