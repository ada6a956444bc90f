package analyses

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu     sync.RWMutex
	byID   map[string]Analysis
	byUser map[string][]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:   make(map[string]Analysis),
		byUser: make(map[string][]Analysis),
	}
}

// Create stores the analysis unless its id is already taken.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[analysis.ID]; exists {
		return nil
	}
	r.byID[analysis.ID] = analysis
	r.byUser[analysis.UserID] = append(r.byUser[analysis.UserID], analysis)
	return nil
}

// GetByID returns an analysis owned by userID.
func (r *MemoryRepo) GetByID(ctx context.Context, userID, analysisID string) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	analysis, ok := r.byID[analysisID]
	if !ok || analysis.UserID != userID {
		return Analysis{}, ErrNotFound
	}
	return analysis, nil
}

// ListByUser returns analyses for a user, newest first, with limit/offset.
func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Analysis, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)

	r.mu.RLock()
	userAnalyses := make([]Analysis, len(r.byUser[userID]))
	copy(userAnalyses, r.byUser[userID])
	r.mu.RUnlock()

	if len(userAnalyses) == 0 || offset >= len(userAnalyses) {
		return []Analysis{}, nil
	}

	sort.SliceStable(userAnalyses, func(i, j int) bool {
		if !userAnalyses[i].CreatedAt.Equal(userAnalyses[j].CreatedAt) {
			return userAnalyses[i].CreatedAt.After(userAnalyses[j].CreatedAt)
		}
		return userAnalyses[i].ID > userAnalyses[j].ID
	})

	end := len(userAnalyses)
	if offset+limit < end {
		end = offset + limit
	}
	return userAnalyses[offset:end], nil
}

// ListScores returns every score the user has recorded.
func (r *MemoryRepo) ListScores(ctx context.Context, userID string) ([]ScorePoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]ScorePoint, 0, len(r.byUser[userID]))
	for _, a := range r.byUser[userID] {
		out = append(out, ScorePoint{ID: a.ID, Score: a.Result.OverallScore, CreatedAt: a.CreatedAt})
	}
	return out, nil
}

// ClaimGuest moves a guest's history to authedUserID.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	moved := r.byUser[guestUserID]
	for i := range moved {
		moved[i].UserID = authedUserID
		r.byID[moved[i].ID] = moved[i]
	}
	r.byUser[authedUserID] = append(r.byUser[authedUserID], moved...)
	delete(r.byUser, guestUserID)
	return len(moved), nil
}
