package documents

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRepo keeps documents in process, keyed by id. It backs dev runs
// without DATABASE_URL and the handler tests.
type MemoryRepo struct {
	mu      sync.RWMutex
	byID    map[string]Document
	deleted map[string]time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		byID:    make(map[string]Document),
		deleted: make(map[string]time.Time),
	}
}

var _ DocumentsRepo = (*MemoryRepo)(nil)

func (r *MemoryRepo) Create(ctx context.Context, doc Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[doc.ID] = doc
	return nil
}

func (r *MemoryRepo) GetByID(ctx context.Context, userID, documentID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.live(userID, documentID)
	if !ok {
		return Document{}, ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepo) GetCurrentByUser(ctx context.Context, userID string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	docs := r.owned(userID)
	if len(docs) == 0 {
		return Document{}, ErrNotFound
	}
	return docs[0], nil
}

func (r *MemoryRepo) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	limit, offset = clampPage(limit, offset)
	docs := r.owned(userID)
	if offset >= len(docs) {
		return []Document{}, nil
	}
	return docs[offset:min(len(docs), offset+limit)], nil
}

// UpdateExtraction records where the extracted text was cached. The first
// recorded key wins.
func (r *MemoryRepo) UpdateExtraction(ctx context.Context, userID, documentID, extractedKey string, extractedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.live(userID, documentID)
	if !ok {
		return ErrNotFound
	}
	if doc.ExtractedTextKey == "" {
		doc.ExtractedTextKey = extractedKey
		doc.ExtractedAt = &extractedAt
		r.byID[doc.ID] = doc
	}
	return nil
}

func (r *MemoryRepo) Delete(ctx context.Context, userID, documentID string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live(userID, documentID); !ok {
		return ErrNotFound
	}
	r.deleted[documentID] = at
	return nil
}

// ClaimGuest moves every live document owned by guestUserID to authedUserID.
func (r *MemoryRepo) ClaimGuest(ctx context.Context, guestUserID, authedUserID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	moved := 0
	for id, doc := range r.byID {
		if _, gone := r.deleted[id]; gone || doc.UserID != guestUserID {
			continue
		}
		doc.UserID = authedUserID
		r.byID[id] = doc
		moved++
	}
	return moved, nil
}

// live must be called with mu held.
func (r *MemoryRepo) live(userID, documentID string) (Document, bool) {
	doc, ok := r.byID[documentID]
	if !ok || doc.UserID != userID {
		return Document{}, false
	}
	if _, gone := r.deleted[documentID]; gone {
		return Document{}, false
	}
	return doc, true
}

// owned returns the user's live documents newest first.
func (r *MemoryRepo) owned(userID string) []Document {
	r.mu.RLock()
	out := make([]Document, 0)
	for id, doc := range r.byID {
		if _, gone := r.deleted[id]; !gone && doc.UserID == userID {
			out = append(out, doc)
		}
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
