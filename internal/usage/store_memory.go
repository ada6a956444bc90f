package usage

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu     sync.Mutex
	data   map[string]Usage
	policy Policy
	now    func() time.Time
}

func newMemoryStore(policy Policy, now func() time.Time) *memoryStore {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &memoryStore{
		data:   make(map[string]Usage),
		policy: policy.normalized(),
		now:    now,
	}
}

func (s *memoryStore) Get(ctx context.Context, userID string) (Usage, error) {
	return s.EnsurePeriod(ctx, userID)
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current(userID), nil
}

// current must be called with mu held.
func (s *memoryStore) current(userID string) Usage {
	now := s.now()
	u, ok := s.data[userID]
	if !ok || expired(u, now) {
		plan, limit := s.policy.Plan, s.policy.Limit
		if ok {
			plan, limit = u.Plan, u.Limit
		}
		u = s.policy.fresh(now)
		u.Plan, u.Limit = plan, limit
	}
	s.data[userID] = u
	return u
}

func (s *memoryStore) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.current(userID)
	if n <= 0 {
		return u, nil
	}
	if u.Used+n > u.Limit {
		return u, &LimitError{Usage: u}
	}
	u.Used += n
	s.data[userID] = u
	return u, nil
}

func (s *memoryStore) Reset(ctx context.Context, userID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.policy.fresh(s.now())
	if prev, ok := s.data[userID]; ok {
		u.Plan, u.Limit = prev.Plan, prev.Limit
	}
	s.data[userID] = u
	return u, nil
}
