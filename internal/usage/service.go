package usage

import "context"

type store interface {
	Get(ctx context.Context, userID string) (Usage, error)
	EnsurePeriod(ctx context.Context, userID string) (Usage, error)
	Consume(ctx context.Context, userID string, n int) (Usage, error)
	Reset(ctx context.Context, userID string) (Usage, error)
}

// Service meters scored analyses. The pipeline calls Check before the
// inference call and Consume once a non-degraded result exists, so failed or
// degraded runs are free.
type Service struct {
	store store
}

// NewService keeps credits in process memory.
func NewService(policy Policy) *Service {
	return &Service{store: newMemoryStore(policy, nil)}
}

func NewPostgresService(pgStore *PGStore) *Service {
	return &Service{store: pgStore}
}

// Get returns the user's credits for the current window, rolling the window
// over when it has elapsed.
func (s *Service) Get(ctx context.Context, userID string) (Usage, error) {
	return s.store.EnsurePeriod(ctx, userID)
}

// Check returns a *LimitError when no credit is left.
func (s *Service) Check(ctx context.Context, userID string) (Usage, error) {
	u, err := s.store.EnsurePeriod(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	if u.Remaining() <= 0 {
		return u, &LimitError{Usage: u}
	}
	return u, nil
}

func (s *Service) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	return s.store.Consume(ctx, userID, n)
}

// Reset zeroes usage and starts a new window. Dev routes only.
func (s *Service) Reset(ctx context.Context, userID string) (Usage, error) {
	return s.store.Reset(ctx, userID)
}
