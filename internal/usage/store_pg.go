package usage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// PGStore is a Postgres-backed usage store. Rows are locked per user while
// the window is checked so concurrent analyses cannot overspend.
type PGStore struct {
	DB     *sql.DB
	policy Policy
	now    func() time.Time
}

// NewPGStore constructs a Postgres-backed usage store.
func NewPGStore(db *sql.DB, policy Policy) *PGStore {
	return &PGStore{
		DB:     db,
		policy: policy.normalized(),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *PGStore) Get(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *PGStore) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	return s.ensure(ctx, userID)
}

func (s *PGStore) Consume(ctx context.Context, userID string, n int) (u Usage, err error) {
	if n <= 0 {
		return s.ensure(ctx, userID)
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	u, err = s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	if u.Used+n > u.Limit {
		err = &LimitError{Usage: u}
		return u, err
	}
	u.Used += n
	if _, err = tx.ExecContext(ctx, `
UPDATE usage SET used = $1 WHERE user_id = $2`, u.Used, userID); err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *PGStore) Reset(ctx context.Context, userID string) (Usage, error) {
	u := s.policy.fresh(s.now())
	row := s.DB.QueryRowContext(ctx, `
INSERT INTO usage (user_id, plan, limit_amount, used, resets_at)
VALUES ($1, $2, $3, 0, $4)
ON CONFLICT (user_id) DO UPDATE SET used = 0, resets_at = EXCLUDED.resets_at
RETURNING plan, limit_amount`, userID, u.Plan, u.Limit, u.ResetsAt)
	if err := row.Scan(&u.Plan, &u.Limit); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *PGStore) ensure(ctx context.Context, userID string) (u Usage, err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return Usage{}, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	u, err = s.lockAndEnsure(ctx, tx, userID)
	if err != nil {
		return Usage{}, err
	}
	if err = tx.Commit(); err != nil {
		return Usage{}, err
	}
	return u, nil
}

func (s *PGStore) lockAndEnsure(ctx context.Context, tx *sql.Tx, userID string) (Usage, error) {
	var u Usage
	row := tx.QueryRowContext(ctx, `
SELECT plan, limit_amount, used, resets_at FROM usage WHERE user_id = $1 FOR UPDATE`, userID)
	err := row.Scan(&u.Plan, &u.Limit, &u.Used, &u.ResetsAt)
	now := s.now()
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return Usage{}, err
		}
		u = s.policy.fresh(now)
		if _, err := tx.ExecContext(ctx, `
INSERT INTO usage (user_id, plan, limit_amount, used, resets_at) VALUES ($1, $2, $3, $4, $5)`,
			userID, u.Plan, u.Limit, u.Used, u.ResetsAt); err != nil {
			return Usage{}, err
		}
		return u, nil
	}

	if expired(u, now) {
		u.Used = 0
		u.ResetsAt = now.Add(s.policy.Window)
		if _, err := tx.ExecContext(ctx, `UPDATE usage SET used = $1, resets_at = $2 WHERE user_id = $3`, u.Used, u.ResetsAt, userID); err != nil {
			return Usage{}, err
		}
	}
	return u, nil
}
