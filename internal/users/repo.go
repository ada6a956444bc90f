package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrInvalidUser = errors.New("invalid user")
)

// Repo stores accounts keyed by provider-qualified id ("google:<sub>").
type Repo interface {
	// Upsert creates the user or refreshes its profile fields, stamping the
	// login time either way.
	Upsert(ctx context.Context, user User) error
	GetByID(ctx context.Context, userID string) (User, error)
}
