package users

import (
	"context"
	"database/sql"
	"errors"
)

type PGRepo struct {
	DB *sql.DB
}

func (r *PGRepo) Upsert(ctx context.Context, user User) error {
	const query = `
INSERT INTO users (id, email, full_name, given_name, family_name, picture_url, created_at, updated_at, last_login_at)
VALUES ($1, $2, $3, $4, $5, $6, now(), now(), now())
ON CONFLICT (id) DO UPDATE SET
  email = COALESCE(EXCLUDED.email, users.email),
  full_name = COALESCE(EXCLUDED.full_name, users.full_name),
  given_name = COALESCE(EXCLUDED.given_name, users.given_name),
  family_name = COALESCE(EXCLUDED.family_name, users.family_name),
  picture_url = COALESCE(EXCLUDED.picture_url, users.picture_url),
  updated_at = now(),
  last_login_at = now()`
	_, err := r.DB.ExecContext(ctx, query,
		user.ID,
		nullableString(user.Email),
		nullableString(user.FullName),
		nullableString(user.GivenName),
		nullableString(user.FamilyName),
		nullableString(user.PictureURL),
	)
	return err
}

func (r *PGRepo) GetByID(ctx context.Context, userID string) (User, error) {
	const query = `
SELECT id, email, full_name, given_name, family_name, picture_url, created_at, updated_at, last_login_at
FROM users
WHERE id = $1
LIMIT 1`
	var (
		user                                         User
		email, fullName, givenName, family, picture sql.NullString
	)
	err := r.DB.QueryRowContext(ctx, query, userID).Scan(
		&user.ID,
		&email,
		&fullName,
		&givenName,
		&family,
		&picture,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	user.Email = email.String
	user.FullName = fullName.String
	user.GivenName = givenName.String
	user.FamilyName = family.String
	user.PictureURL = picture.String
	return user, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
