package users

import "time"

// User is an account created by a provider login. Guests never get a row.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	FullName    string    `json:"fullName"`
	GivenName   string    `json:"givenName"`
	FamilyName  string    `json:"familyName"`
	PictureURL  string    `json:"pictureUrl"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	LastLoginAt time.Time `json:"lastLoginAt"`
}
