package domain

import "errors"

var (
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = errors.Join(ErrNotFound, errors.New("user not found"))
	// ErrInvalidCredentials is returned when the email/password combination is incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// User represents a registered account as stored in the record store.
type User struct {
	ID           int64  // Unique identifier
	Name         string // Display name, unique
	Email        string // Login email, unique
	PasswordHash []byte // bcrypt hash
	CreatedAt    int64  // Unix timestamp of account creation
	UpdatedAt    int64  // Unix timestamp of last modification
}

// Public returns the attributes of the user that are safe to hand out.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// PublicUser is the outward representation of a user.
type PublicUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}
