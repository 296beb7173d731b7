package entity

import "time"

// User is an account row. Password is the bcrypt hash, empty when the account
// has no password set.
type User struct {
	ID        int64
	Email     string
	Name      string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPassword reports whether the account can log in with a password.
func (u *User) HasPassword() bool {
	return u.Password != ""
}

// NewUser is the data needed to create an account after email verification.
type NewUser struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
}
