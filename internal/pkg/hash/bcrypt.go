package hash

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrTooLong is returned when the peppered plaintext exceeds bcrypt's 72 byte limit.
var ErrTooLong = bcrypt.ErrPasswordTooLong

// Hash hashes secrets and checks plaintext against stored hashes.
type Hash interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}

// Bcrypt implements Hash using bcrypt.
//
// Pepper is appended to the plaintext before hashing and verifying. It lives in
// configuration, never in the database.
type Bcrypt struct {
	cost   int
	pepper string
}

// NewBcrypt returns a bcrypt-based hasher. A cost outside bcrypt's accepted
// range falls back to bcrypt.DefaultCost.
func NewBcrypt(cost int, pepper string) *Bcrypt {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{cost: cost, pepper: pepper}
}

// Hash hashes plaintext using bcrypt.
func (h *Bcrypt) Hash(plaintext string) ([]byte, error) {
	out, err := bcrypt.GenerateFromPassword([]byte(plaintext+h.pepper), h.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrTooLong
	}
	return out, err
}

// Verify returns true when plaintext matches the hashed value.
func (h *Bcrypt) Verify(hashed, plaintext string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext+h.pepper)) == nil
}
