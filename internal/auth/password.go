package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the operator password is wrong.
var ErrInvalidCredentials = errors.New("invalid credentials")

// PasswordVerifier checks the operator password against the bcrypt hash
// from configuration. The gateway has exactly one principal, so there is
// no user store behind this.
type PasswordVerifier struct {
	hash string
}

// NewPasswordVerifier returns a verifier over the configured hash.
func NewPasswordVerifier(hash string) *PasswordVerifier {
	return &PasswordVerifier{hash: hash}
}

// Verify compares the password with the stored hash.
func (v *PasswordVerifier) Verify(password string) error {
	if v.hash == "" || password == "" {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(v.hash), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword produces a bcrypt hash for configuration bootstrap.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password: empty password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
