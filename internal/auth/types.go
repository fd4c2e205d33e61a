package auth

import (
	"errors"
	"regexp"
	"time"
)

// emailPattern is a pragmatic format check, not full RFC 5322.
var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// maxEmailLength caps stored email addresses.
const maxEmailLength = 254

// IsValidEmail checks if an email address meets format requirements.
func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// minPasswordLength is the minimum accepted password length at signup.
const minPasswordLength = 8

// IsValidPassword checks if a password meets minimum requirements.
func IsValidPassword(password string) bool {
	return len(password) >= minPasswordLength
}

// User represents a registered account that can own devices and locations.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialised
	CreatedAt    time.Time `json:"created_at"`
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrTokenInvalid       = errors.New("invalid token")
)
