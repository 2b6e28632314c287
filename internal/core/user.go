package core

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrEmptyUsername = errors.New("username is required")
	ErrEmptyName     = errors.New("name is required")
	ErrEmptyEmail    = errors.New("email is required")
	ErrEmptyPassword = errors.New("password is required")
)

// User is the persisted identity record. The password hash never leaves
// the process: it is excluded from JSON and every service call returns
// users through Sanitized.
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	ProfilePicture *string   `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
}

// Sanitized returns a copy safe to hand to the HTTP layer.
func (u User) Sanitized() User {
	u.PasswordHash = ""
	return u
}

// ProfileUpdate is a partial profile mutation. A nil field keeps the
// current value; a supplied field must be non-blank after trimming.
type ProfileUpdate struct {
	Username *string
	Name     *string
	Email    *string
}

// SignupInput is the validated input for creating a user.
type SignupInput struct {
	Username string
	Name     string
	Email    string
	Password string
}

// Normalize trims whitespace on identity fields (never the password) and
// validates that all required fields are present.
func (in SignupInput) Normalize() (SignupInput, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" {
		return SignupInput{}, ErrEmptyUsername
	}
	if in.Email == "" {
		return SignupInput{}, ErrEmptyEmail
	}
	if in.Password == "" {
		return SignupInput{}, ErrEmptyPassword
	}
	return in, nil
}
