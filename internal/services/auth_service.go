// Package services orchestrates domain operations across storage, auth
// and the event bus.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tally/internal/auth"
	"tally/internal/core"
	"tally/internal/log"
	"tally/internal/storage"

	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned for both an unknown identifier
	// and a wrong password, so login failures do not reveal which
	// accounts exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrWrongPassword is returned by password change when the current
	// password does not verify.
	ErrWrongPassword = errors.New("current password is incorrect")

	ErrUserNotFound = errors.New("user not found")
)

// AuthResult bundles the sanitized user with a freshly issued token.
type AuthResult struct {
	User  core.User
	Token string
}

// AuthService implements signup, login and profile management.
type AuthService struct {
	repo   *storage.Repository
	tokens *auth.TokenService
	logger *log.Logger
}

func NewAuthService(repo *storage.Repository, tokens *auth.TokenService) *AuthService {
	return &AuthService{
		repo:   repo,
		tokens: tokens,
		logger: log.New(log.ComponentAuth),
	}
}

// Signup registers a new user and logs them in. The email check runs
// before the username check so a request conflicting on both reports the
// email first. The storage layer re-checks uniqueness at insert, so two
// concurrent signups for the same email cannot both succeed.
func (s *AuthService) Signup(ctx context.Context, in core.SignupInput) (AuthResult, error) {
	in, err := in.Normalize()
	if err != nil {
		return AuthResult{}, err
	}

	taken, err := s.repo.EmailTaken(ctx, in.Email, "")
	if err != nil {
		return AuthResult{}, fmt.Errorf("check email: %w", err)
	}
	if taken {
		return AuthResult{}, storage.ErrEmailExists
	}

	taken, err = s.repo.UsernameTaken(ctx, in.Username, "")
	if err != nil {
		return AuthResult{}, fmt.Errorf("check username: %w", err)
	}
	if taken {
		return AuthResult{}, storage.ErrUsernameExists
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	user := core.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		// A concurrent signup may have won the race since the pre-check.
		if errors.Is(err, storage.ErrEmailExists) || errors.Is(err, storage.ErrUsernameExists) {
			return AuthResult{}, err
		}
		return AuthResult{}, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user registered", log.FieldUserID, user.ID)
	return AuthResult{User: user.Sanitized(), Token: token}, nil
}

// Login authenticates by username or email. Unknown identifiers and bad
// passwords produce the identical ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, identifier, password string) (AuthResult, error) {
	user, err := s.repo.GetUserByLogin(ctx, identifier)
	if errors.Is(err, storage.ErrNotFound) {
		return AuthResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("lookup user: %w", err)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return AuthResult{}, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return AuthResult{}, fmt.Errorf("issue token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", log.FieldUserID, user.ID)
	return AuthResult{User: user.Sanitized(), Token: token}, nil
}

// GetProfile returns the sanitized profile for userID.
func (s *AuthService) GetProfile(ctx context.Context, userID string) (core.User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}
	return user.Sanitized(), nil
}

// UpdateProfile applies a partial mutation: omitted fields keep their
// current value. Uniqueness is checked only for supplied fields that
// actually change, email before username, excluding the user's own row.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, in core.ProfileUpdate) (core.User, error) {
	current, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("get user: %w", err)
	}

	username, name, email := current.Username, current.Name, current.Email
	if in.Username != nil {
		username = strings.TrimSpace(*in.Username)
		if username == "" {
			return core.User{}, core.ErrEmptyUsername
		}
	}
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if name == "" {
			return core.User{}, core.ErrEmptyName
		}
	}
	if in.Email != nil {
		email = strings.TrimSpace(*in.Email)
		if email == "" {
			return core.User{}, core.ErrEmptyEmail
		}
	}

	if email != current.Email {
		taken, err := s.repo.EmailTaken(ctx, email, userID)
		if err != nil {
			return core.User{}, fmt.Errorf("check email: %w", err)
		}
		if taken {
			return core.User{}, storage.ErrEmailExists
		}
	}

	if username != current.Username {
		taken, err := s.repo.UsernameTaken(ctx, username, userID)
		if err != nil {
			return core.User{}, fmt.Errorf("check username: %w", err)
		}
		if taken {
			return core.User{}, storage.ErrUsernameExists
		}
	}

	err = s.repo.UpdateUserProfile(ctx, userID, username, name, email)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrUserNotFound
	}
	if errors.Is(err, storage.ErrEmailExists) || errors.Is(err, storage.ErrUsernameExists) {
		return core.User{}, err
	}
	if err != nil {
		return core.User{}, fmt.Errorf("update profile: %w", err)
	}

	return s.GetProfile(ctx, userID)
}

// UpdatePassword verifies the current password before storing a new hash.
func (s *AuthService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if newPassword == "" {
		return core.ErrEmptyPassword
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	if !auth.CheckPassword(currentPassword, user.PasswordHash) {
		return ErrWrongPassword
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.repo.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", log.FieldUserID, userID)
	return nil
}

// UpdateProfilePicture stores the picture value verbatim; nil clears it.
func (s *AuthService) UpdateProfilePicture(ctx context.Context, userID string, picture *string) (core.User, error) {
	err := s.repo.UpdateUserPicture(ctx, userID, picture)
	if errors.Is(err, storage.ErrNotFound) {
		return core.User{}, ErrUserNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("update picture: %w", err)
	}
	return s.GetProfile(ctx, userID)
}
