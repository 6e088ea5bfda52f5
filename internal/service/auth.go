// Package service holds the business rules. It sits between the HTTP
// handlers and the repositories:
//
//	handler (HTTP) → service (rules, validation) → repository (storage)
//
// Services return apperror values for anything a client caused; the handler
// layer alone decides how those map to status codes.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/omi/internal/apperror"
	"github.com/sakif/omi/internal/auth"
	"github.com/sakif/omi/internal/model"
	"github.com/sakif/omi/internal/repository"
)

// AuthService handles registration, login and self-service profile edits.
//
// DEPENDENCIES (injected via NewAuthService):
//   - users      repository.UserRepository  → read/write user records
//   - tokens     *auth.TokenService         → issue/validate JWTs
//   - passwords  *auth.PasswordService      → bcrypt hashing
//   - logger     *slog.Logger
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued JWT so the handler can
// respond in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

const (
	msgCredentialsRequired = "Email and password are required"
	msgUserExists          = "User already exists"
	msgInvalidCredentials  = "Invalid credentials"
	msgUserNotFound        = "User not found"
)

// normalizeEmail makes lookups case-insensitive: "A@X.com" and "a@x.com"
// are the same account.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account and logs it in.
//
// A duplicate email is reported as a validation error (400), not a
// conflict.
func (s *AuthService) Register(ctx context.Context, email, password string, name *string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", msgCredentialsRequired)
	}

	existing, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if existing != nil {
		return nil, apperror.ValidationFailed("email", msgUserExists)
	}

	hash, err := s.hashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		Name:         trimmedOrNil(name),
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("email", msgUserExists)
		}
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))

	return s.issue(user)
}

// Login checks credentials. An unknown email and a wrong password produce
// the same error.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperror.ValidationFailed("email", msgCredentialsRequired)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up %s: %w", email, err)
	}
	if user == nil {
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	if err := s.passwords.Verify(user.PasswordHash, password); err != nil {
		if !errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Error("stored password hash is unusable",
				slog.String("userID", user.ID),
				slog.String("error", err.Error()),
			)
		}
		return nil, apperror.Unauthorized(msgInvalidCredentials)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))

	return s.issue(user)
}

// Me returns the caller's own record.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("Access token required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: msgUserNotFound}
		}
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// UpdateMe applies a partial profile update. A new password is hashed
// before it reaches the store; an email already used by another account is
// a validation error.
func (s *AuthService) UpdateMe(ctx context.Context, userID string, patch model.UserPatch) (*model.User, error) {
	var changes model.UserChanges

	if patch.Name.Set {
		changes.Name = model.Some(trimmedOrNil(patch.Name.Value))
	}

	if patch.Email.Set {
		email := normalizeEmail(patch.Email.Value)
		if email == "" {
			return nil, apperror.ValidationFailed("email", "Email cannot be empty")
		}
		changes.Email = model.Some(email)
	}

	if patch.Password.Set {
		if patch.Password.Value == "" {
			return nil, apperror.ValidationFailed("password", "Password cannot be empty")
		}
		hash, err := s.hashPassword(patch.Password.Value)
		if err != nil {
			return nil, err
		}
		changes.PasswordHash = model.Some(hash)
	}

	if changes.Empty() {
		return s.Me(ctx, userID)
	}

	user, err := s.users.Update(ctx, userID, changes)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrConflict):
			return nil, apperror.ValidationFailed("email", "Email already in use")
		case errors.Is(err, apperror.ErrNotFound):
			return nil, &apperror.AppError{Err: apperror.ErrNotFound, Message: msgUserNotFound}
		}
		return nil, fmt.Errorf("service/auth: updating user %s: %w", userID, err)
	}

	s.logger.Info("user profile updated", slog.String("userID", userID))
	return user, nil
}

// ParseToken validates a JWT and returns its claims.
func (s *AuthService) ParseToken(token string) (*auth.Claims, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	return claims, nil
}

// hashPassword reports an over-long password as a validation error; any
// other hashing failure is internal.
func (s *AuthService) hashPassword(password string) (string, error) {
	hash, err := s.passwords.Hash(password)
	switch {
	case errors.Is(err, auth.ErrPasswordTooLong):
		return "", apperror.ValidationFailed("password", "Password is too long")
	case err != nil:
		return "", fmt.Errorf("service/auth: hashing password: %w", err)
	}
	return hash, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// trimmedOrNil maps nil, "" and whitespace to nil.
func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
