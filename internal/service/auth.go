// Package service orchestrates the business operations behind the HTTP
// handlers: account lifecycle and catalog management.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/osvitahub/backend/internal/model"
	"github.com/osvitahub/backend/internal/password"
	"github.com/osvitahub/backend/internal/session"
	"github.com/osvitahub/backend/internal/store"
	"github.com/osvitahub/backend/internal/token"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// the login endpoint cannot be used to enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDeactivated is returned for logins against inactive accounts.
	ErrAccountDeactivated = errors.New("account is deactivated")
	// ErrEmailTaken mirrors the store conflict for handler mapping.
	ErrEmailTaken = store.ErrEmailTaken
	// ErrNotFound mirrors the store miss for handler mapping.
	ErrNotFound = store.ErrNotFound
	// ErrWrongPassword is returned when the current password check fails on
	// a password change.
	ErrWrongPassword = errors.New("current password is incorrect")
)

// UserStore is the credential store contract consumed by AuthService.
type UserStore interface {
	Create(ctx context.Context, u *model.User) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	Save(ctx context.Context, u *model.User) error
	List(ctx context.Context, page, limit int) ([]model.User, int, error)
}

// AuthService implements registration, login, logout, profile management
// and password change.
type AuthService struct {
	users    UserStore
	hasher   *password.Hasher
	issuer   *token.Issuer
	sessions *session.Registry
	logger   *slog.Logger
}

// NewAuthService wires the auth orchestration.
func NewAuthService(users UserStore, hasher *password.Hasher, issuer *token.Issuer, sessions *session.Registry, logger *slog.Logger) *AuthService {
	return &AuthService{users: users, hasher: hasher, issuer: issuer, sessions: sessions, logger: logger}
}

// RegisterInput carries validated registration fields.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Register creates an account with the default role, opens its session and
// issues a token, so a fresh registration is immediately signed in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, string, error) {
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Role:         model.RoleUser,
		IsActive:     true,
	})
	if err != nil {
		return nil, "", err
	}

	signed, err := s.issuer.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	if err := s.sessions.Open(ctx, user.ID, user.Email); err != nil {
		// The token stays unusable until a successful login opens a
		// session; failing the registration would be worse.
		s.logger.Warn("session open failed after registration", "user", user.ID, "error", err)
	}

	s.logger.Info("user registered", "email", user.Email)
	return user, signed, nil
}

// Login authenticates credentials, stamps last-login, opens the session
// record and issues a fresh token. Unknown email and wrong password are
// indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, pass string) (*model.User, string, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}

	if !user.IsActive {
		return nil, "", ErrAccountDeactivated
	}

	ok, err := s.hasher.Verify(pass, user.PasswordHash)
	if err != nil || !ok {
		return nil, "", ErrInvalidCredentials
	}

	now := time.Now()
	user.LastLogin = &now
	if err := s.users.Save(ctx, user); err != nil {
		return nil, "", err
	}

	signed, err := s.issuer.Issue(user)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	if err := s.sessions.Open(ctx, user.ID, user.Email); err != nil {
		return nil, "", err
	}

	s.logger.Info("user logged in", "email", user.Email)
	return user, signed, nil
}

// Logout closes the user's session, invalidating every outstanding token.
func (s *AuthService) Logout(ctx context.Context, userID string) error {
	if err := s.sessions.Close(ctx, userID); err != nil {
		return err
	}
	s.logger.Info("user logged out", "user", userID)
	return nil
}

// Profile returns the stored user record.
func (s *AuthService) Profile(ctx context.Context, userID string) (*model.User, error) {
	return s.users.FindByID(ctx, userID)
}

// ProfileUpdate carries the optional profile fields; nil means unchanged.
type ProfileUpdate struct {
	Email     *string
	FirstName *string
	LastName  *string
}

// UpdateProfile applies the provided fields. An email change re-checks
// uniqueness through the store's conflict error.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		user.FirstName = *upd.FirstName
	}
	if upd.LastName != nil {
		user.LastName = *upd.LastName
	}
	if upd.Email != nil && *upd.Email != user.Email {
		user.Email = *upd.Email
	}

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "user", userID)
	return user, nil
}

// ChangePassword verifies the current password, stores the new hash and
// closes the session so every previously issued token stops authenticating.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.hasher.Verify(current, user.PasswordHash)
	if err != nil || !ok {
		return ErrWrongPassword
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash
	if err := s.users.Save(ctx, user); err != nil {
		return err
	}

	if err := s.sessions.Close(ctx, userID); err != nil {
		return err
	}

	s.logger.Info("password changed", "user", userID)
	return nil
}

// ListUsers returns one page of accounts for administration.
func (s *AuthService) ListUsers(ctx context.Context, page, limit int) ([]model.User, *model.Pagination, error) {
	users, total, err := s.users.List(ctx, page, limit)
	if err != nil {
		return nil, nil, err
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	return users, model.NewPagination(page, limit, total), nil
}
