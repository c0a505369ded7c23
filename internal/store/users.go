package store

import (
	"context"
	"errors"
	"strings"

	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
)

// Key prefixes for user and session records.
const (
	userPrefix           = "user:"
	sessionPrefix        = "session:"
	sessionByUserPrefix  = "idx:sessions:user:"  // For listing user sessions
	sessionByTokenPrefix = "idx:sessions:token:" // For refresh token lookups
)

var (
	// ErrUserNotFound is returned when a user cannot be found by ID or email.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailExists is returned when attempting to register an email that's already in use.
	ErrEmailExists = errors.New("email already in use")
	// ErrSessionNotFound is returned when a session cannot be found by ID.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired is returned when attempting to use an expired session.
	ErrSessionExpired = errors.New("session expired")
)

// normalizeEmail lowercases and trims an email for case-insensitive matching.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser stores a new user. Returns ErrEmailExists when another user
// already holds the (case-insensitive) email address.
func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if err := s.Users.Create(ctx, user.ID, user); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// GetUser retrieves a user by ID.
func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.Users.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.IsDeleted() {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email (case-insensitive).
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.Users.GetByIndex(ctx, "email", email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	if user.IsDeleted() {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateUser updates an existing user.
func (s *Store) UpdateUser(ctx context.Context, user *domain.User) error {
	if err := s.Users.Update(ctx, user.ID, user); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUserNotFound
		}
		if errors.Is(err, ErrAlreadyExists) {
			return ErrEmailExists
		}
		return err
	}
	return nil
}

// DeleteUser removes a user. Idempotent.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.Users.Delete(ctx, id)
}
