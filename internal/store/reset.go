package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const resetPrefix = "reset:"

var (
	// ErrResetNotFound is returned when a password reset token is unknown.
	ErrResetNotFound = errors.New("password reset not found")
	// ErrResetExpired is returned when a password reset token has expired.
	ErrResetExpired = errors.New("password reset expired")
)

// PasswordReset is a pending password reset request, keyed by token hash.
type PasswordReset struct {
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreatePasswordReset stores a pending reset keyed by the token hash.
// Only the hash ever touches disk; the raw token goes to the user.
func (s *Store) CreatePasswordReset(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(resetPrefix, tokenHash)
	defer releaseKey(key)

	reset := PasswordReset{
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
	if err := s.set(key, &reset); err != nil {
		return fmt.Errorf("create password reset: %w", err)
	}
	return nil
}

// GetPasswordReset looks up a pending reset by token hash.
// Expired resets are deleted and reported as ErrResetExpired.
func (s *Store) GetPasswordReset(ctx context.Context, tokenHash string) (*PasswordReset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := buildKey(resetPrefix, tokenHash)
	defer releaseKey(key)

	var reset PasswordReset
	if err := s.get(key, &reset); err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, ErrResetNotFound
		}
		return nil, fmt.Errorf("get password reset: %w", err)
	}

	if time.Now().After(reset.ExpiresAt) {
		if err := s.delete(key); err != nil {
			s.logger.Warn("failed to delete expired password reset", "error", err)
		}
		return nil, ErrResetExpired
	}

	return &reset, nil
}

// DeletePasswordReset removes a pending reset. Idempotent.
func (s *Store) DeletePasswordReset(ctx context.Context, tokenHash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	key := buildKey(resetPrefix, tokenHash)
	defer releaseKey(key)

	return s.delete(key)
}
