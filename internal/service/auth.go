package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shelfmarkapp/shelfmark-server/internal/auth"
	"github.com/shelfmarkapp/shelfmark-server/internal/domain"
	domainerrors "github.com/shelfmarkapp/shelfmark-server/internal/errors"
	"github.com/shelfmarkapp/shelfmark-server/internal/id"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
	"github.com/shelfmarkapp/shelfmark-server/internal/validation"
)

// resetTokenTTL is how long a password reset token stays valid.
const resetTokenTTL = time.Hour

// validate is the shared request validator for all services.
var validate = validation.New()

// AuthService handles registration, login, and token verification.
// Session lifecycle is delegated to SessionService.
type AuthService struct {
	store          *store.Store
	tokenService   *auth.TokenService
	sessionService *SessionService
	logger         *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	store *store.Store,
	tokenService *auth.TokenService,
	sessionService *SessionService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		store:          store,
		tokenService:   tokenService,
		sessionService: sessionService,
		logger:         logger,
	}
}

// RegisterRequest contains user registration data.
type RegisterRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=8,max=1024"`
	DisplayName string `json:"display_name" validate:"max=100"`
	ClientName  string `json:"client_name"`
	IPAddress   string `json:"-"` // Extracted from request by handler
}

// LoginRequest contains user credentials.
type LoginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	ClientName string `json:"client_name"`
	IPAddress  string `json:"-"` // Extracted from request by handler
}

// RefreshRequest contains the refresh token.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
	IPAddress    string `json:"-"` // Extracted from request by handler
}

// ResetRequest starts a password reset for an email address.
type ResetRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetConfirmRequest completes a password reset with the emailed token.
type ResetConfirmRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=1024"`
}

// AuthResponse contains authentication tokens and user data.
type AuthResponse struct {
	User *domain.User `json:"user"`
	SessionResponse
}

// sanitizeUser strips fields that must never leave the server.
func sanitizeUser(u *domain.User) *domain.User {
	clean := *u
	clean.PasswordHash = ""
	return &clean
}

// Register creates a new account and logs it in. Registration is open;
// anyone with an unused email address can sign up.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		Syncable: domain.Syncable{
			ID: userID,
		},
		Email:        req.Email,
		PasswordHash: passwordHash,
		DisplayName:  req.DisplayName,
		LastLoginAt:  time.Now(),
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.AlreadyExists("email already in use")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.ClientName, req.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User registered",
			"user_id", userID,
			"email", user.Email,
		)
	}

	return &AuthResponse{
		User:            sanitizeUser(user),
		SessionResponse: *sessionResp,
	}, nil
}

// Login authenticates a user and creates a new session.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Don't leak whether email exists
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	user.LastLoginAt = time.Now()
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		// Log but don't fail login
		if s.logger != nil {
			s.logger.Warn("Failed to update last login time",
				"user_id", user.ID,
				"error", err,
			)
		}
	}

	sessionResp, err := s.sessionService.CreateSession(ctx, user, req.ClientName, req.IPAddress)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User logged in", "user_id", user.ID)
	}

	return &AuthResponse{
		User:            sanitizeUser(user),
		SessionResponse: *sessionResp,
	}, nil
}

// RefreshTokens generates new tokens using a refresh token.
// The old refresh token is invalidated (token rotation).
func (s *AuthService) RefreshTokens(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	sessionResp, user, err := s.sessionService.RefreshSession(ctx, req.RefreshToken, req.IPAddress)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:            sanitizeUser(user),
		SessionResponse: *sessionResp,
	}, nil
}

// Logout revokes a session, invalidating its refresh token. When the
// revoked session was the user's last one, the owner's user ID is
// returned so the caller can tear down per-user resources such as the
// live shelf session; otherwise the returned ID is empty.
func (s *AuthService) Logout(ctx context.Context, sessionID string) (string, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil && !errors.Is(err, store.ErrSessionNotFound) && !errors.Is(err, store.ErrSessionExpired) {
		return "", fmt.Errorf("get session: %w", err)
	}

	if err := s.sessionService.DeleteSession(ctx, sessionID); err != nil {
		return "", err
	}

	if session == nil {
		return "", nil
	}

	remaining, err := s.sessionService.ListUserSessions(ctx, session.UserID)
	if err != nil {
		if s.logger != nil {
			s.logger.Warn("Failed to count remaining sessions after logout",
				"user_id", session.UserID,
				"error", err,
			)
		}
		return "", nil
	}
	if len(remaining) > 0 {
		return "", nil
	}

	return session.UserID, nil
}

// DeleteAccount removes a user and everything the account owns: all of
// its sessions, the bookshelf document, and the bookshelf's search index
// entries.
func (s *AuthService) DeleteAccount(ctx context.Context, userID string) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return domainerrors.NotFound("user not found")
		}
		return fmt.Errorf("get user: %w", err)
	}

	if err := s.store.DeleteAllUserSessions(ctx, userID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	if err := s.store.DeleteBookshelf(ctx, userID); err != nil {
		return fmt.Errorf("delete bookshelf: %w", err)
	}
	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Account deleted",
			"user_id", userID,
			"email", user.Email,
		)
	}

	return nil
}

// VerifyAccessToken validates a token and returns the associated user.
// Used by authentication middleware.
func (s *AuthService) VerifyAccessToken(ctx context.Context, tokenString string) (*domain.User, *auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid token: %w", err)
	}

	user, err := s.store.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, nil, errors.New("user not found")
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, claims, nil
}

// RequestPasswordReset starts a password reset flow for the email address.
// The response is identical whether or not the email exists, so the
// endpoint can't be used to probe accounts. There is no mail transport;
// the reset link is written to the server log for the operator to relay.
func (s *AuthService) RequestPasswordReset(ctx context.Context, req ResetRequest) error {
	if err := validate.Validate(req); err != nil {
		return err
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil // Same outcome as success
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	token, err := s.tokenService.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	tokenHash := auth.HashRefreshToken(token)
	expiresAt := time.Now().Add(resetTokenTTL)
	if err := s.store.CreatePasswordReset(ctx, tokenHash, user.ID, expiresAt); err != nil {
		return fmt.Errorf("store password reset: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("Password reset requested",
			"user_id", user.ID,
			"email", user.Email,
			"reset_token", token,
			"expires_at", expiresAt,
		)
	}

	return nil
}

// ConfirmPasswordReset sets a new password using a reset token.
// All of the user's sessions are revoked so stolen refresh tokens die too.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req ResetConfirmRequest) error {
	if err := validate.Validate(req); err != nil {
		return err
	}

	tokenHash := auth.HashRefreshToken(req.Token)
	reset, err := s.store.GetPasswordReset(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, store.ErrResetNotFound) || errors.Is(err, store.ErrResetExpired) {
			return domainerrors.TokenExpired("invalid or expired reset token")
		}
		return fmt.Errorf("lookup password reset: %w", err)
	}

	user, err := s.store.GetUser(ctx, reset.UserID)
	if err != nil {
		return fmt.Errorf("get user: %w", err)
	}

	passwordHash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.Touch()
	if err := s.store.UpdateUser(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}

	if err := s.store.DeletePasswordReset(ctx, tokenHash); err != nil {
		s.logger.Warn("Failed to delete used reset token", "error", err)
	}

	if err := s.store.DeleteAllUserSessions(ctx, user.ID); err != nil {
		s.logger.Warn("Failed to revoke sessions after password reset",
			"user_id", user.ID,
			"error", err,
		)
	}

	if s.logger != nil {
		s.logger.Info("Password reset completed", "user_id", user.ID)
	}

	return nil
}
