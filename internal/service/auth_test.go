package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmarkapp/shelfmark-server/internal/auth"
	domainerrors "github.com/shelfmarkapp/shelfmark-server/internal/errors"
	"github.com/shelfmarkapp/shelfmark-server/internal/store"
)

const testKeyHex = "0000000000000000000000000000000000000000000000000000000000000001"

func testAuthService(t *testing.T) (*AuthService, *store.Store) {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := store.New(t.TempDir(), logger, store.NewNoopEmitter())
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tokenService, err := auth.NewTokenService(testKeyHex, 15*time.Minute, 720*time.Hour)
	require.NoError(t, err)

	sessionService := NewSessionService(st, tokenService, logger)
	return NewAuthService(st, tokenService, sessionService, logger), st
}

func registerTestUser(t *testing.T, svc *AuthService) *AuthResponse {
	t.Helper()

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:       "reader@example.com",
		Password:    "correct horse battery",
		DisplayName: "Reader",
	})
	require.NoError(t, err)
	return resp
}

func TestAuthService_Register_ReturnsTokens(t *testing.T) {
	svc, _ := testAuthService(t)

	resp := registerTestUser(t, svc)

	assert.NotEmpty(t, resp.User.ID)
	assert.True(t, strings.HasPrefix(resp.User.ID, "user-"))
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, int((15 * time.Minute).Seconds()), resp.ExpiresIn)
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	svc, _ := testAuthService(t)
	registerTestUser(t, svc)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "Reader@Example.com", // Same address, different case
		Password: "another password",
	})
	assert.ErrorIs(t, err, domainerrors.ErrAlreadyExists)
}

func TestAuthService_Register_RejectsShortPassword(t *testing.T) {
	svc, _ := testAuthService(t)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "reader@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestAuthService_Login_Succeeds(t *testing.T) {
	svc, _ := testAuthService(t)
	registerTestUser(t, svc)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    "reader@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	svc, _ := testAuthService(t)
	registerTestUser(t, svc)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "reader@example.com",
		Password: "wrong password entirely",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmailSameError(t *testing.T) {
	svc, _ := testAuthService(t)

	// Unknown email yields the same error as a wrong password.
	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "whatever it takes",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)
}

func TestAuthService_RefreshTokens_RotatesRefreshToken(t *testing.T) {
	svc, _ := testAuthService(t)
	registered := registerTestUser(t, svc)

	refreshed, err := svc.RefreshTokens(context.Background(), RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	require.NoError(t, err)
	assert.NotEqual(t, registered.RefreshToken, refreshed.RefreshToken)
	assert.Equal(t, registered.SessionID, refreshed.SessionID)

	// The old refresh token is dead after rotation.
	_, err = svc.RefreshTokens(context.Background(), RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
}

func TestAuthService_Logout_InvalidatesSession(t *testing.T) {
	svc, _ := testAuthService(t)
	registered := registerTestUser(t, svc)

	_, err := svc.Logout(context.Background(), registered.SessionID)
	require.NoError(t, err)

	_, err = svc.RefreshTokens(context.Background(), RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
}

func TestAuthService_Logout_ReportsLastSession(t *testing.T) {
	svc, _ := testAuthService(t)
	ctx := context.Background()
	registered := registerTestUser(t, svc)

	second, err := svc.Login(ctx, LoginRequest{
		Email:    "reader@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)

	// One session remains, so no per-user teardown is due yet.
	lastUser, err := svc.Logout(ctx, registered.SessionID)
	require.NoError(t, err)
	assert.Empty(t, lastUser)

	// Closing the final session reports the owner.
	lastUser, err = svc.Logout(ctx, second.SessionID)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, lastUser)
}

func TestAuthService_DeleteAccount(t *testing.T) {
	svc, st := testAuthService(t)
	ctx := context.Background()
	registered := registerTestUser(t, svc)

	require.NoError(t, svc.DeleteAccount(ctx, registered.User.ID))

	// Credentials, tokens, and the user record are all gone.
	_, err := svc.Login(ctx, LoginRequest{
		Email:    "reader@example.com",
		Password: "correct horse battery",
	})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = svc.RefreshTokens(ctx, RefreshRequest{
		RefreshToken: registered.RefreshToken,
	})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)

	_, err = st.GetUser(ctx, registered.User.ID)
	assert.ErrorIs(t, err, store.ErrUserNotFound)
}

func TestAuthService_DeleteAccount_UnknownUser(t *testing.T) {
	svc, _ := testAuthService(t)

	err := svc.DeleteAccount(context.Background(), "user-missing")
	assert.ErrorIs(t, err, domainerrors.ErrNotFound)
}

func TestAuthService_VerifyAccessToken(t *testing.T) {
	svc, _ := testAuthService(t)
	registered := registerTestUser(t, svc)

	user, claims, err := svc.VerifyAccessToken(context.Background(), registered.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, user.ID)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.Equal(t, "reader@example.com", claims.Email)

	_, _, err = svc.VerifyAccessToken(context.Background(), "not-a-token")
	assert.Error(t, err)
}

func TestAuthService_PasswordReset_FullFlow(t *testing.T) {
	svc, st := testAuthService(t)
	registered := registerTestUser(t, svc)
	ctx := context.Background()

	require.NoError(t, svc.RequestPasswordReset(ctx, ResetRequest{Email: "reader@example.com"}))

	// The token only appears in the log; for the test, plant one directly.
	token, err := svc.tokenService.GenerateResetToken()
	require.NoError(t, err)
	tokenHash := auth.HashRefreshToken(token)
	require.NoError(t, st.CreatePasswordReset(ctx, tokenHash, registered.User.ID, time.Now().Add(time.Hour)))

	require.NoError(t, svc.ConfirmPasswordReset(ctx, ResetConfirmRequest{
		Token:       token,
		NewPassword: "a brand new password",
	}))

	// Old password is out, new one is in.
	_, err = svc.Login(ctx, LoginRequest{Email: "reader@example.com", Password: "correct horse battery"})
	assert.ErrorIs(t, err, domainerrors.ErrInvalidCredentials)

	_, err = svc.Login(ctx, LoginRequest{Email: "reader@example.com", Password: "a brand new password"})
	assert.NoError(t, err)

	// Existing sessions were revoked.
	_, err = svc.RefreshTokens(ctx, RefreshRequest{RefreshToken: registered.RefreshToken})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)

	// The reset token is single-use.
	err = svc.ConfirmPasswordReset(ctx, ResetConfirmRequest{
		Token:       token,
		NewPassword: "yet another password",
	})
	assert.ErrorIs(t, err, domainerrors.ErrTokenExpired)
}

func TestAuthService_RequestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	svc, _ := testAuthService(t)

	err := svc.RequestPasswordReset(context.Background(), ResetRequest{Email: "nobody@example.com"})
	assert.NoError(t, err)
}
