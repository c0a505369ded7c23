package api

import (
	"encoding/json"
	"net/http"

	"github.com/shelfmarkapp/shelfmark-server/internal/http/response"
	"github.com/shelfmarkapp/shelfmark-server/internal/service"
)

// decode reads a JSON request body into dst.
func decode(r *http.Request, dst any) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// handleRegister creates a new account and returns its first session.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.IPAddress = clientIP(r)

	resp, err := s.authService.Register(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, resp, s.logger)
}

// handleLogin authenticates a user and returns tokens.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.IPAddress = clientIP(r)

	resp, err := s.authService.Login(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// handleRefresh exchanges a refresh token for new tokens.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req service.RefreshRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	req.IPAddress = clientIP(r)

	resp, err := s.authService.RefreshTokens(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, resp, s.logger)
}

// logoutRequest is the request body for logout.
type logoutRequest struct {
	SessionID string `json:"session_id"`
}

// handleLogout revokes a session. When it was the user's last one, the
// live shelf session is flushed and discarded with it, cancelling its
// store watch so no write can linger past sign-out.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}
	if req.SessionID == "" {
		response.BadRequest(w, "session_id is required", s.logger)
		return
	}

	lastUser, err := s.authService.Logout(r.Context(), req.SessionID)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}
	if lastUser != "" {
		s.shelfService.CloseSession(lastUser)
	}

	response.NoContent(w)
}

// handleDeleteAccount removes the authenticated user's account, along
// with their sessions, bookshelf document, and search index entries.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID := getUserID(r.Context())

	// Stop the live shelf session first so a pending flush cannot
	// recreate the bookshelf document after it is deleted.
	s.shelfService.CloseSession(userID)

	if err := s.authService.DeleteAccount(r.Context(), userID); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}

// handleResetRequest starts a password reset flow.
// Always succeeds so the endpoint can't be used to probe for accounts.
func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req service.ResetRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.authService.RequestPasswordReset(r.Context(), req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{
		"message": "If that email is registered, a reset link has been issued.",
	}, s.logger)
}

// handleResetConfirm completes a password reset with the issued token.
func (s *Server) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req service.ResetConfirmRequest
	if err := decode(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	if err := s.authService.ConfirmPasswordReset(r.Context(), req); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Success(w, map[string]string{
		"message": "Password updated. Please log in again.",
	}, s.logger)
}
