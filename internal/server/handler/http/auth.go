// Package http provides the HTTP API of the dashboard: the credential gate,
// the role dashboards and meeting creation.
package http

import (
	"context"
	"net/http"

	"github.com/atinyakov/rccdash/internal/middleware"
	"github.com/atinyakov/rccdash/internal/service"
	"github.com/atinyakov/rccdash/internal/session"
)

// AuthService defines the credential operations required by AuthHandler.
type AuthService interface {
	Login(ctx context.Context, req service.LoginRequest) (session.Session, error)
	Signup(ctx context.Context, req service.SignupRequest) (service.SignupResult, error)
	ForgotPassword(ctx context.Context, role, id string) (string, error)
	ChangePassword(ctx context.Context, req service.ChangePasswordRequest) error
	Logout()
}

// AuthHandler handles login, logout and credential maintenance.
type AuthHandler struct {
	AuthService AuthService
	// Banner supplies the message shown when no session is active.
	Banner interface{ Message() string }
}

// SessionResponse describes the current session state.
type SessionResponse struct {
	Active  bool             `json:"active"`
	Session *session.Session `json:"session,omitempty"`
	Message string           `json:"message,omitempty"`
}

// Login handles POST /api/login and returns the new session. Its id must be
// sent in the X-Session-ID header on later requests.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	s, err := h.AuthService.Login(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SessionResponse{Active: true, Session: &s})
}

// Logout handles POST /api/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.AuthService.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/session. Without an active session it reports
// the banner, e.g. the expiry notice.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	if s, ok := middleware.GetSessionFromContext(r.Context()); ok {
		writeJSON(w, http.StatusOK, SessionResponse{Active: true, Session: &s})
		return
	}
	resp := SessionResponse{}
	if h.Banner != nil {
		resp.Message = h.Banner.Message()
	}
	writeJSON(w, http.StatusOK, resp)
}

// Signup handles POST /api/signup.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.AuthService.Signup(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// ForgotPassword handles POST /api/password/forgot.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role string `json:"role"`
		ID   string `json:"id"`
	}
	if !decode(w, r, &req) {
		return
	}
	pw, err := h.AuthService.ForgotPassword(r.Context(), req.Role, req.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"password": pw,
		"message":  service.PasswordResetMessage(pw),
	})
}

// ChangePassword handles POST /api/password/change.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req service.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.AuthService.ChangePassword(r.Context(), req); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": service.PasswordUpdatedMessage})
}
