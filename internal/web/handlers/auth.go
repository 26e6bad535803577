package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	identities     database.IdentityStore
	sessionManager *middleware.SessionManager
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(identities database.IdentityStore, sm *middleware.SessionManager) *AuthHandler {
	return &AuthHandler{
		identities:     identities,
		sessionManager: sm,
	}
}

type loginRequest struct {
	personID string
	password string
}

func (l *loginRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("unmarshal login request: %w", err)
	}
	l.personID = raw["person_id"]
	l.password = raw["password"]
	return nil
}

// LoginResponse represents a login response.
type LoginResponse struct {
	Success   bool   `json:"success"`
	SessionID string `json:"session_id,omitempty"`
	PersonID  string `json:"person_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role,omitempty"`
	ExpiresAt string `json:"expires_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Login validates credentials and issues a session.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.personID == "" || req.password == "" {
		respondError(w, http.StatusBadRequest, "person_id and password are required")
		return
	}

	identity, err := h.identities.Get(r.Context(), req.personID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "login failed")
		return
	}
	if identity == nil || !database.VerifyPassword(identity.PasswordHash, req.password) {
		respondJSON(w, http.StatusUnauthorized, LoginResponse{Success: false, Error: "invalid credentials"})
		return
	}

	session, err := h.sessionManager.CreateSession(identity.PersonID, identity.Name, identity.Role)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	h.sessionManager.SetSessionCookie(w, session)

	respondJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: session.ID,
		PersonID:  session.PersonID,
		Name:      session.Name,
		Role:      session.Role,
		ExpiresAt: session.ExpiresAt.Format(time.RFC3339),
	})
}

// Logout destroys the current session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessionManager.GetSessionFromRequest(r); session != nil {
		h.sessionManager.DeleteSession(session.ID)
	}
	h.sessionManager.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Status reports whether the caller has a valid session.
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := h.sessionManager.GetSessionFromRequest(r)
	if session == nil {
		respondJSON(w, http.StatusOK, map[string]bool{"authenticated": false})
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"person_id":     session.PersonID,
		"name":          session.Name,
		"role":          session.Role,
		"expires_at":    session.ExpiresAt.Format(time.RFC3339),
	})
}
