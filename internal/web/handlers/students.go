package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

// StudentsHandler manages student identities.
type StudentsHandler struct {
	store database.Store
}

// NewStudentsHandler creates a new students handler.
func NewStudentsHandler(store database.Store) *StudentsHandler {
	return &StudentsHandler{store: store}
}

// List returns all registered students.
func (h *StudentsHandler) List(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.ListStudents(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load students")
		return
	}

	type studentResponse struct {
		PersonID string `json:"person_id"`
		Name     string `json:"name"`
	}
	out := make([]studentResponse, 0, len(students))
	for _, s := range students {
		out = append(out, studentResponse{PersonID: s.PersonID, Name: s.Name})
	}
	respondJSON(w, http.StatusOK, map[string]any{"students": out})
}

type studentRequest struct {
	PersonID string `json:"person_id"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Upsert registers a student or updates their name. A missing password
// on a new student falls back to the default.
func (h *StudentsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req studentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.PersonID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "person_id and name are required")
		return
	}

	password := req.Password
	if password == "" {
		password = database.DefaultStudentPassword
	}

	if err := h.store.UpsertStudent(r.Context(), req.PersonID, req.Name, database.HashPassword(password)); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save student")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

// Summary returns the per-subject attendance counts of the logged-in
// student.
func (h *StudentsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.store.Summary(r.Context(), session.PersonID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}

	type countResponse struct {
		SubjectID   string `json:"subject_id"`
		SubjectName string `json:"subject_name"`
		Count       int    `json:"count"`
	}
	out := make([]countResponse, 0, len(summary))
	for _, c := range summary {
		out = append(out, countResponse(c))
	}
	respondJSON(w, http.StatusOK, map[string]any{"summary": out})
}
