package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/kozaktomas/face-attend/internal/database"
)

// SubjectsHandler manages the subject registry.
type SubjectsHandler struct {
	subjects database.SubjectStore
}

// NewSubjectsHandler creates a new subjects handler.
func NewSubjectsHandler(subjects database.SubjectStore) *SubjectsHandler {
	return &SubjectsHandler{subjects: subjects}
}

// List returns all subjects.
func (h *SubjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.subjects.List(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load subjects")
		return
	}

	type subjectResponse struct {
		SubjectID string `json:"subject_id"`
		Name      string `json:"name"`
	}
	out := make([]subjectResponse, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, subjectResponse(s))
	}
	respondJSON(w, http.StatusOK, map[string]any{"subjects": out})
}

type subjectRequest struct {
	SubjectID string `json:"subject_id"`
	Name      string `json:"name"`
}

// Upsert creates a subject or renames an existing one.
func (h *SubjectsHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req subjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.SubjectID == "" || req.Name == "" {
		respondError(w, http.StatusBadRequest, "subject_id and name are required")
		return
	}

	if err := h.subjects.Upsert(r.Context(), req.SubjectID, req.Name); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save subject")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]bool{"success": true})
}
