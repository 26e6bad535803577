package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

// QueriesHandler is the student question inbox.
type QueriesHandler struct {
	queries database.QueryStore
}

// NewQueriesHandler creates a new queries handler.
func NewQueriesHandler(queries database.QueryStore) *QueriesHandler {
	return &QueriesHandler{queries: queries}
}

// Create records a question from the logged-in student.
func (h *QueriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Text == "" {
		respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	if err := h.queries.InsertQuery(r.Context(), session.PersonID, req.Text); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to save query")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]bool{"success": true})
}

// List returns all questions for the admin inbox.
func (h *QueriesHandler) List(w http.ResponseWriter, r *http.Request) {
	queries, err := h.queries.ListQueries(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load queries")
		return
	}

	type queryResponse struct {
		ID         int64  `json:"id"`
		PersonID   string `json:"person_id"`
		PersonName string `json:"person_name"`
		Text       string `json:"text"`
		Timestamp  string `json:"timestamp"`
		Status     string `json:"status"`
	}
	out := make([]queryResponse, 0, len(queries))
	for _, q := range queries {
		out = append(out, queryResponse{
			ID:         q.ID,
			PersonID:   q.PersonID,
			PersonName: q.PersonName,
			Text:       q.Text,
			Timestamp:  q.Timestamp.UTC().Format(time.RFC3339),
			Status:     q.Status,
		})
	}
	respondJSON(w, http.StatusOK, map[string]any{"queries": out})
}

// Resolve marks a question as handled.
func (h *QueriesHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	queryID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid query id")
		return
	}

	if err := h.queries.ResolveQuery(r.Context(), queryID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
