package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/export"
	"github.com/kozaktomas/face-attend/internal/importer"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

const defaultListLimit = 100

// AttendanceHandler exposes the ledger over HTTP.
type AttendanceHandler struct {
	store    database.Store
	exporter *export.Exporter
}

// NewAttendanceHandler creates a new attendance handler.
func NewAttendanceHandler(store database.Store, exporter *export.Exporter) *AttendanceHandler {
	return &AttendanceHandler{store: store, exporter: exporter}
}

type factResponse struct {
	ID          int64  `json:"id"`
	PersonID    string `json:"person_id"`
	PersonName  string `json:"person_name"`
	SubjectID   string `json:"subject_id"`
	SubjectName string `json:"subject_name"`
	Timestamp   string `json:"timestamp"`
	Day         string `json:"day"`
}

func toFactResponse(facts []database.FactDetail) []factResponse {
	out := make([]factResponse, 0, len(facts))
	for _, f := range facts {
		out = append(out, factResponse{
			ID:          f.ID,
			PersonID:    f.PersonID,
			PersonName:  f.PersonName,
			SubjectID:   f.SubjectID,
			SubjectName: f.SubjectName,
			Timestamp:   f.Timestamp.UTC().Format(time.RFC3339),
			Day:         f.Day.Format("2006-01-02"),
		})
	}
	return out
}

// List returns attendance facts. Students only see their own; admins
// may filter by person_id or fetch recent facts.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var (
		facts []database.FactDetail
		err   error
	)
	switch {
	case !session.IsAdmin():
		facts, err = h.store.ListByPerson(r.Context(), session.PersonID)
	case r.URL.Query().Get("person_id") != "":
		facts, err = h.store.ListByPerson(r.Context(), r.URL.Query().Get("person_id"))
	default:
		limit := defaultListLimit
		if s := r.URL.Query().Get("limit"); s != "" {
			if n, convErr := strconv.Atoi(s); convErr == nil && n > 0 {
				limit = n
			}
		}
		facts, err = h.store.ListRecent(r.Context(), limit)
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load attendance")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"attendance": toFactResponse(facts),
		"count":      len(facts),
	})
}

type addRequest struct {
	PersonID  string `json:"person_id"`
	SubjectID string `json:"subject_id"`
	Day       string `json:"day"` // YYYY-MM-DD, today when empty
}

// Add records a manual attendance entry. Duplicates come back as
// outcome "rejected" with the stored fact.
func (h *AttendanceHandler) Add(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.PersonID == "" || req.SubjectID == "" {
		respondError(w, http.StatusBadRequest, "person_id and subject_id are required")
		return
	}

	day := time.Now()
	if req.Day != "" {
		parsed, err := time.Parse("2006-01-02", req.Day)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("unparseable day %q", sanitizeForLog(req.Day)))
			return
		}
		day = parsed
	}

	result, err := h.store.AddManual(r.Context(), req.PersonID, req.SubjectID, day)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to record attendance")
		return
	}
	if result.Created() {
		h.refreshExports(r)
	}

	status := http.StatusCreated
	if !result.Created() {
		status = http.StatusConflict
	}
	respondJSON(w, status, map[string]any{
		"outcome":   result.Outcome,
		"fact_id":   result.Fact.ID,
		"timestamp": result.Fact.Timestamp.UTC().Format(time.RFC3339),
	})
}

// Absent removes an attendance fact, the correction path for a wrong
// recognition.
func (h *AttendanceHandler) Absent(w http.ResponseWriter, r *http.Request) {
	factID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid attendance id")
		return
	}

	if err := h.store.Remove(r.Context(), factID); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.refreshExports(r)
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Import accepts a CSV upload of historical attendance.
func (h *AttendanceHandler) Import(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "missing file upload")
		return
	}
	defer file.Close()

	imp := importer.New(h.store, h.store)
	report, err := imp.Import(r.Context(), file)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "import failed")
		return
	}
	if report.Success > 0 {
		h.refreshExports(r)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":    report.Success,
		"duplicates": report.Duplicates,
		"errors":     report.Errors,
	})
}

// Export rewrites the CSV reports on demand.
func (h *AttendanceHandler) Export(w http.ResponseWriter, r *http.Request) {
	if err := h.exporter.ExportAll(r.Context()); err != nil {
		respondError(w, http.StatusInternalServerError, "export failed")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Stats returns per-person, per-subject statistics. Students get their
// own numbers; admins may pass person_id or omit it for everyone.
func (h *AttendanceHandler) Stats(w http.ResponseWriter, r *http.Request) {
	session := middleware.GetSessionFromContext(r.Context())
	if session == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	personID := r.URL.Query().Get("person_id")
	if !session.IsAdmin() {
		personID = session.PersonID
	}

	stats, err := h.store.Stats(r.Context(), personID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to load statistics")
		return
	}

	type statResponse struct {
		PersonID    string `json:"person_id"`
		PersonName  string `json:"person_name"`
		SubjectID   string `json:"subject_id"`
		SubjectName string `json:"subject_name"`
		PresentDays int    `json:"present_days"`
		TotalDays   int    `json:"total_days"`
	}
	out := make([]statResponse, 0, len(stats))
	for _, s := range stats {
		out = append(out, statResponse(s))
	}
	respondJSON(w, http.StatusOK, map[string]any{"stats": out})
}

// refreshExports rewrites the reports after a ledger change. Failures
// are logged by the exporter path itself and never fail the request.
func (h *AttendanceHandler) refreshExports(r *http.Request) {
	if h.exporter == nil {
		return
	}
	if err := h.exporter.ExportAll(r.Context()); err != nil {
		fmt.Printf("Attendance: export refresh failed: %v\n", err)
	}
}
