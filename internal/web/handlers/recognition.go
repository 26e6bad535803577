package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/face-attend/internal/session"
)

// eventHistory is how many recent recognition events the status
// endpoint reports.
const eventHistory = 20

// SessionFactory builds a ready-to-run recognition session for a
// subject. The context is the session's run context; the frame source
// must be opened under it so the session outlives the HTTP request
// that started it. Injected so the web layer stays camera-free in
// tests.
type SessionFactory func(ctx context.Context, subjectID string) (*session.Session, error)

type recognitionEvent struct {
	Label     string  `json:"label"`
	Distance  float64 `json:"distance"`
	Accepted  bool    `json:"accepted"`
	Outcome   string  `json:"outcome,omitempty"`
	Timestamp string  `json:"timestamp"`
}

// RecognitionManager owns at most one live recognition session.
type RecognitionManager struct {
	factory SessionFactory

	mu        sync.Mutex
	running   bool
	sessionID string
	subjectID string
	cancel    context.CancelFunc
	events    []recognitionEvent
	lastErr   error
}

// NewRecognitionManager creates a manager with no session running.
func NewRecognitionManager(factory SessionFactory) *RecognitionManager {
	return &RecognitionManager{factory: factory}
}

// Start launches a session for a subject. Only one session may run at
// a time. The session runs detached from any request context and stops
// via Stop or its own terminal errors.
func (m *RecognitionManager) Start(subjectID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return "", fmt.Errorf("session %s already running for %s", m.sessionID, m.subjectID)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s, err := m.factory(runCtx, subjectID)
	if err != nil {
		cancel()
		return "", err
	}

	s.Observer = func(e session.Event) {
		m.recordEvent(e)
	}

	m.running = true
	m.sessionID = s.ID
	m.subjectID = subjectID
	m.cancel = cancel
	m.events = nil
	m.lastErr = nil

	go func() {
		err := s.Run(runCtx)
		m.mu.Lock()
		m.running = false
		m.lastErr = err
		m.mu.Unlock()
		cancel()
	}()

	return s.ID, nil
}

// Stop cancels the running session, if any.
func (m *RecognitionManager) Stop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return false
	}
	m.cancel()
	return true
}

func (m *RecognitionManager) recordEvent(e session.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, recognitionEvent{
		Label:     e.Label,
		Distance:  e.Distance,
		Accepted:  e.Accepted,
		Outcome:   string(e.Outcome),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
	if len(m.events) > eventHistory {
		m.events = m.events[len(m.events)-eventHistory:]
	}
}

// Status reports the manager state and recent events.
func (m *RecognitionManager) Status() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := map[string]any{
		"running":    m.running,
		"session_id": m.sessionID,
		"subject_id": m.subjectID,
		"events":     append([]recognitionEvent(nil), m.events...),
	}
	if m.lastErr != nil {
		status["last_error"] = m.lastErr.Error()
	}
	return status
}

// RecognitionHandler exposes the manager over HTTP.
type RecognitionHandler struct {
	manager *RecognitionManager
}

// NewRecognitionHandler creates a new recognition handler.
func NewRecognitionHandler(manager *RecognitionManager) *RecognitionHandler {
	return &RecognitionHandler{manager: manager}
}

// Start begins a recognition session for a subject.
func (h *RecognitionHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubjectID string `json:"subject_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.SubjectID == "" {
		respondError(w, http.StatusBadRequest, "subject_id is required")
		return
	}

	sessionID, err := h.manager.Start(req.SubjectID)
	if err != nil {
		respondError(w, http.StatusConflict, err.Error())
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"session_id": sessionID})
}

// Stop ends the running session.
func (h *RecognitionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.manager.Stop() {
		respondError(w, http.StatusNotFound, "no session running")
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Status reports the current session state.
func (h *RecognitionHandler) Status(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.manager.Status())
}
