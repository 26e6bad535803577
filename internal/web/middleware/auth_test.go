package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSessionRoundTrip(t *testing.T) {
	sm := NewSessionManager("test-secret")

	session, err := sm.CreateSession("s001", "Alice", "student")
	if err != nil {
		t.Fatalf("CreateSession failed: %v", err)
	}

	rec := httptest.NewRecorder()
	sm.SetSessionCookie(rec, session)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}

	got := sm.GetSessionFromRequest(req)
	if got == nil {
		t.Fatal("session not found from signed cookie")
	}
	if got.PersonID != "s001" || got.Role != "student" {
		t.Errorf("session = %+v, want s001/student", got)
	}
}

func TestTamperedCookieRejected(t *testing.T) {
	sm := NewSessionManager("test-secret")
	session, err := sm.CreateSession("s001", "Alice", "student")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "face_attend_session", Value: session.ID + ".forged-signature"})

	if got := sm.GetSessionFromRequest(req); got != nil {
		t.Error("tampered cookie yielded a session")
	}
}

func TestBearerTokenAuth(t *testing.T) {
	sm := NewSessionManager("test-secret")
	session, err := sm.CreateSession("admin", "Administrator", "admin")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)

	got := sm.GetSessionFromRequest(req)
	if got == nil || !got.IsAdmin() {
		t.Errorf("bearer auth session = %+v, want admin", got)
	}
}

func TestRequireAdminBlocksStudents(t *testing.T) {
	sm := NewSessionManager("test-secret")
	student, err := sm.CreateSession("s001", "Alice", "student")
	if err != nil {
		t.Fatal(err)
	}

	handler := RequireAdmin()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(SetSessionInContext(req.Context(), student))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("student request status = %d, want 403", rec.Code)
	}
}
