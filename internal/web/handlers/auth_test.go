package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/web/middleware"
)

func TestLoginSuccess(t *testing.T) {
	store := seedStore(t)
	sm := middleware.NewSessionManager("test-secret")
	h := NewAuthHandler(store, sm)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"person_id":"s001","password":"1234"}`))
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Login status = %d, want 200: %s", rec.Code, rec.Body)
	}

	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.Role != "student" || resp.SessionID == "" {
		t.Errorf("login response = %+v", resp)
	}

	if sm.GetSession(resp.SessionID) == nil {
		t.Error("session not registered with manager")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) == 0 {
		t.Error("login did not set a session cookie")
	}
}

func TestLoginDefaultAdmin(t *testing.T) {
	store := seedStore(t)
	h := NewAuthHandler(store, middleware.NewSessionManager("test-secret"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"person_id":"`+database.DefaultAdminID+`","password":"`+database.DefaultAdminPassword+`"}`))
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("admin login status = %d, want 200: %s", rec.Code, rec.Body)
	}
	var resp LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Role != "admin" {
		t.Errorf("role = %s, want admin", resp.Role)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	store := seedStore(t)
	h := NewAuthHandler(store, middleware.NewSessionManager("test-secret"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"person_id":"s001","password":"wrong"}`))
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", rec.Code)
	}
}

func TestLoginUnknownPerson(t *testing.T) {
	store := seedStore(t)
	h := NewAuthHandler(store, middleware.NewSessionManager("test-secret"))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login",
		strings.NewReader(`{"person_id":"ghost","password":"1234"}`))
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("unknown person status = %d, want 401", rec.Code)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	store := seedStore(t)
	sm := middleware.NewSessionManager("test-secret")
	h := NewAuthHandler(store, sm)

	session, err := sm.CreateSession("s001", "Alice", "student")
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+session.ID)
	h.Logout(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Logout status = %d, want 200", rec.Code)
	}
	if sm.GetSession(session.ID) != nil {
		t.Error("session survived logout")
	}
}
