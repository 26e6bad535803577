package handlers

import (
	"context"
	"errors"
	"image"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/database/mock"
	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/recognize"
	"github.com/kozaktomas/face-attend/internal/session"
)

type emptySource struct{}

func (emptySource) ReadFrame(ctx context.Context) (image.Image, error) { return nil, io.EOF }
func (emptySource) Close() error                                       { return nil }

type noopDetector struct{}

func (noopDetector) Detect(img image.Image) []detect.Region { return nil }

type noopPredictor struct{}

func (noopPredictor) Predict(v []float32) (recognize.Prediction, error) {
	return recognize.Prediction{}, recognize.ErrModelNotReady
}

type noopResolver struct{}

func (noopResolver) Resolve(labelID int64) (recognize.Binding, bool) {
	return recognize.Binding{}, false
}

func testFactory(t *testing.T) SessionFactory {
	t.Helper()
	return func(ctx context.Context, subjectID string) (*session.Session, error) {
		s := session.New(emptySource{}, noopDetector{}, noopPredictor{}, noopResolver{},
			mock.NewMockStore(), nil, subjectID, 0.35)
		s.SetLogf(func(string, ...any) {})
		return s, nil
	}
}

func TestRecognitionStartAndStatus(t *testing.T) {
	h := NewRecognitionHandler(NewRecognitionManager(testFactory(t)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognition/start",
		strings.NewReader(`{"subject_id":"math"}`))
	h.Start(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Start status = %d, want 201: %s", rec.Code, rec.Body)
	}

	// The empty source ends the run immediately.
	deadline := time.After(2 * time.Second)
	for {
		rec = httptest.NewRecorder()
		h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/v1/recognition/status", nil))
		if strings.Contains(rec.Body.String(), `"running":false`) {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("session never finished: %s", rec.Body)
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestRecognitionSessionOutlivesStartRequest(t *testing.T) {
	started := make(chan struct{}, 1)
	var factoryCtx context.Context
	factory := func(ctx context.Context, subjectID string) (*session.Session, error) {
		factoryCtx = ctx
		s := session.New(blockingSource{started: started}, noopDetector{}, noopPredictor{},
			noopResolver{}, mock.NewMockStore(), nil, subjectID, 0.35)
		s.SetLogf(func(string, ...any) {})
		return s, nil
	}
	m := NewRecognitionManager(factory)
	h := NewRecognitionHandler(m)

	// The server cancels the request context as soon as Start responds;
	// the session and its frame source must not inherit it.
	reqCtx, cancelReq := context.WithCancel(context.Background())
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/recognition/start",
		strings.NewReader(`{"subject_id":"math"}`)).WithContext(reqCtx)
	h.Start(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Start status = %d, want 201: %s", rec.Code, rec.Body)
	}
	cancelReq()
	<-started

	select {
	case <-factoryCtx.Done():
		t.Fatal("session context died with the start request")
	case <-time.After(50 * time.Millisecond):
	}
	if status := m.Status(); status["running"] != true {
		t.Errorf("running = %v after the start request ended, want true", status["running"])
	}

	if !m.Stop() {
		t.Fatal("Stop returned false with a running session")
	}
	select {
	case <-factoryCtx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not cancel the session context")
	}
}

func TestRecognitionOnlyOneSession(t *testing.T) {
	started := make(chan struct{}, 1)
	blocking := func(ctx context.Context, subjectID string) (*session.Session, error) {
		s := session.New(blockingSource{started: started}, noopDetector{}, noopPredictor{},
			noopResolver{}, mock.NewMockStore(), nil, subjectID, 0.35)
		s.SetLogf(func(string, ...any) {})
		return s, nil
	}
	m := NewRecognitionManager(blocking)

	if _, err := m.Start("math"); err != nil {
		t.Fatalf("first Start failed: %v", err)
	}
	<-started

	if _, err := m.Start("physics"); err == nil {
		t.Error("second Start succeeded, want conflict")
	}

	if !m.Stop() {
		t.Error("Stop returned false with a running session")
	}
}

func TestRecognitionStopWithoutSession(t *testing.T) {
	h := NewRecognitionHandler(NewRecognitionManager(testFactory(t)))

	rec := httptest.NewRecorder()
	h.Stop(rec, httptest.NewRequest(http.MethodPost, "/api/v1/recognition/stop", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("Stop status = %d, want 404", rec.Code)
	}
}

func TestRecognitionFactoryFailure(t *testing.T) {
	failing := func(ctx context.Context, subjectID string) (*session.Session, error) {
		return nil, errors.New("camera offline")
	}
	m := NewRecognitionManager(failing)

	if _, err := m.Start("math"); err == nil {
		t.Fatal("Start succeeded with a failing factory")
	}
	// The manager must stay startable after a factory failure.
	status := m.Status()
	if status["running"] != false {
		t.Errorf("running = %v after factory failure, want false", status["running"])
	}
}

// blockingSource blocks until its context is cancelled.
type blockingSource struct {
	started chan struct{}
}

func (b blockingSource) ReadFrame(ctx context.Context) (image.Image, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b blockingSource) Close() error { return nil }
