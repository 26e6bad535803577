package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"testing"
	"time"

	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/database/mock"
	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/recognize"
)

// fakeSource replays a scripted sequence of frames and errors.
type fakeSource struct {
	steps []func() (image.Image, error)
	pos   int
}

func (f *fakeSource) ReadFrame(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.pos >= len(f.steps) {
		return nil, io.EOF
	}
	step := f.steps[f.pos]
	f.pos++
	return step()
}

func (f *fakeSource) Close() error { return nil }

func frameStep() func() (image.Image, error) {
	return func() (image.Image, error) {
		return image.NewGray(image.Rect(0, 0, 100, 100)), nil
	}
}

func missStep() func() (image.Image, error) {
	return func() (image.Image, error) { return nil, capture.ErrNoFrame }
}

// fakeDetector returns the same region for every frame.
type fakeDetector struct {
	regions []detect.Region
}

func (f *fakeDetector) Detect(img image.Image) []detect.Region { return f.regions }

// fakePredictor returns a fixed prediction.
type fakePredictor struct {
	pred recognize.Prediction
	err  error
}

func (f *fakePredictor) Predict(vector []float32) (recognize.Prediction, error) {
	return f.pred, f.err
}

// fakeResolver knows one label.
type fakeResolver struct {
	labelID  int64
	binding  recognize.Binding
	resolves bool
}

func (f *fakeResolver) Resolve(labelID int64) (recognize.Binding, bool) {
	if f.resolves && labelID == f.labelID {
		return f.binding, true
	}
	return recognize.Binding{}, false
}

// scriptedPredictor returns one prediction per call, in order.
type scriptedPredictor struct {
	preds []recognize.Prediction
	pos   int
}

func (f *scriptedPredictor) Predict(vector []float32) (recognize.Prediction, error) {
	if f.pos >= len(f.preds) {
		return recognize.Prediction{}, recognize.ErrModelNotReady
	}
	pred := f.preds[f.pos]
	f.pos++
	return pred, nil
}

// mapResolver knows a fixed set of labels.
type mapResolver struct {
	bindings map[int64]recognize.Binding
}

func (f *mapResolver) Resolve(labelID int64) (recognize.Binding, bool) {
	b, ok := f.bindings[labelID]
	return b, ok
}

// countingExporter records ExportAll calls.
type countingExporter struct {
	calls int
	err   error
}

func (c *countingExporter) ExportAll(ctx context.Context) error {
	c.calls++
	return c.err
}

func newTestStore(t *testing.T) *mock.MockStore {
	t.Helper()
	ctx := context.Background()
	store := mock.NewMockStore()
	if err := store.UpsertStudent(ctx, "s001", "Alice", "x"); err != nil {
		t.Fatal(err)
	}
	if err := store.Upsert(ctx, "math", "Mathematics"); err != nil {
		t.Fatal(err)
	}
	return store
}

func newSession(
	source capture.FrameSource,
	store *mock.MockStore,
	pred recognize.Prediction,
	resolves bool,
	exporter Exporter,
	threshold float64,
) *Session {
	s := New(
		source,
		&fakeDetector{regions: []detect.Region{{Rect: image.Rect(10, 10, 60, 60), Score: 8}}},
		&fakePredictor{pred: pred},
		&fakeResolver{labelID: pred.LabelID, binding: recognize.Binding{PersonID: "s001", Name: "Alice"}, resolves: resolves},
		store,
		exporter,
		"math",
		threshold,
	)
	s.SetLogf(func(string, ...any) {})
	return s
}

func TestSessionMarksAcceptedMatch(t *testing.T) {
	store := newTestStore(t)
	exporter := &countingExporter{}
	src := &fakeSource{steps: []func() (image.Image, error){frameStep()}}

	s := newSession(src, store, recognize.Prediction{LabelID: 0, Distance: 0.2}, true, exporter, 0.35)
	var events []Event
	s.Observer = func(e Event) { events = append(events, e) }

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	facts, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 1 {
		t.Fatalf("ledger has %d facts, want 1", len(facts))
	}
	if facts[0].PersonID != "s001" || facts[0].SubjectID != "math" {
		t.Errorf("fact = %s/%s, want s001/math", facts[0].PersonID, facts[0].SubjectID)
	}
	if exporter.calls != 1 {
		t.Errorf("exporter called %d times, want 1", exporter.calls)
	}
	if len(events) != 1 || !events[0].Accepted || events[0].Outcome != database.OutcomeCreated {
		t.Errorf("unexpected events: %+v", events)
	}
}

func TestSessionMarksEveryFaceInFrame(t *testing.T) {
	store := newTestStore(t)
	if err := store.UpsertStudent(context.Background(), "s002", "Bob", "x"); err != nil {
		t.Fatal(err)
	}
	exporter := &countingExporter{}
	src := &fakeSource{steps: []func() (image.Image, error){frameStep()}}

	s := New(
		src,
		&fakeDetector{regions: []detect.Region{
			{Rect: image.Rect(5, 5, 45, 45), Score: 9},
			{Rect: image.Rect(50, 50, 90, 90), Score: 7},
		}},
		&scriptedPredictor{preds: []recognize.Prediction{
			{LabelID: 0, Distance: 0.1},
			{LabelID: 1, Distance: 0.2},
		}},
		&mapResolver{bindings: map[int64]recognize.Binding{
			0: {PersonID: "s001", Name: "Alice"},
			1: {PersonID: "s002", Name: "Bob"},
		}},
		store,
		exporter,
		"math",
		0.35,
	)
	s.SetLogf(func(string, ...any) {})
	var events []Event
	s.Observer = func(e Event) { events = append(events, e) }

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	facts, err := store.ListAll(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(facts) != 2 {
		t.Fatalf("ledger has %d facts, want 2", len(facts))
	}
	marked := map[string]bool{}
	for _, f := range facts {
		marked[f.PersonID] = true
	}
	if !marked["s001"] || !marked["s002"] {
		t.Errorf("marked %v, want both s001 and s002", marked)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want one per face", len(events))
	}
	for _, e := range events {
		if !e.Accepted || e.Outcome != database.OutcomeCreated {
			t.Errorf("unexpected event: %+v", e)
		}
	}
	if exporter.calls != 2 {
		t.Errorf("exporter called %d times, want 2", exporter.calls)
	}
}

func TestSessionThresholdBoundary(t *testing.T) {
	tests := []struct {
		name      string
		distance  float64
		wantMarks int
	}{
		{"below threshold accepted", 0.34, 1},
		{"exactly at threshold accepted", 0.35, 1},
		{"above threshold rejected", 0.36, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newTestStore(t)
			src := &fakeSource{steps: []func() (image.Image, error){frameStep()}}
			s := newSession(src, store, recognize.Prediction{Distance: tt.distance}, true, &countingExporter{}, 0.35)

			if err := s.Run(context.Background()); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			facts, _ := store.ListAll(context.Background())
			if len(facts) != tt.wantMarks {
				t.Errorf("ledger has %d facts, want %d", len(facts), tt.wantMarks)
			}
		})
	}
}

func TestSessionUnknownLabelNeverMarks(t *testing.T) {
	store := newTestStore(t)
	exporter := &countingExporter{}
	src := &fakeSource{steps: []func() (image.Image, error){frameStep(), frameStep()}}

	// Perfect distance but the label resolves to nobody.
	s := newSession(src, store, recognize.Prediction{LabelID: 7, Distance: 0}, false, exporter, 0.35)
	var events []Event
	s.Observer = func(e Event) { events = append(events, e) }

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	facts, _ := store.ListAll(context.Background())
	if len(facts) != 0 {
		t.Fatalf("ledger has %d facts, want 0", len(facts))
	}
	if exporter.calls != 0 {
		t.Errorf("exporter called %d times, want 0", exporter.calls)
	}
	for _, e := range events {
		if e.Label != "Unknown" || e.Accepted {
			t.Errorf("unexpected event for unknown label: %+v", e)
		}
	}
}

func TestSessionDuplicateDoesNotReExport(t *testing.T) {
	store := newTestStore(t)
	exporter := &countingExporter{}
	src := &fakeSource{steps: []func() (image.Image, error){frameStep(), frameStep(), frameStep()}}

	s := newSession(src, store, recognize.Prediction{Distance: 0.1}, true, exporter, 0.35)
	var outcomes []database.MarkOutcome
	s.Observer = func(e Event) { outcomes = append(outcomes, e.Outcome) }

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	facts, _ := store.ListAll(context.Background())
	if len(facts) != 1 {
		t.Fatalf("ledger has %d facts, want 1", len(facts))
	}
	// Only the first frame created a fact; exports follow creations only.
	if exporter.calls != 1 {
		t.Errorf("exporter called %d times, want 1", exporter.calls)
	}
	want := []database.MarkOutcome{database.OutcomeCreated, database.OutcomeAlreadyMarked, database.OutcomeAlreadyMarked}
	if len(outcomes) != len(want) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(want))
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Errorf("outcome[%d] = %s, want %s", i, outcomes[i], want[i])
		}
	}
}

func TestSessionExportFailureDoesNotStopRun(t *testing.T) {
	store := newTestStore(t)
	exporter := &countingExporter{err: errors.New("disk full")}
	src := &fakeSource{steps: []func() (image.Image, error){frameStep(), frameStep()}}

	s := newSession(src, store, recognize.Prediction{Distance: 0.1}, true, exporter, 0.35)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	facts, _ := store.ListAll(context.Background())
	if len(facts) != 1 {
		t.Errorf("ledger has %d facts, want 1", len(facts))
	}
}

func TestSessionSkipsTransientMisses(t *testing.T) {
	store := newTestStore(t)
	src := &fakeSource{steps: []func() (image.Image, error){missStep(), missStep(), frameStep()}}

	s := newSession(src, store, recognize.Prediction{Distance: 0.1}, true, &countingExporter{}, 0.35)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	facts, _ := store.ListAll(context.Background())
	if len(facts) != 1 {
		t.Errorf("ledger has %d facts, want 1", len(facts))
	}
}

func TestSessionEscalatesAfterConsecutiveMisses(t *testing.T) {
	var steps []func() (image.Image, error)
	for i := 0; i < maxConsecutiveMisses+5; i++ {
		steps = append(steps, missStep())
	}
	src := &fakeSource{steps: steps}

	s := newSession(src, newTestStore(t), recognize.Prediction{}, true, &countingExporter{}, 0.35)
	err := s.Run(context.Background())
	if !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Fatalf("Run err = %v, want ErrDeviceUnavailable", err)
	}
	if src.pos != maxConsecutiveMisses {
		t.Errorf("read %d frames before giving up, want %d", src.pos, maxConsecutiveMisses)
	}
}

func TestSessionDeviceFailureIsFatal(t *testing.T) {
	src := &fakeSource{steps: []func() (image.Image, error){
		func() (image.Image, error) { return nil, fmt.Errorf("%w: unplugged", capture.ErrDeviceUnavailable) },
	}}

	s := newSession(src, newTestStore(t), recognize.Prediction{}, true, &countingExporter{}, 0.35)
	if err := s.Run(context.Background()); !errors.Is(err, capture.ErrDeviceUnavailable) {
		t.Errorf("Run err = %v, want ErrDeviceUnavailable", err)
	}
}

func TestSessionStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &fakeSource{steps: []func() (image.Image, error){frameStep()}}
	s := newSession(src, newTestStore(t), recognize.Prediction{Distance: 0.1}, true, &countingExporter{}, 0.35)

	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run after cancel = %v, want nil", err)
	}
	if src.pos != 0 {
		t.Errorf("read %d frames after cancel, want 0", src.pos)
	}
}

func TestSessionNoFaceNoEvent(t *testing.T) {
	src := &fakeSource{steps: []func() (image.Image, error){frameStep()}}
	s := New(
		src,
		&fakeDetector{}, // no regions
		&fakePredictor{},
		&fakeResolver{},
		newTestStore(t),
		&countingExporter{},
		"math",
		0.35,
	)
	s.SetLogf(func(string, ...any) {})

	called := false
	s.Observer = func(Event) { called = true }
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if called {
		t.Error("observer called for a frame with no faces")
	}
}

func TestSessionMarkTimestampIsRecent(t *testing.T) {
	store := newTestStore(t)
	src := &fakeSource{steps: []func() (image.Image, error){frameStep()}}

	before := time.Now().UTC().Add(-time.Second)
	s := newSession(src, store, recognize.Prediction{Distance: 0.1}, true, &countingExporter{}, 0.35)
	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	facts, _ := store.ListAll(context.Background())
	if len(facts) != 1 {
		t.Fatalf("ledger has %d facts, want 1", len(facts))
	}
	if facts[0].Timestamp.Before(before) {
		t.Errorf("fact timestamp %v predates the run", facts[0].Timestamp)
	}
}
