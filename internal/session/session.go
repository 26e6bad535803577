// Package session runs the live recognition loop: read a frame, find
// faces, classify each one, and write accepted matches to the
// attendance ledger.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/recognize"
)

// maxConsecutiveMisses bounds how long the loop tolerates back-to-back
// frame failures before treating the device as gone.
const maxConsecutiveMisses = 25

// FaceFinder locates face regions in a frame.
type FaceFinder interface {
	Detect(img image.Image) []detect.Region
}

// Predictor classifies a patch vector.
type Predictor interface {
	Predict(vector []float32) (recognize.Prediction, error)
}

// Resolver maps a classifier label to an enrolled person.
type Resolver interface {
	Resolve(labelID int64) (recognize.Binding, bool)
}

// Marker writes attendance facts. Satisfied by database.Ledger.
type Marker interface {
	Mark(ctx context.Context, personID, subjectID string, day time.Time) (database.MarkResult, error)
}

// Exporter refreshes the CSV reports after a successful mark.
type Exporter interface {
	ExportAll(ctx context.Context) error
}

// Event describes one processed frame for observers (console output,
// the web live view).
type Event struct {
	Region   detect.Region
	Label    string // display name, or "Unknown"
	Distance float64
	Accepted bool
	Outcome  database.MarkOutcome // zero value when not accepted
}

// Session is one recognition run bound to a subject. Every accepted
// match becomes a Mark call; duplicates within a day are absorbed by
// the ledger, so leaving a session running all lesson is harmless.
type Session struct {
	ID        string
	SubjectID string

	source     capture.FrameSource
	detector   FaceFinder
	classifier Predictor
	labels     Resolver
	ledger     Marker
	exporter   Exporter
	threshold  float64

	// Observer, when set, receives one event per detected face.
	Observer func(Event)

	logf func(format string, args ...any)
}

// New creates a session over an opened frame source. threshold is the
// maximum cosine distance an accepted match may have.
func New(
	source capture.FrameSource,
	detector FaceFinder,
	classifier Predictor,
	labels Resolver,
	ledger Marker,
	exporter Exporter,
	subjectID string,
	threshold float64,
) *Session {
	return &Session{
		ID:         uuid.New().String(),
		SubjectID:  subjectID,
		source:     source,
		detector:   detector,
		classifier: classifier,
		labels:     labels,
		ledger:     ledger,
		exporter:   exporter,
		threshold:  threshold,
		logf: func(format string, args ...any) {
			fmt.Printf(format+"\n", args...)
		},
	}
}

// SetLogf overrides the session log sink.
func (s *Session) SetLogf(logf func(format string, args ...any)) {
	if logf != nil {
		s.logf = logf
	}
}

// Run processes frames until the context is cancelled, the source is
// exhausted, or the device fails. Per-frame problems are skipped; only
// setup and device failures end the run with an error.
func (s *Session) Run(ctx context.Context) error {
	misses := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		frame, err := s.source.ReadFrame(ctx)
		switch {
		case err == nil:
			misses = 0
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return nil
		case errors.Is(err, io.EOF), errors.Is(err, capture.ErrClosed):
			return nil
		case errors.Is(err, capture.ErrDeviceUnavailable):
			return err
		case errors.Is(err, capture.ErrNoFrame):
			misses++
			if misses >= maxConsecutiveMisses {
				return fmt.Errorf("%w: %d consecutive frame failures", capture.ErrDeviceUnavailable, misses)
			}
			continue
		default:
			return err
		}

		s.processFrame(ctx, frame)
	}
}

// processFrame evaluates every detected face independently. Two known
// students in one frame produce two marks.
func (s *Session) processFrame(ctx context.Context, frame image.Image) {
	for _, region := range s.detector.Detect(frame) {
		s.processRegion(ctx, frame, region)
	}
}

func (s *Session) processRegion(ctx context.Context, frame image.Image, region detect.Region) {
	vector := recognize.Vectorize(detect.Crop(frame, region))
	pred, err := s.classifier.Predict(vector)
	if err != nil {
		s.logf("Session %s: prediction failed: %v", s.ID, err)
		return
	}

	event := Event{Region: region, Label: "Unknown", Distance: pred.Distance}

	binding, known := s.labels.Resolve(pred.LabelID)
	if known {
		event.Label = binding.Name
	}

	// Accept only a resolvable label within the distance threshold.
	if known && pred.Distance <= s.threshold {
		event.Accepted = true
		result, err := s.ledger.Mark(ctx, binding.PersonID, s.SubjectID, time.Now())
		if err != nil {
			s.logf("Session %s: mark failed for %s: %v", s.ID, binding.PersonID, err)
			event.Accepted = false
		} else {
			event.Outcome = result.Outcome
			if result.Created() {
				s.logf("Session %s: marked %s (%s) for %s", s.ID, binding.Name, binding.PersonID, s.SubjectID)
				if s.exporter != nil {
					// Export failures never stop the loop; the ledger
					// is authoritative and the next export catches up.
					if err := s.exporter.ExportAll(ctx); err != nil {
						s.logf("Session %s: export failed: %v", s.ID, err)
					}
				}
			}
		}
	}

	if s.Observer != nil {
		s.Observer(event)
	}
}
