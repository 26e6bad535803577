package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database"
	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/export"
	"github.com/kozaktomas/face-attend/internal/recognize"
	"github.com/kozaktomas/face-attend/internal/session"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <subject-id>",
	Short: "Run a live recognition session for a subject",
	Long: `Recognize watches the camera stream and marks attendance for every
recognized student. Each student is recorded at most once per subject
and day; repeated sightings are ignored. The CSV reports are refreshed
after every new mark. Stop with Ctrl+C.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().String("source", "", "Override camera stream URL or image directory")
	recognizeCmd.Flags().Float64("threshold", 0, "Override the acceptance distance threshold")
}

// buildSession wires a recognition session from the trained model, the
// detector and a freshly opened frame source.
func buildSession(
	ctx context.Context,
	cfg *config.Config,
	store database.Store,
	exporter *export.Exporter,
	subjectID, streamURL string,
	threshold float64,
) (*session.Session, error) {
	detector, err := detect.NewDetector(cfg.Models.Cascade(), cfg.Detection)
	if err != nil {
		return nil, err
	}

	classifier := recognize.NewClassifier(cfg.Detection.Recognizer.Neighbors)
	if err := classifier.Load(cfg.Models.Dir); err != nil {
		return nil, err
	}
	labels, err := recognize.LoadLabelDirectory(recognize.LabelsPath(cfg.Models.Dir))
	if err != nil {
		return nil, err
	}

	source, err := capture.Open(ctx, streamURL)
	if err != nil {
		return nil, err
	}

	if threshold <= 0 {
		threshold = cfg.Detection.Recognizer.Threshold
	}

	return session.New(source, detector, classifier, labels, store, exporter, subjectID, threshold), nil
}

func runRecognize(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	subjectID := args[0]

	store, closeStore, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	streamURL := mustGetString(cmd, "source")
	if streamURL == "" {
		streamURL = cfg.Camera.StreamURL
	}

	exporter := export.NewExporter(store, cfg.Export.MasterPath, cfg.Export.DailyPath)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := buildSession(ctx, cfg, store, exporter, subjectID, streamURL, mustGetFloat64(cmd, "threshold"))
	if err != nil {
		return err
	}

	fmt.Printf("Session %s: watching for subject %s (Ctrl+C to stop)\n", s.ID, subjectID)
	return s.Run(ctx)
}
