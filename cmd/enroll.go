package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/capture"
	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database/postgres"
	"github.com/kozaktomas/face-attend/internal/detect"
	"github.com/kozaktomas/face-attend/internal/recognize"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <person-id>",
	Short: "Capture enrollment face samples for a student",
	Long: `Enroll reads frames from the configured camera (or image directory),
detects the dominant face in each frame and stores its normalized patch
vector. Run train afterwards to rebuild the classifier.`,
	Args: cobra.ExactArgs(1),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("samples", 20, "Number of face samples to capture")
	enrollCmd.Flags().String("source", "", "Override camera stream URL or image directory")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	personID := args[0]
	wanted := mustGetInt(cmd, "samples")

	pool, err := openPostgres(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	identities := postgres.NewIdentityRepository(pool)
	identity, err := identities.Get(cmd.Context(), personID)
	if err != nil {
		return err
	}
	if identity == nil {
		return fmt.Errorf("unknown person %s, register with 'students add' first", personID)
	}

	detector, err := detect.NewDetector(cfg.Models.Cascade(), cfg.Detection)
	if err != nil {
		return err
	}

	streamURL := mustGetString(cmd, "source")
	if streamURL == "" {
		streamURL = cfg.Camera.StreamURL
	}
	source, err := capture.Open(cmd.Context(), streamURL)
	if err != nil {
		return err
	}
	defer source.Close()

	samples := postgres.NewSampleRepository(pool)

	fmt.Printf("Enrolling %s (%s), capturing %d samples...\n", identity.Name, personID, wanted)
	bar := progressbar.NewOptions(wanted,
		progressbar.OptionSetDescription("Capturing samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	// Frames almost identical to the previous accepted one are skipped
	// so the sample set covers varied poses.
	const diversityThreshold = 4
	var lastHash uint64
	haveLast := false

	captured := 0
	for captured < wanted {
		frame, err := source.ReadFrame(cmd.Context())
		switch {
		case err == nil:
		case errors.Is(err, capture.ErrNoFrame):
			continue
		case errors.Is(err, io.EOF):
			return fmt.Errorf("source exhausted after %d of %d samples", captured, wanted)
		case errors.Is(err, context.Canceled):
			return nil
		default:
			return err
		}

		hash := capture.FrameHash(frame)
		if haveLast && capture.Similar(hash, lastHash, diversityThreshold) {
			continue
		}

		region, ok := detect.LargestRegion(detector.Detect(frame))
		if !ok {
			continue
		}
		lastHash, haveLast = hash, true

		vector := recognize.Vectorize(detect.Crop(frame, region))
		if err := samples.SaveSample(cmd.Context(), personID, vector); err != nil {
			return err
		}
		captured++
		_ = bar.Add(1)
	}

	total, err := samples.CountByPerson(cmd.Context(), personID)
	if err != nil {
		return err
	}
	fmt.Printf("\nDone. %s now has %d stored samples. Run 'face-attend train' to rebuild the classifier.\n",
		identity.Name, total)
	return nil
}
