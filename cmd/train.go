package cmd

import (
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attend/internal/config"
	"github.com/kozaktomas/face-attend/internal/database/postgres"
	"github.com/kozaktomas/face-attend/internal/recognize"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Rebuild the face classifier from stored enrollment samples",
	Long: `Train loads every enrollment sample, rebuilds the nearest-neighbor
classifier and writes the model artifacts into the models directory,
replacing any previous model.`,
	RunE: runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := openPostgres(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	samples := postgres.NewSampleRepository(pool)
	identities := postgres.NewIdentityRepository(pool)

	stored, err := samples.ListSamples(cmd.Context())
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return recognize.ErrNoSamples
	}

	students, err := identities.ListStudents(cmd.Context())
	if err != nil {
		return err
	}
	names := make(map[string]string, len(students))
	for _, s := range students {
		names[s.PersonID] = s.Name
	}

	fmt.Printf("Training on %d samples...\n", len(stored))
	bar := progressbar.NewOptions(len(stored),
		progressbar.OptionSetDescription("Indexing samples"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionFullWidth(),
	)

	training := make([]recognize.TrainingSample, 0, len(stored))
	for _, s := range stored {
		name := names[s.PersonID]
		if name == "" {
			name = s.PersonID
		}
		training = append(training, recognize.TrainingSample{
			PersonID: s.PersonID,
			Name:     name,
			Vector:   s.Embedding,
		})
		_ = bar.Add(1)
	}

	classifier := recognize.NewClassifier(cfg.Detection.Recognizer.Neighbors)
	labels, err := classifier.Train(training)
	if err != nil {
		return err
	}

	if err := classifier.Save(cfg.Models.Dir); err != nil {
		return err
	}
	if err := labels.Save(recognize.LabelsPath(cfg.Models.Dir)); err != nil {
		return err
	}

	fmt.Printf("\nTrained classifier with %d samples across %d people, saved to %s\n",
		classifier.SampleCount(), labels.Len(), cfg.Models.Dir)
	return nil
}
