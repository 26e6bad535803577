package recognize

import "errors"

var (
	// ErrModelMissing means no trained classifier artifact exists on disk.
	ErrModelMissing = errors.New("classifier model not found, run train first")

	// ErrModelNotReady means the classifier has not been trained or loaded.
	ErrModelNotReady = errors.New("classifier not trained")

	// ErrNoSamples means training was requested with an empty sample set.
	ErrNoSamples = errors.New("no enrollment samples to train on")
)
