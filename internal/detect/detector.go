// Package detect locates face regions in frames using the pigo cascade
// classifier.
package detect

import (
	"fmt"
	"image"
	"os"

	pigo "github.com/esimov/pigo/core"

	"github.com/kozaktomas/face-attend/internal/config"
)

// Region is one detected face with its detection score.
type Region struct {
	Rect  image.Rectangle
	Score float32
}

// Area returns the pixel area of the region.
func (r Region) Area() int {
	return r.Rect.Dx() * r.Rect.Dy()
}

// Detector wraps a pigo cascade classifier with fixed scan parameters.
type Detector struct {
	classifier *pigo.Pigo
	cfg        config.DetectionConfig
}

// NewDetector loads the facefinder cascade from disk.
func NewDetector(cascadePath string, cfg config.DetectionConfig) (*Detector, error) {
	data, err := os.ReadFile(cascadePath)
	if err != nil {
		return nil, fmt.Errorf("read cascade %s: %w", cascadePath, err)
	}

	classifier, err := pigo.NewPigo().Unpack(data)
	if err != nil {
		return nil, fmt.Errorf("unpack cascade: %w", err)
	}

	return &Detector{classifier: classifier, cfg: cfg}, nil
}

// Detect runs the cascade over one frame and returns clustered face
// regions that pass the score threshold, in scan order.
func (d *Detector) Detect(img image.Image) []Region {
	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	bounds := src.Bounds()
	cols, rows := bounds.Dx(), bounds.Dy()

	params := pigo.CascadeParams{
		MinSize:     d.cfg.Detector.MinSize,
		MaxSize:     d.cfg.Detector.MaxSize,
		ShiftFactor: d.cfg.Detector.ShiftFactor,
		ScaleFactor: d.cfg.Detector.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, d.cfg.Detector.IoUThreshold)

	var regions []Region
	for _, det := range dets {
		if float64(det.Q) < d.cfg.Detector.ScoreThreshold {
			continue
		}
		half := det.Scale / 2
		rect := image.Rect(det.Col-half, det.Row-half, det.Col+half, det.Row+half)
		regions = append(regions, Region{Rect: rect, Score: det.Q})
	}
	return regions
}
