// Package recognize turns face crops into normalized patch vectors and
// classifies them against enrolled samples with a nearest-neighbor graph.
package recognize

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// PatchSize is the side length faces are resized to before vectorization.
const PatchSize = 64

// PatchDim is the length of a patch vector.
const PatchDim = PatchSize * PatchSize

// Vectorize resizes a face crop to PatchSize x PatchSize, converts it to
// grayscale and returns a zero-mean, unit-norm float32 vector. Lighting
// differences between frames mostly cancel out under this normalization.
func Vectorize(face image.Image) []float32 {
	patch := image.NewGray(image.Rect(0, 0, PatchSize, PatchSize))
	draw.BiLinear.Scale(patch, patch.Bounds(), face, face.Bounds(), draw.Src, nil)

	vec := make([]float32, PatchDim)
	var sum float64
	for i, p := range patch.Pix {
		vec[i] = float32(p)
		sum += float64(p)
	}

	mean := float32(sum / float64(PatchDim))
	var norm float64
	for i := range vec {
		vec[i] -= mean
		norm += float64(vec[i]) * float64(vec[i])
	}

	norm = math.Sqrt(norm)
	if norm == 0 {
		// Uniform patch. Keep the zero vector rather than dividing by zero.
		return vec
	}
	for i := range vec {
		vec[i] /= float32(norm)
	}
	return vec
}
