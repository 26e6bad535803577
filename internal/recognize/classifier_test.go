package recognize

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func patternVector(seed int) []float32 {
	img := image.NewGray(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*seed + y*(seed+3)) % 256)})
		}
	}
	return Vectorize(img)
}

func TestVectorizeNormalization(t *testing.T) {
	vec := patternVector(7)

	if len(vec) != PatchDim {
		t.Fatalf("vector length = %d, want %d", len(vec), PatchDim)
	}

	var sum, norm float64
	for _, v := range vec {
		sum += float64(v)
		norm += float64(v) * float64(v)
	}
	if math.Abs(sum) > 1e-2 {
		t.Errorf("vector mean not zero: sum = %f", sum)
	}
	if math.Abs(math.Sqrt(norm)-1) > 1e-3 {
		t.Errorf("vector norm = %f, want 1", math.Sqrt(norm))
	}
}

func TestVectorizeUniformPatch(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for i := range img.Pix {
		img.Pix[i] = 128
	}

	vec := Vectorize(img)
	for i, v := range vec {
		if v != 0 {
			t.Fatalf("uniform patch vector[%d] = %f, want 0", i, v)
		}
	}
}

func TestClassifierTrainAndPredict(t *testing.T) {
	samples := []TrainingSample{
		{PersonID: "s001", Name: "Alice", Vector: patternVector(3)},
		{PersonID: "s001", Name: "Alice", Vector: patternVector(3)},
		{PersonID: "s002", Name: "Bob", Vector: patternVector(11)},
		{PersonID: "s002", Name: "Bob", Vector: patternVector(11)},
	}

	c := NewClassifier(3)
	labels, err := c.Train(samples)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if labels.Len() != 2 {
		t.Fatalf("label directory size = %d, want 2", labels.Len())
	}

	pred, err := c.Predict(patternVector(3))
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	binding, ok := labels.Resolve(pred.LabelID)
	if !ok {
		t.Fatalf("label %d not in directory", pred.LabelID)
	}
	if binding.PersonID != "s001" {
		t.Errorf("predicted person = %s, want s001", binding.PersonID)
	}
	if pred.Distance > 1e-6 {
		t.Errorf("exact match distance = %f, want ~0", pred.Distance)
	}
}

func TestClassifierStableLabelAssignment(t *testing.T) {
	samples := []TrainingSample{
		{PersonID: "s002", Name: "Bob", Vector: patternVector(11)},
		{PersonID: "s001", Name: "Alice", Vector: patternVector(3)},
	}

	labels, err := NewClassifier(1).Train(samples)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}

	// Labels follow sorted person-id order regardless of sample order.
	if b, _ := labels.Resolve(0); b.PersonID != "s001" {
		t.Errorf("label 0 = %s, want s001", b.PersonID)
	}
	if b, _ := labels.Resolve(1); b.PersonID != "s002" {
		t.Errorf("label 1 = %s, want s002", b.PersonID)
	}
}

func TestClassifierTrainEmpty(t *testing.T) {
	_, err := NewClassifier(3).Train(nil)
	if !errors.Is(err, ErrNoSamples) {
		t.Errorf("Train(nil) error = %v, want ErrNoSamples", err)
	}
}

func TestClassifierPredictUntrained(t *testing.T) {
	_, err := NewClassifier(3).Predict(patternVector(5))
	if !errors.Is(err, ErrModelNotReady) {
		t.Errorf("Predict error = %v, want ErrModelNotReady", err)
	}
}

func TestClassifierSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	samples := []TrainingSample{
		{PersonID: "s001", Name: "Alice", Vector: patternVector(3)},
		{PersonID: "s002", Name: "Bob", Vector: patternVector(11)},
	}
	c := NewClassifier(1)
	labels, err := c.Train(samples)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if err := c.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := labels.Save(LabelsPath(dir)); err != nil {
		t.Fatalf("label save failed: %v", err)
	}

	loaded := NewClassifier(1)
	if err := loaded.Load(dir); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	loadedLabels, err := LoadLabelDirectory(LabelsPath(dir))
	if err != nil {
		t.Fatalf("label load failed: %v", err)
	}

	pred, err := loaded.Predict(patternVector(11))
	if err != nil {
		t.Fatalf("Predict after load failed: %v", err)
	}
	if b, _ := loadedLabels.Resolve(pred.LabelID); b.PersonID != "s002" {
		t.Errorf("predicted person = %s, want s002", b.PersonID)
	}
}

func TestClassifierLoadMissing(t *testing.T) {
	err := NewClassifier(1).Load(t.TempDir())
	if !errors.Is(err, ErrModelMissing) {
		t.Errorf("Load error = %v, want ErrModelMissing", err)
	}
}

func TestClassifierLoadMissingNodeLabels(t *testing.T) {
	dir := t.TempDir()

	c := NewClassifier(1)
	if _, err := c.Train([]TrainingSample{
		{PersonID: "s001", Name: "Alice", Vector: patternVector(3)},
	}); err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if err := c.Save(dir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, nodesFile)); err != nil {
		t.Fatal(err)
	}

	if err := NewClassifier(1).Load(dir); !errors.Is(err, ErrModelMissing) {
		t.Errorf("Load without node labels = %v, want ErrModelMissing", err)
	}
}

func TestLoadLabelDirectoryMissing(t *testing.T) {
	_, err := LoadLabelDirectory(LabelsPath(t.TempDir()))
	if !errors.Is(err, ErrModelMissing) {
		t.Errorf("LoadLabelDirectory error = %v, want ErrModelMissing", err)
	}
}

func TestLabelDirectoryResolveUnknown(t *testing.T) {
	d := NewLabelDirectory()
	d.Bind(0, "s001", "Alice")

	if _, ok := d.Resolve(99); ok {
		t.Error("unknown label resolved, want miss")
	}
}

func TestCosineDistance(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}

	if d := cosineDistance(a, a); math.Abs(d) > 1e-9 {
		t.Errorf("distance to self = %f, want 0", d)
	}
	if d := cosineDistance(a, b); math.Abs(d-1) > 1e-9 {
		t.Errorf("orthogonal distance = %f, want 1", d)
	}
	if d := cosineDistance([]float32{0, 0}, a[:2]); d != 1 {
		t.Errorf("zero vector distance = %f, want 1", d)
	}
}
