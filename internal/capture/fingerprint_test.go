package capture

import (
	"image"
	"image/color"
	"testing"
)

func gradientFrame(offset int) image.Image {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*4 + offset) % 256)})
		}
	}
	return img
}

func TestFrameHashStable(t *testing.T) {
	a := FrameHash(gradientFrame(0))
	b := FrameHash(gradientFrame(0))
	if a != b {
		t.Errorf("same frame hashed differently: %016x vs %016x", a, b)
	}
}

func TestFrameHashIdenticalFramesSimilar(t *testing.T) {
	a := FrameHash(gradientFrame(0))
	b := FrameHash(gradientFrame(1)) // barely shifted

	if !Similar(a, b, 4) {
		t.Errorf("near-identical frames not similar: distance = %d", HammingDistance(a, b))
	}
}

func TestFrameHashDifferentFramesDiffer(t *testing.T) {
	// A horizontal gradient against a vertical one.
	vertical := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			vertical.SetGray(x, y, color.Gray{Y: uint8(y * 4 % 256)})
		}
	}

	a := FrameHash(gradientFrame(0))
	b := FrameHash(vertical)
	if Similar(a, b, 4) {
		t.Errorf("unrelated frames similar: distance = %d", HammingDistance(a, b))
	}
}

func TestHammingDistance(t *testing.T) {
	tests := []struct {
		a, b uint64
		want int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0xFFFFFFFFFFFFFFFF, 0, 64},
		{0b1010, 0b0101, 4},
	}
	for _, tt := range tests {
		if got := HammingDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("HammingDistance(%x, %x) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
