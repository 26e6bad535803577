package detect

import (
	"image"
	"image/color"
	"testing"
)

func TestLargestRegion(t *testing.T) {
	tests := []struct {
		name    string
		regions []Region
		want    image.Rectangle
		ok      bool
	}{
		{
			name: "empty",
			ok:   false,
		},
		{
			name:    "single",
			regions: []Region{{Rect: image.Rect(0, 0, 10, 10)}},
			want:    image.Rect(0, 0, 10, 10),
			ok:      true,
		},
		{
			name: "largest wins",
			regions: []Region{
				{Rect: image.Rect(0, 0, 10, 10)},
				{Rect: image.Rect(0, 0, 30, 30)},
				{Rect: image.Rect(0, 0, 20, 20)},
			},
			want: image.Rect(0, 0, 30, 30),
			ok:   true,
		},
		{
			name: "tie keeps first in scan order",
			regions: []Region{
				{Rect: image.Rect(0, 0, 20, 20), Score: 1},
				{Rect: image.Rect(50, 50, 70, 70), Score: 9},
			},
			want: image.Rect(0, 0, 20, 20),
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := LargestRegion(tt.regions)
			if ok != tt.ok {
				t.Fatalf("LargestRegion ok = %v, want %v", ok, tt.ok)
			}
			if ok && got.Rect != tt.want {
				t.Errorf("LargestRegion = %v, want %v", got.Rect, tt.want)
			}
		})
	}
}

func TestCropClampsToFrame(t *testing.T) {
	frame := image.NewGray(image.Rect(0, 0, 100, 100))
	for y := 0; y < 100; y++ {
		for x := 0; x < 100; x++ {
			frame.SetGray(x, y, color.Gray{Y: uint8(x)})
		}
	}

	// Region sticks out past the right edge.
	crop := Crop(frame, Region{Rect: image.Rect(90, 10, 120, 40)})

	if got := crop.Bounds(); got.Dx() != 10 || got.Dy() != 30 {
		t.Fatalf("crop bounds = %v, want 10x30", got)
	}
	if got := crop.GrayAt(0, 0).Y; got != 90 {
		t.Errorf("crop origin pixel = %d, want 90", got)
	}
}

func TestRegionArea(t *testing.T) {
	r := Region{Rect: image.Rect(10, 10, 40, 30)}
	if got := r.Area(); got != 600 {
		t.Errorf("Area = %d, want 600", got)
	}
}
