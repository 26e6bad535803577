package detect

import (
	"image"
	"image/draw"
)

// LargestRegion picks the region with the largest pixel area. Ties keep
// the earliest region in scan order. Returns false for an empty slice.
func LargestRegion(regions []Region) (Region, bool) {
	if len(regions) == 0 {
		return Region{}, false
	}

	best := regions[0]
	for _, r := range regions[1:] {
		if r.Area() > best.Area() {
			best = r
		}
	}
	return best, true
}

// Crop extracts the region from the frame as a grayscale image. The
// region is clamped to the frame bounds first.
func Crop(frame image.Image, r Region) *image.Gray {
	rect := r.Rect.Intersect(frame.Bounds())
	out := image.NewGray(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), frame, rect.Min, draw.Src)
	return out
}
