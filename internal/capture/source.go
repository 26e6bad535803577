// Package capture provides frame sources for the recognition loop: a
// network MJPEG stream and a directory of still images for offline runs.
package capture

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrDeviceUnavailable means the source cannot be opened or has
	// stopped delivering frames for good. Callers treat this as fatal.
	ErrDeviceUnavailable = errors.New("capture device unavailable")

	// ErrNoFrame means one read yielded no usable frame. Transient;
	// callers skip the frame and try again.
	ErrNoFrame = errors.New("no frame available")

	// ErrClosed means the source was closed.
	ErrClosed = errors.New("capture source closed")
)

// FrameSource delivers frames one at a time. ReadFrame blocks until a
// frame arrives, the context is cancelled, or the source fails.
type FrameSource interface {
	ReadFrame(ctx context.Context) (image.Image, error)
	Close() error
}
