package capture

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DirSource replays still images from a directory in name order. It
// stands in for a camera during offline processing and tests.
type DirSource struct {
	files  []string
	next   int
	closed bool
}

// NewDirSource scans dir for jpeg and png files.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".jpg", ".jpeg", ".png":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)

	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no images in %s", ErrDeviceUnavailable, dir)
	}
	return &DirSource{files: files}, nil
}

// ReadFrame returns the next image. An unreadable file is a transient
// ErrNoFrame and is skipped on the following read. io.EOF signals the
// end of the directory.
func (s *DirSource) ReadFrame(ctx context.Context) (image.Image, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.next >= len(s.files) {
		return nil, io.EOF
	}

	path := s.files[s.next]
	s.next++

	if s.next > 1 {
		select {
		case <-time.After(interFrameDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoFrame, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrNoFrame, filepath.Base(path), err)
	}
	return img, nil
}

// Close stops the source.
func (s *DirSource) Close() error {
	s.closed = true
	return nil
}

// Open picks a source from the configured stream URL: http(s) URLs are
// MJPEG streams, anything else is treated as a local image directory.
func Open(ctx context.Context, streamURL string) (FrameSource, error) {
	if streamURL == "" {
		return nil, fmt.Errorf("%w: no camera stream configured", ErrDeviceUnavailable)
	}
	if strings.HasPrefix(streamURL, "http://") || strings.HasPrefix(streamURL, "https://") {
		return NewMJPEGSource(ctx, streamURL)
	}
	return NewDirSource(streamURL)
}
