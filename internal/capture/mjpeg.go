package capture

import (
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// MJPEGSource reads frames from a multipart MJPEG stream, the format
// most IP cameras expose over HTTP.
type MJPEGSource struct {
	url    string
	client *http.Client

	resp   *http.Response
	reader *multipart.Reader
	closed bool
}

// NewMJPEGSource connects to the stream and validates the content type.
// A connection failure is a device failure, not a transient miss.
func NewMJPEGSource(ctx context.Context, url string) (*MJPEGSource, error) {
	client := &http.Client{Timeout: 0} // streaming, no overall deadline

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: stream returned %s", ErrDeviceUnavailable, resp.Status)
	}

	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "multipart/") {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected content type %q", ErrDeviceUnavailable, resp.Header.Get("Content-Type"))
	}
	boundary := params["boundary"]
	if boundary == "" {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: stream has no multipart boundary", ErrDeviceUnavailable)
	}

	return &MJPEGSource{
		url:    url,
		client: client,
		resp:   resp,
		reader: multipart.NewReader(resp.Body, boundary),
	}, nil
}

// ReadFrame returns the next decoded JPEG part. A part that fails to
// decode is a transient ErrNoFrame; a broken stream is fatal.
func (s *MJPEGSource) ReadFrame(ctx context.Context) (image.Image, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	part, err := s.reader.NextPart()
	if err != nil {
		return nil, fmt.Errorf("%w: stream ended: %v", ErrDeviceUnavailable, err)
	}
	defer part.Close()

	img, err := jpeg.Decode(part)
	if err != nil {
		return nil, fmt.Errorf("%w: bad jpeg part: %v", ErrNoFrame, err)
	}
	return img, nil
}

// Close terminates the stream connection.
func (s *MJPEGSource) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.resp != nil {
		return s.resp.Body.Close()
	}
	return nil
}

// interFrameDelay paces directory sources so offline runs resemble a
// camera feed instead of a tight loop.
const interFrameDelay = 50 * time.Millisecond
