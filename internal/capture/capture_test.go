package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"
)

func encodeJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func mjpegHandler(t *testing.T, frames [][]byte) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		mw := multipart.NewWriter(w)
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+mw.Boundary())
		w.WriteHeader(http.StatusOK)

		for _, frame := range frames {
			part, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {"image/jpeg"}})
			if err != nil {
				return
			}
			if _, err := part.Write(frame); err != nil {
				return
			}
		}
		_ = mw.Close()
	}
}

func TestMJPEGSourceReadsFrames(t *testing.T) {
	frames := [][]byte{encodeJPEG(t, 32, 24), encodeJPEG(t, 32, 24)}
	srv := httptest.NewServer(mjpegHandler(t, frames))
	defer srv.Close()

	src, err := NewMJPEGSource(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("NewMJPEGSource failed: %v", err)
	}
	defer src.Close()

	for i := 0; i < 2; i++ {
		img, err := src.ReadFrame(context.Background())
		if err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
		if b := img.Bounds(); b.Dx() != 32 || b.Dy() != 24 {
			t.Errorf("frame %d bounds = %v, want 32x24", i, b)
		}
	}

	// Stream ended: the source is done for good.
	if _, err := src.ReadFrame(context.Background()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("after stream end: err = %v, want ErrDeviceUnavailable", err)
	}
}

func TestMJPEGSourceBadPartIsTransient(t *testing.T) {
	frames := [][]byte{[]byte("not a jpeg"), encodeJPEG(t, 16, 16)}
	srv := httptest.NewServer(mjpegHandler(t, frames))
	defer srv.Close()

	src, err := NewMJPEGSource(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("NewMJPEGSource failed: %v", err)
	}
	defer src.Close()

	if _, err := src.ReadFrame(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("bad part: err = %v, want ErrNoFrame", err)
	}
	if _, err := src.ReadFrame(context.Background()); err != nil {
		t.Fatalf("next frame after bad part failed: %v", err)
	}
}

func TestMJPEGSourceRejectsNonStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html></html>"))
	}))
	defer srv.Close()

	if _, err := NewMJPEGSource(context.Background(), srv.URL); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("non-stream endpoint: err = %v, want ErrDeviceUnavailable", err)
	}
}

func TestMJPEGSourceConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // shut down before connecting

	if _, err := NewMJPEGSource(context.Background(), srv.URL); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("refused connection: err = %v, want ErrDeviceUnavailable", err)
	}
}

func TestDirSource(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.png"), buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.jpg"), encodeJPEG(t, 8, 8), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip me"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource failed: %v", err)
	}
	defer src.Close()

	for i := 0; i < 2; i++ {
		if _, err := src.ReadFrame(context.Background()); err != nil {
			t.Fatalf("ReadFrame %d failed: %v", i, err)
		}
	}
	if _, err := src.ReadFrame(context.Background()); !errors.Is(err, io.EOF) {
		t.Errorf("exhausted dir: err = %v, want io.EOF", err)
	}
}

func TestDirSourceCorruptFileIsTransient(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.jpg"), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "good.jpg"), encodeJPEG(t, 8, 8), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := NewDirSource(dir)
	if err != nil {
		t.Fatalf("NewDirSource failed: %v", err)
	}
	defer src.Close()

	if _, err := src.ReadFrame(context.Background()); !errors.Is(err, ErrNoFrame) {
		t.Fatalf("corrupt file: err = %v, want ErrNoFrame", err)
	}
	if _, err := src.ReadFrame(context.Background()); err != nil {
		t.Fatalf("frame after corrupt file failed: %v", err)
	}
}

func TestDirSourceEmpty(t *testing.T) {
	if _, err := NewDirSource(t.TempDir()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("empty dir: err = %v, want ErrDeviceUnavailable", err)
	}
}

func TestOpenDispatch(t *testing.T) {
	if _, err := Open(context.Background(), ""); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("empty url: err = %v, want ErrDeviceUnavailable", err)
	}
	if _, err := Open(context.Background(), t.TempDir()); !errors.Is(err, ErrDeviceUnavailable) {
		t.Errorf("empty image dir: err = %v, want ErrDeviceUnavailable", err)
	}
}
