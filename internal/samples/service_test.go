package samples

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"testing"
	"time"

	objectlocal "biolens-backend/internal/shared/storage/object/local"
)

func testPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{100, 150, 100, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewMemoryRepo(), objectlocal.New(t.TempDir()))
}

func TestUploadAndRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	data := testPNG(t, 640, 480)
	sample, err := svc.Upload(ctx, "u1", "smear.png", data)
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if sample.MimeType != "image/png" {
		t.Fatalf("mime = %q, want image/png", sample.MimeType)
	}
	if sample.Width != 640 || sample.Height != 480 {
		t.Fatalf("dimensions = %dx%d, want 640x480", sample.Width, sample.Height)
	}
	if sample.ThumbnailKey == "" {
		t.Fatalf("expected a thumbnail key")
	}

	stored, err := svc.ReadImageBytes(ctx, "u1", sample.ID)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(stored, data) {
		t.Fatalf("stored bytes differ from upload")
	}
}

func TestUploadRejectsOversized(t *testing.T) {
	svc := newTestService(t)
	big := make([]byte, MaxUploadBytes+1)
	_, err := svc.Upload(context.Background(), "u1", "big.png", big)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v, want ErrTooLarge", err)
	}
}

func TestUploadRejectsNonImage(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Upload(context.Background(), "u1", "doc.txt", []byte("plain text"))
	if !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("err = %v, want ErrInvalidImage", err)
	}
}

func TestUploadRejectsUnsupportedFormat(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 10, 10), []color.Color{color.White, color.Black})
	var buf bytes.Buffer
	if err := gif.Encode(&buf, img, nil); err != nil {
		t.Fatalf("encode gif: %v", err)
	}

	svc := newTestService(t)
	_, err := svc.Upload(context.Background(), "u1", "anim.gif", buf.Bytes())
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("err = %v, want ErrUnsupportedType", err)
	}
}

func TestOwnershipIsEnforced(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	sample, err := svc.Upload(ctx, "u1", "smear.png", testPNG(t, 100, 100))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}

	if _, err := svc.Get(ctx, "u2", sample.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("cross-user get err = %v, want ErrNotFound", err)
	}
}

func TestListAndLatest(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	for i := 0; i < 3; i++ {
		if _, err := svc.Upload(ctx, "u1", "smear.png", testPNG(t, 100, 100)); err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	list, err := svc.List(ctx, "u1", 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("list len = %d, want 3", len(list))
	}

	latest, err := svc.Latest(ctx, "u1")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != list[0].ID {
		t.Fatalf("latest = %s, want newest %s", latest.ID, list[0].ID)
	}
}
