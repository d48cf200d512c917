package imaging_test

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/nandakv/regio/internal/imaging"
)

func encode(t *testing.T, w, h int, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := enc(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func jpegImage(t *testing.T, w, h int) []byte {
	return encode(t, w, h, func(b *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(b, img, nil)
	})
}

func TestWideImageScaledDown(t *testing.T) {
	out, err := imaging.Normalize(jpegImage(t, 800, 200))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg output, got %s", format)
	}
	if cfg.Width != imaging.MaxWidth {
		t.Fatalf("expected width %d, got %d", imaging.MaxWidth, cfg.Width)
	}
	if cfg.Height != 100 {
		t.Fatalf("aspect ratio not preserved: height %d", cfg.Height)
	}
}

func TestNarrowImageNotUpscaled(t *testing.T) {
	out, err := imaging.Normalize(jpegImage(t, 100, 50))
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("dimensions changed: %dx%d", cfg.Width, cfg.Height)
	}
}

func TestPngConvertedToJpeg(t *testing.T) {
	in := encode(t, 50, 50, func(b *bytes.Buffer, img image.Image) error {
		return png.Encode(b, img)
	})
	out, err := imaging.Normalize(in)
	if err != nil {
		t.Fatalf("normalize: %v", err)
	}
	_, format, err := image.DecodeConfig(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if format != "jpeg" {
		t.Fatalf("expected jpeg, got %s", format)
	}
}

func TestUndecodableInput(t *testing.T) {
	_, err := imaging.Normalize([]byte("\xff\xd8\xffnot really a jpeg"))
	if !errors.Is(err, imaging.ErrUndecodable) {
		t.Fatalf("expected ErrUndecodable, got %v", err)
	}
}
