// Package imaging normalizes uploaded registrant photos into a bounded
// JPEG: width capped at MaxWidth preserving aspect ratio, re-encoded at
// reduced quality to keep payloads small.
package imaging

import (
	"bytes"
	"errors"
	"image"

	xmg "github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // webp decode support
)

const (
	// MaxWidth is the output width cap in pixels. Narrower inputs pass
	// through unscaled.
	MaxWidth = 400
	// Quality is the JPEG re-encode quality.
	Quality = 70
)

// ErrUndecodable marks input that is not a decodable image. Callers treat
// the photo as absent rather than failing the submission.
var ErrUndecodable = errors.New("imaging: undecodable image data")

// Normalize decodes data, scales it down to at most MaxWidth wide, and
// returns it re-encoded as JPEG.
func Normalize(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrUndecodable
	}

	if img.Bounds().Dx() > MaxWidth {
		img = xmg.Resize(img, MaxWidth, 0, xmg.Lanczos)
	}

	var buf bytes.Buffer
	if err := xmg.Encode(&buf, img, xmg.JPEG, xmg.JPEGQuality(Quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
