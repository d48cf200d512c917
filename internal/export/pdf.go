// Package export assembles the printable and shareable artifacts for
// registrant records: a single-record profile PDF, a bulk tabular PDF,
// a CSV export, and the plain-text share payload.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/jung-kurt/gofpdf"

	"github.com/nandakv/regio/internal/models"
)

// ErrRender marks a failed document assembly. Rendering failures are
// reported to the caller, never allowed to take the process down.
var ErrRender = errors.New("export: document assembly failed")

const (
	pageMargin  = 15.0
	photoBoxMM  = 60.0
	labelColX   = pageMargin
	valueColX   = pageMargin + 50
	detailRowMM = 10.0
)

// Composer renders export documents under a fixed branding title and
// optional logo image. A nil or undecodable logo is simply omitted.
type Composer struct {
	title string
	logo  []byte
}

func NewComposer(title string, logo []byte) *Composer {
	return &Composer{title: title, logo: logo}
}

// Profile renders one record as an A4 portrait PDF: branding, the photo
// scaled into a bounded box preserving aspect ratio, the name, and a
// labeled listing of every field including identity and date. An absent
// or undecodable photo omits the photo region; everything else still
// renders.
func (c *Composer) Profile(rec *models.Registrant, photo []byte) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.AddPage()
	pageW, pageH := pdf.GetPageSize()
	y := pageMargin

	if h := drawImageCentered(pdf, "logo", c.logo, pageW, y, 40, 25); h > 0 {
		y += h + 8
	}

	pdf.SetFont("Helvetica", "B", 22)
	pdf.SetXY(pageMargin, y)
	pdf.CellFormat(pageW-2*pageMargin, 10, c.title, "", 1, "C", false, 0, "")
	y += 15

	if h := drawImageCentered(pdf, "photo", photo, pageW, y, photoBoxMM, photoBoxMM); h > 0 {
		y += h + 15
	}

	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetXY(pageMargin, y)
	pdf.CellFormat(pageW-2*pageMargin, 8, rec.Name, "", 1, "C", false, 0, "")
	y += 15

	pdf.SetFontSize(12)
	details := []struct{ label, value string }{
		{"ID", rec.ID},
		{"Date", rec.SubmissionDate},
		{"Age", fmt.Sprintf("%d", rec.Age)},
		{"Phone Number", rec.Phone},
		{"Mandalam", rec.Mandalam},
		{"Mekhala", rec.Mekhala},
		{"Unit", rec.Unit},
	}
	for _, d := range details {
		if y > pageH-pageMargin {
			pdf.AddPage()
			y = pageMargin
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Text(labelColX, y, d.label+":")
		pdf.SetFont("Helvetica", "", 12)
		pdf.Text(valueColX, y, d.value)
		y += detailRowMM
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// drawImageCentered registers and draws data horizontally centered at y,
// scaled to fit maxW×maxH (mm) preserving aspect ratio. Returns the drawn
// height, or 0 when the data is absent or not a usable image.
func drawImageCentered(pdf *gofpdf.Fpdf, name string, data []byte, pageW, y, maxW, maxH float64) float64 {
	if len(data) == 0 {
		return 0
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil || cfg.Width == 0 || cfg.Height == 0 {
		return 0
	}
	var imgType string
	switch format {
	case "jpeg":
		imgType = "JPEG"
	case "png":
		imgType = "PNG"
	default:
		return 0
	}

	ratio := maxW / float64(cfg.Width)
	if r := maxH / float64(cfg.Height); r < ratio {
		ratio = r
	}
	w := float64(cfg.Width) * ratio
	h := float64(cfg.Height) * ratio

	opts := gofpdf.ImageOptions{ImageType: imgType}
	pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(data))
	if pdf.Err() {
		return 0
	}
	pdf.ImageOptions(name, (pageW-w)/2, y, w, h, false, opts, 0, "")
	return h
}
