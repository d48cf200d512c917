package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/nandakv/regio/internal/models"
)

var tableColumns = []struct {
	header string
	width  float64
}{
	{"Name", 50},
	{"Phone", 30},
	{"Age", 12},
	{"Mandalam", 26},
	{"Mekhala", 26},
	{"Unit", 36},
}

// Table renders the bulk admin export: one row per record under the
// branding title, breaking to a new page with a repeated header row when
// the current page fills up.
func (c *Composer) Table(recs []models.Registrant) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.AddPage()
	_, pageH := pdf.GetPageSize()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Text(pageMargin, pageMargin+5, c.title+" Registrants")
	pdf.SetY(pageMargin + 10)

	const rowH = 8.0
	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range tableColumns {
			pdf.CellFormat(col.width, rowH, col.header, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(rowH)
		pdf.SetFont("Helvetica", "", 10)
	}
	writeHeader()

	for i := range recs {
		if pdf.GetY()+rowH > pageH-pageMargin {
			pdf.AddPage()
			writeHeader()
		}
		rec := &recs[i]
		cells := []string{rec.Name, rec.Phone, fmt.Sprintf("%d", rec.Age), rec.Mandalam, rec.Mekhala, rec.Unit}
		for j, col := range tableColumns {
			pdf.CellFormat(col.width, rowH, cells[j], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(rowH)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}
