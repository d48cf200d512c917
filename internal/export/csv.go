package export

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"github.com/nandakv/regio/internal/models"
)

var csvHeader = []string{"id", "name", "phone", "age", "mandalam", "mekhala", "unit", "photoURL", "submissionDate"}

// CSV renders records as a CSV document, one row per record, in the
// order given.
func CSV(recs []models.Registrant) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for i := range recs {
		rec := &recs[i]
		row := []string{
			rec.ID,
			rec.Name,
			rec.Phone,
			strconv.Itoa(rec.Age),
			rec.Mandalam,
			rec.Mekhala,
			rec.Unit,
			rec.PhotoURL,
			rec.SubmissionDate,
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
