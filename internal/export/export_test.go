package export_test

import (
	"bytes"
	"encoding/csv"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/nandakv/regio/internal/export"
	"github.com/nandakv/regio/internal/models"
)

func sampleRecord() *models.Registrant {
	return &models.Registrant{
		ID:             "uid-1",
		Name:           "Asha K",
		Phone:          "+919876543210",
		Age:            29,
		Mandalam:       "North",
		Mekhala:        "Central",
		Unit:           "Unit 12",
		PhotoURL:       "/api/v1/registrants/uid-1/photo",
		SubmissionDate: "2026-01-01T00:00:00Z",
	}
}

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func TestProfileWithPhoto(t *testing.T) {
	c := export.NewComposer("AIYF", nil)
	data, err := c.Profile(sampleRecord(), jpegBytes(t, 200, 200))
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestProfileWithoutPhotoStillRenders(t *testing.T) {
	c := export.NewComposer("AIYF", nil)
	data, err := c.Profile(sampleRecord(), nil)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestProfileIgnoresGarbagePhoto(t *testing.T) {
	c := export.NewComposer("AIYF", []byte("not a logo"))
	data, err := c.Profile(sampleRecord(), []byte("definitely not an image"))
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
}

func TestTablePaginates(t *testing.T) {
	c := export.NewComposer("AIYF", nil)
	recs := make([]models.Registrant, 120)
	for i := range recs {
		recs[i] = *sampleRecord()
	}
	data, err := c.Table(recs)
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatal("output is not a PDF")
	}
	// 120 rows at 8mm cannot fit one A4 page
	small, err := c.Table(recs[:1])
	if err != nil {
		t.Fatalf("table: %v", err)
	}
	if len(data) <= len(small) {
		t.Fatalf("120-row export (%dB) not larger than 1-row export (%dB)", len(data), len(small))
	}
}

func TestCSV(t *testing.T) {
	data, err := export.CSV([]models.Registrant{*sampleRecord()})
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "id" || rows[0][1] != "name" {
		t.Fatalf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "Asha K" || rows[1][3] != "29" {
		t.Fatalf("unexpected row: %v", rows[1])
	}
}

func TestCSVEmpty(t *testing.T) {
	data, err := export.CSV(nil)
	if err != nil {
		t.Fatalf("csv: %v", err)
	}
	if strings.Count(string(data), "\n") != 1 {
		t.Fatalf("expected header only, got %q", data)
	}
}

func TestShareText(t *testing.T) {
	got := export.ShareText(sampleRecord())
	want := "Member Profile:\n\nName: Asha K\nAge: 29\nPhone: +919876543210\nMandalam: North\nMekhala: Central\nUnit: Unit 12"
	if got != want {
		t.Fatalf("share text mismatch:\ngot:  %q\nwant: %q", got, want)
	}
}
