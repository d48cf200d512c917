package service_test

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/nandakv/regio/internal/models"
	"github.com/nandakv/regio/internal/service"
	"github.com/nandakv/regio/internal/validate"
)

type memStore struct {
	docs   map[string]models.Registrant
	order  []string
	blobs  map[string][]byte
	blobCT map[string]string

	upsertErr error
	putErr    error
	upserts   int
	puts      int
}

func newMemStore() *memStore {
	return &memStore{
		docs:   make(map[string]models.Registrant),
		blobs:  make(map[string][]byte),
		blobCT: make(map[string]string),
	}
}

func (m *memStore) Upsert(rec *models.Registrant) error {
	m.upserts++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if _, exists := m.docs[rec.ID]; !exists {
		m.order = append(m.order, rec.ID)
	}
	m.docs[rec.ID] = *rec
	return nil
}

func (m *memStore) FindByID(id string) (*models.Registrant, error) {
	rec, ok := m.docs[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memStore) FindAll() ([]models.Registrant, error) {
	out := make([]models.Registrant, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.docs[m.order[i]])
	}
	return out, nil
}

func (m *memStore) Count() (int, error) { return len(m.docs), nil }

func (m *memStore) PutPhoto(key string, data []byte, contentType string) error {
	m.puts++
	if m.putErr != nil {
		return m.putErr
	}
	m.blobs[key] = data
	m.blobCT[key] = contentType
	return nil
}

func (m *memStore) GetPhoto(key string) ([]byte, string, error) {
	data, ok := m.blobs[key]
	if !ok {
		return nil, "", errors.New("object not found: " + key)
	}
	return data, m.blobCT[key], nil
}

type countingIDs struct {
	signIns   int
	signedOut []string
}

func (c *countingIDs) SignInAnonymously() (string, error) {
	c.signIns++
	return fmt.Sprintf("uid-%d", c.signIns), nil
}

func (c *countingIDs) SignOut(uid string) { c.signedOut = append(c.signedOut, uid) }

func jpegBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func goodDraft() models.Draft {
	return models.Draft{
		Name:     "Asha K",
		Phone:    "+919876543210",
		Age:      "29",
		Mandalam: "North",
		Mekhala:  "Central",
		Unit:     "Unit 12",
	}
}

func TestInvalidDraftNeverTouchesStore(t *testing.T) {
	store := newMemStore()
	ids := &countingIDs{}
	svc := service.NewSubmissionService(store, ids)

	d := goodDraft()
	d.Age = "0"
	_, err := svc.Submit(d)

	var violations validate.Violations
	if !errors.As(err, &violations) {
		t.Fatalf("expected Violations, got %v", err)
	}
	if store.upserts != 0 || store.puts != 0 {
		t.Fatalf("store touched on invalid draft: %d upserts, %d puts", store.upserts, store.puts)
	}
	if ids.signIns != 0 {
		t.Fatal("identity minted for invalid draft")
	}
}

func TestSubmitPersistsRecordAndPhoto(t *testing.T) {
	store := newMemStore()
	svc := service.NewSubmissionService(store, &countingIDs{})

	d := goodDraft()
	d.Photo = jpegBytes(t, 200, 200)
	rec, err := svc.Submit(d)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	if rec.ID != "uid-1" {
		t.Fatalf("unexpected id %q", rec.ID)
	}
	if rec.PhotoURL != service.PhotoPath(rec.ID) {
		t.Fatalf("unexpected photoURL %q", rec.PhotoURL)
	}
	if !rec.AcceptedDeclaration {
		t.Fatal("declaration flag not set")
	}
	if _, err := time.Parse(time.RFC3339, rec.SubmissionDate); err != nil {
		t.Fatalf("submission date not RFC3339: %q", rec.SubmissionDate)
	}

	key := service.PhotoKey(rec.ID)
	if store.blobs[key] == nil {
		t.Fatal("photo blob not stored")
	}
	if store.blobCT[key] != "image/jpeg" {
		t.Fatalf("unexpected content type %q", store.blobCT[key])
	}
	if stored, _ := store.FindByID(rec.ID); stored == nil || stored.Name != "Asha K" {
		t.Fatal("record not stored")
	}
}

func TestSubmitWithoutPhoto(t *testing.T) {
	store := newMemStore()
	svc := service.NewSubmissionService(store, &countingIDs{})

	rec, err := svc.Submit(goodDraft())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.PhotoURL != "" {
		t.Fatalf("photoURL set without photo: %q", rec.PhotoURL)
	}
	if store.puts != 0 {
		t.Fatal("blob written without photo")
	}
}

func TestUndecodablePhotoTreatedAsAbsent(t *testing.T) {
	store := newMemStore()
	svc := service.NewSubmissionService(store, &countingIDs{})

	d := goodDraft()
	// jpeg magic so the type check passes, then junk
	d.Photo = append([]byte("\xff\xd8\xff\xe0"), bytes.Repeat([]byte("x"), 64)...)
	rec, err := svc.Submit(d)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if rec.PhotoURL != "" || store.puts != 0 {
		t.Fatal("undecodable photo was persisted")
	}
}

func TestUploadFailureAbortsDocumentWrite(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("permission denied")
	svc := service.NewSubmissionService(store, &countingIDs{})

	d := goodDraft()
	d.Photo = jpegBytes(t, 50, 50)
	_, err := svc.Submit(d)

	var uerr *service.UploadError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UploadError, got %v", err)
	}
	if uerr.Path != "registrant_photos/uid-1.jpg" {
		t.Fatalf("unexpected path %q", uerr.Path)
	}
	if store.upserts != 0 {
		t.Fatal("document written after upload failure")
	}
}

func TestPersistFailureCarriesAuditContext(t *testing.T) {
	store := newMemStore()
	store.upsertErr = errors.New("access rules rejected the write")
	svc := service.NewSubmissionService(store, &countingIDs{})

	_, err := svc.Submit(goodDraft())

	var perr *service.PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if perr.Path != "registrants/uid-1" {
		t.Fatalf("unexpected path %q", perr.Path)
	}
	if perr.Operation != "create" {
		t.Fatalf("unexpected operation %q", perr.Operation)
	}
	if perr.Payload["name"] != "Asha K" {
		t.Fatalf("payload missing attempted data: %v", perr.Payload)
	}
}

func TestPersistIsIdempotentPerIdentity(t *testing.T) {
	store := newMemStore()
	svc := service.NewSubmissionService(store, &countingIDs{})

	p, err := svc.Prepare(goodDraft())
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if _, err := svc.Persist(p); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if _, err := svc.Persist(p); err != nil {
		t.Fatalf("second persist: %v", err)
	}
	if n, _ := store.Count(); n != 1 {
		t.Fatalf("expected 1 record after repeated persist, got %d", n)
	}
}

func TestFreshIdentityPerSubmission(t *testing.T) {
	store := newMemStore()
	ids := &countingIDs{}
	svc := service.NewSubmissionService(store, ids)

	a, _ := svc.Submit(goodDraft())
	b, _ := svc.Submit(goodDraft())
	if a.ID == b.ID {
		t.Fatal("two submissions share an identity")
	}
	if n, _ := store.Count(); n != 2 {
		t.Fatalf("expected 2 records, got %d", n)
	}
}
