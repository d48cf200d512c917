package service

import (
	"errors"
	"time"

	"github.com/nandakv/regio/internal/imaging"
	"github.com/nandakv/regio/internal/models"
	"github.com/nandakv/regio/internal/repository"
	"github.com/nandakv/regio/internal/validate"
)

// RegistrantStore is the slice of the repository the submission and admin
// services need.
type RegistrantStore interface {
	Upsert(rec *models.Registrant) error
	FindByID(id string) (*models.Registrant, error)
	FindAll() ([]models.Registrant, error)
	Count() (int, error)
	PutPhoto(key string, data []byte, contentType string) error
	GetPhoto(key string) ([]byte, string, error)
}

// IdentityProvider mints and invalidates anonymous uids.
type IdentityProvider interface {
	SignInAnonymously() (string, error)
	SignOut(uid string)
}

// SubmissionService turns a validated draft into a persisted record:
// mint identity, upload the normalized photo, upsert the document keyed
// by the identity. Within one submission the upload strictly precedes the
// document write that references it.
type SubmissionService struct {
	store RegistrantStore
	ids   IdentityProvider
	now   func() time.Time
}

func NewSubmissionService(store RegistrantStore, ids IdentityProvider) *SubmissionService {
	return &SubmissionService{store: store, ids: ids, now: time.Now}
}

// Prepared is a submission that passed validation and holds a minted
// identity: the provisional record plus the photo bytes still to upload.
type Prepared struct {
	Record models.Registrant
	photo  []byte
}

// PhotoPath returns the service path a stored photo is served from.
func PhotoPath(uid string) string {
	return "/api/v1/registrants/" + uid + "/photo"
}

// PhotoKey returns the blob key a registrant's photo is stored under.
func PhotoKey(uid string) string {
	return uid + ".jpg"
}

// Prepare validates the draft, normalizes the photo, and mints a fresh
// anonymous identity. No store write happens here; validation failures
// return before any identity acquisition. An undecodable photo is treated
// as absent, not as a failure.
func (s *SubmissionService) Prepare(draft models.Draft) (*Prepared, error) {
	clean, violations := validate.Draft(draft)
	if violations != nil {
		return nil, violations
	}

	var photo []byte
	if len(clean.Photo) > 0 {
		normalized, err := imaging.Normalize(clean.Photo)
		if err == nil {
			photo = normalized
		} else if !errors.Is(err, imaging.ErrUndecodable) {
			return nil, err
		}
	}

	uid, err := s.ids.SignInAnonymously()
	if err != nil {
		return nil, &IdentityError{Err: err}
	}

	photoURL := ""
	if photo != nil {
		photoURL = PhotoPath(uid)
	}

	return &Prepared{
		Record: models.Registrant{
			ID:                  uid,
			Name:                clean.Name,
			Phone:               clean.Phone,
			Age:                 clean.Age,
			Mandalam:            clean.Mandalam,
			Mekhala:             clean.Mekhala,
			Unit:                clean.Unit,
			PhotoURL:            photoURL,
			SubmissionDate:      s.now().UTC().Format(time.RFC3339),
			AcceptedDeclaration: true,
		},
		photo: photo,
	}, nil
}

// Persist uploads the photo (if any) and writes the document under the
// identity's key. Persist is idempotent per identity: repeating it
// overwrites both blob and document rather than duplicating them.
func (s *SubmissionService) Persist(p *Prepared) (*models.Registrant, error) {
	rec := p.Record

	if p.photo != nil {
		key := PhotoKey(rec.ID)
		if err := s.store.PutPhoto(key, p.photo, "image/jpeg"); err != nil {
			return nil, &UploadError{Path: repository.PhotoBucket + "/" + key, Err: err}
		}
	}

	if err := s.store.Upsert(&rec); err != nil {
		return nil, &PersistenceError{
			Path:      repository.RegistrantsCollection + "/" + rec.ID,
			Operation: "create",
			Payload:   recordPayload(&rec),
			Err:       err,
		}
	}
	return &rec, nil
}

// Submit runs the whole pipeline in one call.
func (s *SubmissionService) Submit(draft models.Draft) (*models.Registrant, error) {
	p, err := s.Prepare(draft)
	if err != nil {
		return nil, err
	}
	return s.Persist(p)
}

func recordPayload(rec *models.Registrant) map[string]any {
	return map[string]any{
		"id":                  rec.ID,
		"name":                rec.Name,
		"phone":               rec.Phone,
		"age":                 rec.Age,
		"mandalam":            rec.Mandalam,
		"mekhala":             rec.Mekhala,
		"unit":                rec.Unit,
		"photoURL":            rec.PhotoURL,
		"submissionDate":      rec.SubmissionDate,
		"acceptedDeclaration": rec.AcceptedDeclaration,
	}
}
