package repository

import (
	"encoding/json"
	"fmt"

	"github.com/nandakv/regio/internal/db"
	"github.com/nandakv/regio/internal/docdb"
	"github.com/nandakv/regio/internal/models"
)

const (
	RegistrantsCollection = "registrants"
	PhotoBucket           = "registrant_photos"
)

// RegistrantRepo persists registrant records and their photos. Records
// are keyed by the anonymous uid in the "id" field (unique index); Upsert
// gives last-write-wins per key, so a repeated submit under the same
// identity overwrites rather than duplicates.
type RegistrantRepo struct {
	pool *db.Pool
}

func NewRegistrantRepo(pool *db.Pool) *RegistrantRepo {
	return &RegistrantRepo{pool: pool}
}

func (r *RegistrantRepo) EnsureIndexes() error {
	c := r.pool.Get()
	if err := c.CreateCollection(RegistrantsCollection); err != nil {
		return err
	}
	if err := c.CreateUniqueIndex(RegistrantsCollection, "id"); err != nil {
		return err
	}
	if err := c.CreateIndex(RegistrantsCollection, "submissionDate"); err != nil {
		return err
	}
	return c.CreateIndex(RegistrantsCollection, "mandalam")
}

func (r *RegistrantRepo) EnsureBucket() error {
	c := r.pool.Get()
	return c.CreateBucket(PhotoBucket)
}

// Upsert writes rec under its uid key: update the existing document when
// one matches, insert otherwise.
func (r *RegistrantRepo) Upsert(rec *models.Registrant) error {
	c := r.pool.Get()
	doc := registrantToDoc(rec)
	result, err := c.UpdateOne(RegistrantsCollection, map[string]any{"id": rec.ID}, map[string]any{"$set": doc})
	if err != nil {
		return err
	}
	if modified, _ := result["modified"].(float64); modified > 0 {
		return nil
	}
	_, err = c.Insert(RegistrantsCollection, doc)
	return err
}

func (r *RegistrantRepo) FindByID(id string) (*models.Registrant, error) {
	c := r.pool.Get()
	doc, err := c.FindOne(RegistrantsCollection, map[string]any{"id": id})
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return docToRegistrant(doc)
}

// FindAll returns every record, newest submission first.
func (r *RegistrantRepo) FindAll() ([]models.Registrant, error) {
	c := r.pool.Get()
	docs, err := c.Find(RegistrantsCollection, map[string]any{}, &docdb.FindOptions{
		Sort: map[string]any{"submissionDate": -1},
	})
	if err != nil {
		return nil, err
	}
	recs := make([]models.Registrant, 0, len(docs))
	for _, d := range docs {
		rec, err := docToRegistrant(d)
		if err != nil {
			continue
		}
		recs = append(recs, *rec)
	}
	return recs, nil
}

func (r *RegistrantRepo) Count() (int, error) {
	c := r.pool.Get()
	return c.Count(RegistrantsCollection, map[string]any{})
}

func (r *RegistrantRepo) PutPhoto(key string, data []byte, contentType string) error {
	c := r.pool.Get()
	return c.PutObject(PhotoBucket, key, data, contentType)
}

func (r *RegistrantRepo) GetPhoto(key string) ([]byte, string, error) {
	c := r.pool.Get()
	return c.GetObject(PhotoBucket, key)
}

func (r *RegistrantRepo) DeletePhoto(key string) error {
	c := r.pool.Get()
	return c.DeleteObject(PhotoBucket, key)
}

func registrantToDoc(rec *models.Registrant) map[string]any {
	data, _ := json.Marshal(rec)
	var doc map[string]any
	json.Unmarshal(data, &doc)
	return doc
}

// docToRegistrant round-trips through JSON; the store's internal "_id"
// has no struct field and falls away.
func docToRegistrant(doc map[string]any) (*models.Registrant, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("marshal registrant doc: %w", err)
	}
	var rec models.Registrant
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal registrant: %w", err)
	}
	return &rec, nil
}
