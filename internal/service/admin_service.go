package service

import (
	"strings"

	"github.com/nandakv/regio/internal/models"
)

// Filter narrows the admin listing. Text filters are case-insensitive
// substring matches; a zero MaxAge means no upper bound.
type Filter struct {
	Name     string
	Mandalam string
	Mekhala  string
	Unit     string
	MinAge   int
	MaxAge   int
}

func (f Filter) matches(rec *models.Registrant) bool {
	if !containsFold(rec.Name, f.Name) {
		return false
	}
	if !containsFold(rec.Mandalam, f.Mandalam) {
		return false
	}
	if !containsFold(rec.Mekhala, f.Mekhala) {
		return false
	}
	if !containsFold(rec.Unit, f.Unit) {
		return false
	}
	if rec.Age < f.MinAge {
		return false
	}
	if f.MaxAge > 0 && rec.Age > f.MaxAge {
		return false
	}
	return true
}

func containsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// AdminService serves the administrative views: full listing (newest
// first, as stored), filtering, and per-mandalam counts.
type AdminService struct {
	store RegistrantStore
}

func NewAdminService(store RegistrantStore) *AdminService {
	return &AdminService{store: store}
}

// List returns all records passing the filter, preserving the store's
// submissionDate-descending order.
func (s *AdminService) List(f Filter) ([]models.Registrant, error) {
	recs, err := s.store.FindAll()
	if err != nil {
		return nil, err
	}
	out := make([]models.Registrant, 0, len(recs))
	for i := range recs {
		if f.matches(&recs[i]) {
			out = append(out, recs[i])
		}
	}
	return out, nil
}

// Stats returns the total record count and a per-mandalam breakdown.
func (s *AdminService) Stats() (int, map[string]int, error) {
	recs, err := s.store.FindAll()
	if err != nil {
		return 0, nil, err
	}
	byMandalam := make(map[string]int)
	for i := range recs {
		byMandalam[strings.ToLower(recs[i].Mandalam)]++
	}
	return len(recs), byMandalam, nil
}
