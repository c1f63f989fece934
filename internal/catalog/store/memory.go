package store

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"

	"examsite/internal/catalog/models"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
)

// InMemoryVenues is a thread-safe venue store for tests and local runs.
type InMemoryVenues struct {
	mu     sync.RWMutex
	venues map[id.VenueID]*models.Venue
}

func NewInMemoryVenues() *InMemoryVenues {
	return &InMemoryVenues{venues: make(map[id.VenueID]*models.Venue)}
}

func (s *InMemoryVenues) Create(_ context.Context, v *models.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.venues[v.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *v
	s.venues[v.ID] = &cp
	return nil
}

func (s *InMemoryVenues) FindByID(_ context.Context, venueID id.VenueID) (*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.venues[venueID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

// FindByIDForUpdate has no separate lock in memory; the surrounding
// transaction already serializes writers.
func (s *InMemoryVenues) FindByIDForUpdate(ctx context.Context, venueID id.VenueID) (*models.Venue, error) {
	return s.FindByID(ctx, venueID)
}

func (s *InMemoryVenues) List(_ context.Context, filter models.VenueFilter) ([]*models.Venue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Venue, 0, len(s.venues))
	for _, v := range s.venues {
		if filter.Type != "" && v.Type != filter.Type {
			continue
		}
		if filter.Status != "" && v.Status != filter.Status {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Venue) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (s *InMemoryVenues) Update(_ context.Context, v *models.Venue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.venues[v.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *v
	s.venues[v.ID] = &cp
	return nil
}

func (s *InMemoryVenues) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.venues)
	for k, v := range saved {
		cp := *v
		saved[k] = &cp
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.venues = saved
		s.mu.Unlock()
	}
}

// InMemoryExamProducts is a thread-safe exam product store.
type InMemoryExamProducts struct {
	mu       sync.RWMutex
	products map[id.ExamProductID]*models.ExamProduct
}

func NewInMemoryExamProducts() *InMemoryExamProducts {
	return &InMemoryExamProducts{products: make(map[id.ExamProductID]*models.ExamProduct)}
}

func (s *InMemoryExamProducts) Create(_ context.Context, p *models.ExamProduct) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[p.ID]; ok {
		return sentinel.ErrConflict
	}
	cp := *p
	s.products[p.ID] = &cp
	return nil
}

func (s *InMemoryExamProducts) FindByID(_ context.Context, productID id.ExamProductID) (*models.ExamProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *InMemoryExamProducts) List(_ context.Context) ([]*models.ExamProduct, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.ExamProduct, 0, len(s.products))
	for _, p := range s.products {
		cp := *p
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.ExamProduct) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// InMemoryInstitutions enforces case-insensitive name uniqueness.
type InMemoryInstitutions struct {
	mu           sync.RWMutex
	institutions map[id.InstitutionID]*models.Institution
}

func NewInMemoryInstitutions() *InMemoryInstitutions {
	return &InMemoryInstitutions{institutions: make(map[id.InstitutionID]*models.Institution)}
}

func (s *InMemoryInstitutions) CreateIfNameAvailable(_ context.Context, inst *models.Institution) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.institutions {
		if strings.EqualFold(existing.Name, inst.Name) {
			return sentinel.ErrConflict
		}
	}
	cp := *inst
	s.institutions[inst.ID] = &cp
	return nil
}

func (s *InMemoryInstitutions) FindByID(_ context.Context, instID id.InstitutionID) (*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inst, ok := s.institutions[instID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *inst
	return &cp, nil
}

func (s *InMemoryInstitutions) List(_ context.Context) ([]*models.Institution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Institution, 0, len(s.institutions))
	for _, inst := range s.institutions {
		cp := *inst
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Institution) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}
