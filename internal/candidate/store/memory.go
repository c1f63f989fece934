package store

import (
	"context"
	"maps"
	"slices"
	"sync"

	"examsite/internal/candidate/models"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
)

// InMemory is a thread-safe candidate store for tests and local runs.
type InMemory struct {
	mu         sync.RWMutex
	candidates map[id.CandidateID]*models.Candidate
}

func NewInMemory() *InMemory {
	return &InMemory{candidates: make(map[id.CandidateID]*models.Candidate)}
}

func clone(c *models.Candidate) *models.Candidate {
	cp := *c
	if c.AssignedVenueID != nil {
		v := *c.AssignedVenueID
		cp.AssignedVenueID = &v
	}
	return &cp
}

// Create rejects a second candidate with the same id number.
func (s *InMemory) Create(_ context.Context, c *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.candidates {
		if existing.IDNumber == c.IDNumber || existing.ID == c.ID {
			return sentinel.ErrConflict
		}
	}
	s.candidates[c.ID] = clone(c)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[candidateID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(c), nil
}

func (s *InMemory) FindByIDNumber(_ context.Context, idNumber string) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.candidates {
		if c.IDNumber == idNumber {
			return clone(c), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindByIDsForUpdate returns the candidates ordered by id. Missing ids are
// skipped; callers compare lengths.
func (s *InMemory) FindByIDsForUpdate(ctx context.Context, ids []id.CandidateID) ([]*models.Candidate, error) {
	return s.FindByIDs(ctx, ids)
}

// FindByIDs is FindByIDsForUpdate without row locks.
func (s *InMemory) FindByIDs(_ context.Context, ids []id.CandidateID) ([]*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Candidate, 0, len(ids))
	for _, cid := range ids {
		if c, ok := s.candidates[cid]; ok {
			out = append(out, clone(c))
		}
	}
	slices.SortFunc(out, func(a, b *models.Candidate) int { return a.ID.Compare(b.ID) })
	return out, nil
}

func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Candidate, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matched := make([]*models.Candidate, 0)
	for _, c := range s.candidates {
		if !filter.InstitutionID.IsNil() && c.InstitutionID != filter.InstitutionID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		matched = append(matched, clone(c))
	}
	slices.SortFunc(matched, func(a, b *models.Candidate) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return a.ID.Compare(b.ID)
	})
	total := len(matched)
	return page(matched, filter.Offset, filter.Limit), total, nil
}

func page[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return items[:0]
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func (s *InMemory) Update(_ context.Context, c *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.candidates[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.candidates[c.ID] = clone(c)
	return nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.candidates)
	for k, v := range saved {
		saved[k] = clone(v)
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.candidates = saved
		s.mu.Unlock()
	}
}
