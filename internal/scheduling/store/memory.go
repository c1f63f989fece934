package store

import (
	"cmp"
	"context"
	"maps"
	"slices"
	"sync"

	"cloud.google.com/go/civil"

	"examsite/internal/scheduling/models"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
)

// InMemory is a thread-safe schedule store for tests and local runs. It
// enforces the one-live-booking-per-candidate-per-date rule the way the
// database's partial unique index does.
type InMemory struct {
	mu        sync.RWMutex
	schedules map[id.ScheduleID]*models.Schedule
}

func NewInMemory() *InMemory {
	return &InMemory{schedules: make(map[id.ScheduleID]*models.Schedule)}
}

func clone(s *models.Schedule) *models.Schedule {
	cp := *s
	if s.QueuePosition != nil {
		v := *s.QueuePosition
		cp.QueuePosition = &v
	}
	if s.CheckedInAt != nil {
		v := *s.CheckedInAt
		cp.CheckedInAt = &v
	}
	if s.CheckedInBy != nil {
		v := *s.CheckedInBy
		cp.CheckedInBy = &v
	}
	return &cp
}

func (s *InMemory) liveConflict(candidate *models.Schedule, ignore id.ScheduleID) bool {
	if candidate.Status == models.StatusCancelled {
		return false
	}
	for _, existing := range s.schedules {
		if existing.ID == ignore || existing.Status == models.StatusCancelled {
			continue
		}
		if existing.CandidateID == candidate.CandidateID && existing.ExamDate == candidate.ExamDate {
			return true
		}
	}
	return false
}

// CreateBatch inserts every schedule or none of them.
func (s *InMemory) CreateBatch(_ context.Context, batch []*models.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	added := make([]id.ScheduleID, 0, len(batch))
	for _, sc := range batch {
		if _, dup := s.schedules[sc.ID]; dup || s.liveConflict(sc, id.ScheduleID{}) {
			for _, a := range added {
				delete(s.schedules, a)
			}
			return sentinel.ErrConflict
		}
		s.schedules[sc.ID] = clone(sc)
		added = append(added, sc.ID)
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, scheduleID id.ScheduleID) (*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schedules[scheduleID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(sc), nil
}

func (s *InMemory) FindByIDForUpdate(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error) {
	return s.FindByID(ctx, scheduleID)
}

func (s *InMemory) Update(_ context.Context, sc *models.Schedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.schedules[sc.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if s.liveConflict(sc, sc.ID) {
		return sentinel.ErrConflict
	}
	s.schedules[sc.ID] = clone(sc)
	return nil
}

// ListByVenueDate returns every schedule at the venue on date, in queue order.
func (s *InMemory) ListByVenueDate(_ context.Context, venueID id.VenueID, date civil.Date) ([]*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Schedule, 0)
	for _, sc := range s.schedules {
		if sc.VenueID == venueID && sc.ExamDate == date {
			out = append(out, clone(sc))
		}
	}
	models.SortQueue(out)
	return out, nil
}

// FindActiveByCandidatesOnDate returns the non-cancelled schedules the given
// candidates hold on date.
func (s *InMemory) FindActiveByCandidatesOnDate(_ context.Context, ids []id.CandidateID, date civil.Date) ([]*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Schedule, 0)
	for _, sc := range s.schedules {
		if sc.ExamDate != date || sc.Status == models.StatusCancelled {
			continue
		}
		if slices.Contains(ids, sc.CandidateID) {
			out = append(out, clone(sc))
		}
	}
	models.SortQueue(out)
	return out, nil
}

func (s *InMemory) List(_ context.Context, filter models.Filter) ([]*models.Schedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Schedule, 0)
	for _, sc := range s.schedules {
		if matches(sc, filter) {
			out = append(out, clone(sc))
		}
	}
	slices.SortFunc(out, func(a, b *models.Schedule) int {
		if c := a.ExamDate.Compare(b.ExamDate); c != 0 {
			return c
		}
		if c := a.StartAt.Compare(b.StartAt); c != 0 {
			return c
		}
		return a.ID.Compare(b.ID)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func matches(sc *models.Schedule, f models.Filter) bool {
	switch {
	case f.ExamDate != nil && sc.ExamDate != *f.ExamDate:
		return false
	case !f.VenueID.IsNil() && sc.VenueID != f.VenueID:
		return false
	case !f.InstitutionID.IsNil() && sc.InstitutionID != f.InstitutionID:
		return false
	case !f.CandidateID.IsNil() && sc.CandidateID != f.CandidateID:
		return false
	case f.Status != "" && sc.Status != f.Status:
		return false
	}
	return true
}

// CountByStatus groups the schedules of date by venue and status. A non-nil
// venue restricts the result to that venue.
func (s *InMemory) CountByStatus(_ context.Context, date civil.Date, venueID *id.VenueID) ([]models.StatusCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	type key struct {
		venue  id.VenueID
		status models.Status
	}
	counts := make(map[key]int)
	for _, sc := range s.schedules {
		if sc.ExamDate != date || (venueID != nil && sc.VenueID != *venueID) {
			continue
		}
		counts[key{sc.VenueID, sc.Status}]++
	}
	out := make([]models.StatusCount, 0, len(counts))
	for k, n := range counts {
		out = append(out, models.StatusCount{VenueID: k.venue, Status: k.status, Count: n})
	}
	slices.SortFunc(out, func(a, b models.StatusCount) int {
		if c := a.VenueID.Compare(b.VenueID); c != 0 {
			return c
		}
		return cmp.Compare(a.Status, b.Status)
	})
	return out, nil
}

func (s *InMemory) Snapshot() func() {
	s.mu.RLock()
	saved := maps.Clone(s.schedules)
	for k, v := range saved {
		saved[k] = clone(v)
	}
	s.mu.RUnlock()
	return func() {
		s.mu.Lock()
		s.schedules = saved
		s.mu.Unlock()
	}
}
