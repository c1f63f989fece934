package store

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"examsite/internal/scheduling/models"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
)

type ScheduleStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
	venue id.VenueID
	date  civil.Date
	base  time.Time
}

func TestScheduleStoreSuite(t *testing.T) {
	suite.Run(t, new(ScheduleStoreSuite))
}

func (s *ScheduleStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
	s.venue = id.VenueID(uuid.New())
	s.date = civil.Date{Year: 2026, Month: time.May, Day: 1}
	s.base = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
}

func (s *ScheduleStoreSuite) newSchedule(candidate id.CandidateID, offset time.Duration) *models.Schedule {
	start := s.base.Add(offset)
	return &models.Schedule{
		ID:           id.ScheduleID(uuid.New()),
		CandidateID:  candidate,
		VenueID:      s.venue,
		ExamDate:     s.date,
		StartAt:      start,
		EndAt:        start.Add(15 * time.Minute),
		ActivityType: models.ActivityTheory,
		Status:       models.StatusPending,
	}
}

func (s *ScheduleStoreSuite) TestCreateBatchIsAllOrNothing() {
	taken := id.CandidateID(uuid.New())
	s.Require().NoError(s.store.CreateBatch(s.ctx, []*models.Schedule{s.newSchedule(taken, 0)}))

	batch := []*models.Schedule{
		s.newSchedule(id.CandidateID(uuid.New()), 15*time.Minute),
		s.newSchedule(taken, 30*time.Minute),
	}
	s.ErrorIs(s.store.CreateBatch(s.ctx, batch), sentinel.ErrConflict)

	day, err := s.store.ListByVenueDate(s.ctx, s.venue, s.date)
	s.Require().NoError(err)
	s.Len(day, 1)
}

func (s *ScheduleStoreSuite) TestCancelledBookingFreesTheDate() {
	cand := id.CandidateID(uuid.New())
	first := s.newSchedule(cand, 0)
	s.Require().NoError(s.store.CreateBatch(s.ctx, []*models.Schedule{first}))

	first.Status = models.StatusCancelled
	s.Require().NoError(s.store.Update(s.ctx, first))
	s.NoError(s.store.CreateBatch(s.ctx, []*models.Schedule{s.newSchedule(cand, time.Hour)}))

	active, err := s.store.FindActiveByCandidatesOnDate(s.ctx, []id.CandidateID{cand}, s.date)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.NotEqual(first.ID, active[0].ID)
}

func (s *ScheduleStoreSuite) TestListByVenueDateOrdersByStart() {
	late := s.newSchedule(id.CandidateID(uuid.New()), time.Hour)
	early := s.newSchedule(id.CandidateID(uuid.New()), 0)
	other := s.newSchedule(id.CandidateID(uuid.New()), 0)
	other.VenueID = id.VenueID(uuid.New())
	s.Require().NoError(s.store.CreateBatch(s.ctx, []*models.Schedule{late, early, other}))

	day, err := s.store.ListByVenueDate(s.ctx, s.venue, s.date)
	s.Require().NoError(err)
	s.Require().Len(day, 2)
	s.Equal(early.ID, day[0].ID)
	s.Equal(late.ID, day[1].ID)
}

func (s *ScheduleStoreSuite) TestListFilters() {
	inst := id.InstitutionID(uuid.New())
	a := s.newSchedule(id.CandidateID(uuid.New()), 0)
	a.InstitutionID = inst
	b := s.newSchedule(id.CandidateID(uuid.New()), 15*time.Minute)
	b.Status = models.StatusCheckedIn
	s.Require().NoError(s.store.CreateBatch(s.ctx, []*models.Schedule{a, b}))

	got, err := s.store.List(s.ctx, models.Filter{InstitutionID: inst})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(a.ID, got[0].ID)

	got, err = s.store.List(s.ctx, models.Filter{ExamDate: &s.date, Status: models.StatusCheckedIn})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(b.ID, got[0].ID)

	got, err = s.store.List(s.ctx, models.Filter{Limit: 1})
	s.Require().NoError(err)
	s.Len(got, 1)
}

func (s *ScheduleStoreSuite) TestCountByStatus() {
	a := s.newSchedule(id.CandidateID(uuid.New()), 0)
	b := s.newSchedule(id.CandidateID(uuid.New()), 15*time.Minute)
	c := s.newSchedule(id.CandidateID(uuid.New()), 30*time.Minute)
	c.Status = models.StatusCheckedIn
	s.Require().NoError(s.store.CreateBatch(s.ctx, []*models.Schedule{a, b, c}))

	counts, err := s.store.CountByStatus(s.ctx, s.date, &s.venue)
	s.Require().NoError(err)
	s.Equal([]models.StatusCount{
		{VenueID: s.venue, Status: models.StatusCheckedIn, Count: 1},
		{VenueID: s.venue, Status: models.StatusPending, Count: 2},
	}, counts)

	other := civil.Date{Year: 2026, Month: time.May, Day: 2}
	counts, err = s.store.CountByStatus(s.ctx, other, nil)
	s.Require().NoError(err)
	s.Empty(counts)
}

func (s *ScheduleStoreSuite) TestSnapshotRestore() {
	restore := s.store.Snapshot()
	s.Require().NoError(s.store.CreateBatch(s.ctx, []*models.Schedule{s.newSchedule(id.CandidateID(uuid.New()), 0)}))
	restore()

	day, err := s.store.ListByVenueDate(s.ctx, s.venue, s.date)
	s.Require().NoError(err)
	s.Empty(day)
}

func (s *ScheduleStoreSuite) TestReturnedSchedulesAreCopies() {
	sc := s.newSchedule(id.CandidateID(uuid.New()), 0)
	s.Require().NoError(s.store.CreateBatch(s.ctx, []*models.Schedule{sc}))

	found, err := s.store.FindByID(s.ctx, sc.ID)
	s.Require().NoError(err)
	found.Status = models.StatusCancelled

	again, err := s.store.FindByID(s.ctx, sc.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, again.Status)

	_, err = s.store.FindByID(s.ctx, id.ScheduleID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
