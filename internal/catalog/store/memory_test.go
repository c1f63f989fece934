package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"examsite/internal/catalog/models"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
)

type CatalogStoreSuite struct {
	suite.Suite
	venues       *InMemoryVenues
	institutions *InMemoryInstitutions
	ctx          context.Context
}

func (s *CatalogStoreSuite) SetupTest() {
	s.venues = NewInMemoryVenues()
	s.institutions = NewInMemoryInstitutions()
	s.ctx = context.Background()
}

func TestCatalogStoreSuite(t *testing.T) {
	suite.Run(t, new(CatalogStoreSuite))
}

func (s *CatalogStoreSuite) newVenue(name string, venueType models.VenueType) *models.Venue {
	v, err := models.NewVenue(id.VenueID(uuid.New()), name, "", venueType, 10, time.Now())
	s.Require().NoError(err)
	return v
}

func (s *CatalogStoreSuite) TestVenueLookups() {
	s.Run("creates and finds venue by ID", func() {
		v := s.newVenue("Hall A", models.VenueTheory)
		s.Require().NoError(s.venues.Create(s.ctx, v))

		found, err := s.venues.FindByID(s.ctx, v.ID)
		s.Require().NoError(err)
		s.Equal("Hall A", found.Name)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.venues.FindByID(s.ctx, id.VenueID(uuid.New()))
		s.ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("returned venue is a copy", func() {
		v := s.newVenue("Hall B", models.VenueTheory)
		s.Require().NoError(s.venues.Create(s.ctx, v))

		found, err := s.venues.FindByID(s.ctx, v.ID)
		s.Require().NoError(err)
		found.Capacity = 999

		again, err := s.venues.FindByID(s.ctx, v.ID)
		s.Require().NoError(err)
		s.Equal(10, again.Capacity)
	})
}

func (s *CatalogStoreSuite) TestVenueListFilter() {
	s.Require().NoError(s.venues.Create(s.ctx, s.newVenue("Field 2", models.VenuePractical)))
	s.Require().NoError(s.venues.Create(s.ctx, s.newVenue("Field 1", models.VenuePractical)))
	closed := s.newVenue("Room 9", models.VenueTheory)
	closed.Status = models.StatusInactive
	s.Require().NoError(s.venues.Create(s.ctx, closed))

	practical, err := s.venues.List(s.ctx, models.VenueFilter{Type: models.VenuePractical})
	s.Require().NoError(err)
	s.Require().Len(practical, 2)
	s.Equal("Field 1", practical[0].Name)
	s.Equal("Field 2", practical[1].Name)

	inactive, err := s.venues.List(s.ctx, models.VenueFilter{Status: models.StatusInactive})
	s.Require().NoError(err)
	s.Require().Len(inactive, 1)
	s.Equal(closed.ID, inactive[0].ID)
}

func (s *CatalogStoreSuite) TestVenueSnapshotRestore() {
	v := s.newVenue("Hall A", models.VenueTheory)
	s.Require().NoError(s.venues.Create(s.ctx, v))

	restore := s.venues.Snapshot()
	v.Status = models.StatusInactive
	s.Require().NoError(s.venues.Update(s.ctx, v))
	s.Require().NoError(s.venues.Create(s.ctx, s.newVenue("Hall B", models.VenueTheory)))

	restore()

	all, err := s.venues.List(s.ctx, models.VenueFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal(models.StatusActive, all[0].Status)
}

func (s *CatalogStoreSuite) TestUpdateUnknownVenue() {
	err := s.venues.Update(s.ctx, s.newVenue("Ghost", models.VenueTheory))
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CatalogStoreSuite) TestInstitutionNameUniqueness() {
	first, err := models.NewInstitution(id.InstitutionID(uuid.New()), "Sky Academy", time.Now())
	s.Require().NoError(err)
	s.Require().NoError(s.institutions.CreateIfNameAvailable(s.ctx, first))

	s.Run("rejects duplicate name case-insensitively", func() {
		dup, err := models.NewInstitution(id.InstitutionID(uuid.New()), "SKY ACADEMY", time.Now())
		s.Require().NoError(err)
		s.ErrorIs(s.institutions.CreateIfNameAvailable(s.ctx, dup), sentinel.ErrConflict)
	})

	s.Run("accepts a different name", func() {
		other, err := models.NewInstitution(id.InstitutionID(uuid.New()), "Aero School", time.Now())
		s.Require().NoError(err)
		s.Require().NoError(s.institutions.CreateIfNameAvailable(s.ctx, other))

		all, err := s.institutions.List(s.ctx)
		s.Require().NoError(err)
		s.Require().Len(all, 2)
		s.Equal("Aero School", all[0].Name)
	})
}
