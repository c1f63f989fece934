//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"examsite/internal/candidate/models"
	"examsite/internal/candidate/store"
	catalogmodels "examsite/internal/catalog/models"
	catalogstore "examsite/internal/catalog/store"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/testutil/containers"
)

type PostgresCandidateSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
	inst     id.InstitutionID
	product  id.ExamProductID
}

func TestPostgresCandidateSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresCandidateSuite))
}

func (s *PostgresCandidateSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresCandidateSuite) SetupTest() {
	ctx := context.Background()
	s.Require().NoError(s.postgres.TruncateTables(ctx,
		"schedules", "candidates", "users", "exam_products", "venues", "institutions"))

	now := time.Now().UTC()
	inst, err := catalogmodels.NewInstitution(id.InstitutionID(uuid.New()), "Academy "+uuid.NewString(), now)
	s.Require().NoError(err)
	s.Require().NoError(catalogstore.NewPostgresInstitutions(s.postgres.DB).CreateIfNameAvailable(ctx, inst))
	p, err := catalogmodels.NewExamProduct(id.ExamProductID(uuid.New()), "VLOS", "", catalogmodels.CategoryVLOS,
		catalogmodels.AircraftMultirotor, 15*time.Minute, 70, 80, now)
	s.Require().NoError(err)
	s.Require().NoError(catalogstore.NewPostgresExamProducts(s.postgres.DB).Create(ctx, p))
	s.inst, s.product = inst.ID, p.ID
}

func (s *PostgresCandidateSuite) newCandidate(idNumber string) *models.Candidate {
	c, err := models.NewCandidate(id.CandidateID(uuid.New()), "Li Na", idNumber, "", s.inst, s.product, time.Now().UTC())
	s.Require().NoError(err)
	return c
}

func (s *PostgresCandidateSuite) TestUniqueIDNumber() {
	ctx := context.Background()
	s.Require().NoError(s.store.Create(ctx, s.newCandidate("110105199001010011")))
	s.ErrorIs(s.store.Create(ctx, s.newCandidate("110105199001010011")), sentinel.ErrConflict)

	found, err := s.store.FindByIDNumber(ctx, "110105199001010011")
	s.Require().NoError(err)
	s.Equal("110105199001010011", found.IDNumber)

	_, err = s.store.FindByIDNumber(ctx, "110105199001010022")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresCandidateSuite) TestFindByIDsForUpdateAndList() {
	ctx := context.Background()
	a := s.newCandidate("110105199001010011")
	b := s.newCandidate("110105199001010022")
	s.Require().NoError(s.store.Create(ctx, a))
	s.Require().NoError(s.store.Create(ctx, b))

	locked, err := s.store.FindByIDsForUpdate(ctx, []id.CandidateID{a.ID, b.ID, id.CandidateID(uuid.New())})
	s.Require().NoError(err)
	s.Len(locked, 2)

	items, total, err := s.store.List(ctx, models.Filter{InstitutionID: s.inst, Limit: 1})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Len(items, 1)

	all, _, err := s.store.List(ctx, models.Filter{})
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *PostgresCandidateSuite) TestUpdateAssignedVenue() {
	ctx := context.Background()
	c := s.newCandidate("110105199001010011")
	s.Require().NoError(s.store.Create(ctx, c))

	v, err := catalogmodels.NewVenue(id.VenueID(uuid.New()), "Hall", "", catalogmodels.VenueTheory, 10, time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(catalogstore.NewPostgresVenues(s.postgres.DB).Create(ctx, v))

	c.AssignVenue(v.ID, time.Now().UTC())
	s.Require().NoError(c.TransitionTo(models.StatusApproved, time.Now().UTC()))
	s.Require().NoError(s.store.Update(ctx, c))

	found, err := s.store.FindByID(ctx, c.ID)
	s.Require().NoError(err)
	s.Require().NotNil(found.AssignedVenueID)
	s.Equal(v.ID, *found.AssignedVenueID)
	s.Equal(models.StatusApproved, found.Status)
}
