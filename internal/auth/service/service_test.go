package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"examsite/internal/auth/models"
	"examsite/internal/auth/store"
	candidatemodels "examsite/internal/candidate/models"
	candidatestore "examsite/internal/candidate/store"
	catalogservice "examsite/internal/catalog/service"
	catalogstore "examsite/internal/catalog/store"
	"examsite/internal/jwttoken"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

type AuthServiceSuite struct {
	suite.Suite
	service    *Service
	candidates *candidatestore.InMemory
	jwt        *jwttoken.JWTService
	catalog    *catalogservice.Service
	ctx        context.Context
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.catalog = catalogservice.New(catalogstore.NewInMemoryVenues(), catalogstore.NewInMemoryExamProducts(),
		catalogstore.NewInMemoryInstitutions(), catalogservice.WithLogger(logger))
	s.jwt = jwttoken.NewJWTService("test-signing-key", "examsite", "examsite-api")
	s.candidates = candidatestore.NewInMemory()
	s.service = New(store.NewInMemoryUsers(), s.jwt, s.catalog, time.Hour,
		WithLogger(logger), WithBcryptCost(bcrypt.MinCost), WithCandidates(s.candidates))
	s.ctx = context.Background()
}

func (s *AuthServiceSuite) TestLoginIssuesToken() {
	u, err := s.service.CreateUser(s.ctx, CreateUserCommand{Username: "desk01", Password: "s3cret-pass", Role: models.RoleStaff})
	s.Require().NoError(err)
	s.NotEqual("s3cret-pass", u.PasswordHash)

	res, err := s.service.Login(s.ctx, "DESK01", "s3cret-pass")
	s.Require().NoError(err)
	s.Equal(time.Hour, res.ExpiresIn)

	claims, err := s.jwt.ValidateToken(res.AccessToken)
	s.Require().NoError(err)
	s.Equal(u.ID.String(), claims.UserID)
	s.Equal("staff", claims.Role)
	s.Empty(claims.InstitutionID)
}

func (s *AuthServiceSuite) TestLoginFailuresLookAlike() {
	_, err := s.service.CreateUser(s.ctx, CreateUserCommand{Username: "desk01", Password: "s3cret-pass", Role: models.RoleStaff})
	s.Require().NoError(err)

	_, wrongPassword := s.service.Login(s.ctx, "desk01", "nope-nope")
	_, unknownUser := s.service.Login(s.ctx, "ghost", "s3cret-pass")

	s.True(dErrors.HasCode(wrongPassword, dErrors.CodeUnauthorized))
	s.True(dErrors.HasCode(unknownUser, dErrors.CodeUnauthorized))
	s.Equal(wrongPassword.Error(), unknownUser.Error())
}

func (s *AuthServiceSuite) registerCandidate(idNumber string, status candidatemodels.Status) *candidatemodels.Candidate {
	c, err := candidatemodels.NewCandidate(id.CandidateID(uuid.New()), "Li Na", idNumber, "",
		id.InstitutionID(uuid.New()), id.ExamProductID(uuid.New()), time.Now())
	s.Require().NoError(err)
	if status == candidatemodels.StatusRejected {
		s.Require().NoError(c.TransitionTo(candidatemodels.StatusRejected, time.Now()))
	}
	s.Require().NoError(s.candidates.Create(s.ctx, c))
	return c
}

func (s *AuthServiceSuite) TestCandidateLogin() {
	c := s.registerCandidate("11010519900101001X", candidatemodels.StatusPendingReview)

	res, err := s.service.CandidateLogin(s.ctx, " 11010519900101001x ")
	s.Require().NoError(err)
	s.Equal(c.ID, res.Candidate.ID)

	claims, err := s.jwt.ValidateToken(res.AccessToken)
	s.Require().NoError(err)
	s.Equal(jwttoken.RoleCandidate, claims.Role)
	s.Equal(c.ID.String(), claims.CandidateID)
	s.Empty(claims.UserID)
}

func (s *AuthServiceSuite) TestCandidateLoginFailuresLookAlike() {
	s.registerCandidate("110105199001010022", candidatemodels.StatusRejected)

	_, unknown := s.service.CandidateLogin(s.ctx, "110105199001010033")
	_, rejected := s.service.CandidateLogin(s.ctx, "110105199001010022")
	_, malformed := s.service.CandidateLogin(s.ctx, "12345")

	for _, err := range []error{unknown, rejected, malformed} {
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal(unknown.Error(), err.Error())
	}
}

func (s *AuthServiceSuite) TestInstitutionAccounts() {
	inst, err := s.catalog.CreateInstitution(s.ctx, catalogservice.CreateInstitutionCommand{Name: "Sky Academy"})
	s.Require().NoError(err)

	s.Run("bound to an existing institution", func() {
		u, err := s.service.CreateUser(s.ctx, CreateUserCommand{
			Username: "sky", Password: "password1", Role: models.RoleInstitution, InstitutionID: inst.ID,
		})
		s.Require().NoError(err)

		res, err := s.service.Login(s.ctx, "sky", "password1")
		s.Require().NoError(err)
		claims, err := s.jwt.ValidateToken(res.AccessToken)
		s.Require().NoError(err)
		s.Equal(inst.ID.String(), claims.InstitutionID)
		s.Equal(u.ID.String(), claims.UserID)
	})

	s.Run("unknown institution is not found", func() {
		_, err := s.service.CreateUser(s.ctx, CreateUserCommand{
			Username: "ghost", Password: "password1", Role: models.RoleInstitution, InstitutionID: id.InstitutionID(uuid.New()),
		})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("staff cannot carry an institution", func() {
		_, err := s.service.CreateUser(s.ctx, CreateUserCommand{
			Username: "mixed", Password: "password1", Role: models.RoleStaff, InstitutionID: inst.ID,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *AuthServiceSuite) TestCreateUserValidation() {
	_, err := s.service.CreateUser(s.ctx, CreateUserCommand{Username: "short", Password: "abc", Role: models.RoleStaff})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.service.CreateUser(s.ctx, CreateUserCommand{Username: "dup", Password: "password1", Role: models.RoleStaff})
	s.Require().NoError(err)
	_, err = s.service.CreateUser(s.ctx, CreateUserCommand{Username: "DUP", Password: "password1", Role: models.RoleAdmin})
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *AuthServiceSuite) TestEnsureBootstrapAdmin() {
	created, err := s.service.EnsureBootstrapAdmin(s.ctx, "admin", "admin-password")
	s.Require().NoError(err)
	s.True(created)

	created, err = s.service.EnsureBootstrapAdmin(s.ctx, "admin", "other-password")
	s.Require().NoError(err)
	s.False(created)

	_, err = s.service.Login(s.ctx, "admin", "admin-password")
	s.Require().NoError(err)

	created, err = s.service.EnsureBootstrapAdmin(s.ctx, "", "")
	s.Require().NoError(err)
	s.False(created)
}
