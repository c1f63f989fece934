package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"examsite/internal/candidate/models"
	catalogmodels "examsite/internal/catalog/models"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/requestcontext"
)

const roleInstitution = "institution"

type Store interface {
	Create(ctx context.Context, c *models.Candidate) error
	FindByID(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error)
	FindByIDNumber(ctx context.Context, idNumber string) (*models.Candidate, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Candidate, int, error)
	Update(ctx context.Context, c *models.Candidate) error
}

// Catalog resolves the references a candidate points at.
type Catalog interface {
	GetInstitution(ctx context.Context, instID id.InstitutionID) (*catalogmodels.Institution, error)
	GetExamProduct(ctx context.Context, productID id.ExamProductID) (*catalogmodels.ExamProduct, error)
	ListExamProducts(ctx context.Context) ([]*catalogmodels.ExamProduct, error)
}

type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTx struct{}

func (noTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }

// Service registers candidates and moves them through their lifecycle.
// Institution callers only ever see their own candidates.
type Service struct {
	store   Store
	catalog Catalog
	tx      Transactor
	logger  *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithTransactor makes bulk imports all-or-nothing. Without it each imported
// row commits on its own.
func WithTransactor(tx Transactor) Option {
	return func(s *Service) {
		s.tx = tx
	}
}

func New(store Store, catalog Catalog, opts ...Option) *Service {
	s := &Service{store: store, catalog: catalog, tx: noTx{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterCommand struct {
	Name          string
	IDNumber      string
	Phone         string
	InstitutionID id.InstitutionID
	ExamProductID id.ExamProductID
}

func (s *Service) Register(ctx context.Context, cmd RegisterCommand) (*models.Candidate, error) {
	instID, err := s.registeringInstitution(ctx, cmd.InstitutionID)
	if err != nil {
		return nil, err
	}
	cmd.InstitutionID = instID

	idNumber, err := models.NormalizeIDNumber(cmd.IDNumber)
	if err != nil {
		return nil, err
	}
	product, err := s.catalog.GetExamProduct(ctx, cmd.ExamProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "exam product is inactive")
	}

	c, err := models.NewCandidate(id.CandidateID(uuid.New()), cmd.Name, idNumber, cmd.Phone,
		cmd.InstitutionID, cmd.ExamProductID, requestcontext.Now(ctx))
	if err != nil {
		de, _ := dErrors.As(err)
		return nil, dErrors.New(dErrors.CodeValidation, de.Message)
	}
	if err := s.store.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a candidate with this id_number already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register candidate")
	}
	s.logger.InfoContext(ctx, "candidate registered",
		"request_id", requestcontext.RequestID(ctx),
		"candidate_id", c.ID.String(),
		"institution_id", c.InstitutionID.String(),
	)
	return c, nil
}

// registeringInstitution resolves the institution new candidates belong to.
// Institution callers default to, and are limited to, their own.
func (s *Service) registeringInstitution(ctx context.Context, instID id.InstitutionID) (id.InstitutionID, error) {
	if p, ok := requestcontext.PrincipalFrom(ctx); ok && p.Role == roleInstitution {
		if instID.IsNil() {
			instID = p.InstitutionID
		}
		if instID != p.InstitutionID {
			return id.InstitutionID{}, dErrors.New(dErrors.CodeForbidden, "cannot register candidates for another institution")
		}
	}
	inst, err := s.catalog.GetInstitution(ctx, instID)
	if err != nil {
		return id.InstitutionID{}, err
	}
	if !inst.IsActive() {
		return id.InstitutionID{}, dErrors.New(dErrors.CodeInvalidState, "institution is inactive")
	}
	return inst.ID, nil
}

// Get returns the candidate. Candidates of other institutions look missing to
// institution callers.
func (s *Service) Get(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	c, err := s.store.FindByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "candidate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}
	if !visible(ctx, c) {
		return nil, dErrors.New(dErrors.CodeNotFound, "candidate not found")
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, filter models.Filter) ([]*models.Candidate, int, error) {
	if p, ok := requestcontext.PrincipalFrom(ctx); ok && p.Role == roleInstitution {
		filter.InstitutionID = p.InstitutionID
	}
	out, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}
	return out, total, nil
}

// UpdateStatus applies a lifecycle transition. Institution callers may only
// resubmit their own rejected candidates for review.
func (s *Service) UpdateStatus(ctx context.Context, candidateID id.CandidateID, next models.Status) (*models.Candidate, error) {
	c, err := s.Get(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if p, ok := requestcontext.PrincipalFrom(ctx); ok && p.Role == roleInstitution && next != models.StatusPendingReview {
		return nil, dErrors.New(dErrors.CodeForbidden, "institutions may only resubmit candidates for review")
	}
	prev := c.Status
	if err := c.TransitionTo(next, requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "candidate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update candidate")
	}
	s.logger.InfoContext(ctx, "candidate status changed",
		"request_id", requestcontext.RequestID(ctx),
		"candidate_id", c.ID.String(),
		"from", string(prev),
		"to", string(next),
	)
	return c, nil
}

func visible(ctx context.Context, c *models.Candidate) bool {
	p, ok := requestcontext.PrincipalFrom(ctx)
	if !ok || p.Role != roleInstitution {
		return true
	}
	return c.InstitutionID == p.InstitutionID
}
