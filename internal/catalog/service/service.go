package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"examsite/internal/catalog/cache"
	"examsite/internal/catalog/models"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/requestcontext"
)

type VenueStore interface {
	Create(ctx context.Context, v *models.Venue) error
	FindByID(ctx context.Context, venueID id.VenueID) (*models.Venue, error)
	List(ctx context.Context, filter models.VenueFilter) ([]*models.Venue, error)
	Update(ctx context.Context, v *models.Venue) error
}

type ExamProductStore interface {
	Create(ctx context.Context, p *models.ExamProduct) error
	FindByID(ctx context.Context, productID id.ExamProductID) (*models.ExamProduct, error)
	List(ctx context.Context) ([]*models.ExamProduct, error)
}

type InstitutionStore interface {
	CreateIfNameAvailable(ctx context.Context, inst *models.Institution) error
	FindByID(ctx context.Context, instID id.InstitutionID) (*models.Institution, error)
	List(ctx context.Context) ([]*models.Institution, error)
}

// Service manages the catalog of institutions, venues and exam products.
type Service struct {
	venues       VenueStore
	products     ExamProductStore
	institutions InstitutionStore
	cache        *cache.Cache
	logger       *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithCache enables the Redis read-through cache for venue and product lookups.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

func New(venues VenueStore, products ExamProductStore, institutions InstitutionStore, opts ...Option) *Service {
	s := &Service{venues: venues, products: products, institutions: institutions, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInstitutionCommand carries validated input for a new institution.
type CreateInstitutionCommand struct {
	Name string
}

func (s *Service) CreateInstitution(ctx context.Context, cmd CreateInstitutionCommand) (*models.Institution, error) {
	inst, err := models.NewInstitution(id.InstitutionID(uuid.New()), cmd.Name, requestcontext.Now(ctx))
	if err != nil {
		return nil, invariantToValidation(err)
	}
	if err := s.institutions.CreateIfNameAvailable(ctx, inst); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "institution name must be unique")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create institution")
	}
	s.logger.InfoContext(ctx, "institution created",
		"request_id", requestcontext.RequestID(ctx),
		"institution_id", inst.ID.String(),
	)
	return inst, nil
}

func (s *Service) GetInstitution(ctx context.Context, instID id.InstitutionID) (*models.Institution, error) {
	inst, err := s.institutions.FindByID(ctx, instID)
	if err != nil {
		return nil, translateNotFound(err, "institution not found", "failed to load institution")
	}
	return inst, nil
}

func (s *Service) ListInstitutions(ctx context.Context) ([]*models.Institution, error) {
	out, err := s.institutions.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list institutions")
	}
	return out, nil
}

type CreateVenueCommand struct {
	Name     string
	Address  string
	Type     models.VenueType
	Capacity int
}

func (s *Service) CreateVenue(ctx context.Context, cmd CreateVenueCommand) (*models.Venue, error) {
	v, err := models.NewVenue(id.VenueID(uuid.New()), cmd.Name, cmd.Address, cmd.Type, cmd.Capacity, requestcontext.Now(ctx))
	if err != nil {
		return nil, invariantToValidation(err)
	}
	if err := s.venues.Create(ctx, v); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create venue")
	}
	s.logger.InfoContext(ctx, "venue created",
		"request_id", requestcontext.RequestID(ctx),
		"venue_id", v.ID.String(),
		"type", string(v.Type),
	)
	return v, nil
}

func (s *Service) GetVenue(ctx context.Context, venueID id.VenueID) (*models.Venue, error) {
	var (
		v   *models.Venue
		err error
	)
	if s.cache != nil {
		v, err = s.cache.Venue(ctx, venueID, s.venues)
	} else {
		v, err = s.venues.FindByID(ctx, venueID)
	}
	if err != nil {
		return nil, translateNotFound(err, "venue not found", "failed to load venue")
	}
	return v, nil
}

func (s *Service) ListVenues(ctx context.Context, filter models.VenueFilter) ([]*models.Venue, error) {
	out, err := s.venues.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list venues")
	}
	return out, nil
}

// SetVenueStatus activates or deactivates a venue. Inactive venues reject new
// batch schedules but keep their existing ones.
func (s *Service) SetVenueStatus(ctx context.Context, venueID id.VenueID, status models.ResourceStatus) (*models.Venue, error) {
	v, err := s.venues.FindByID(ctx, venueID)
	if err != nil {
		return nil, translateNotFound(err, "venue not found", "failed to load venue")
	}
	v.Status = status
	v.UpdatedAt = requestcontext.Now(ctx)
	if err := s.venues.Update(ctx, v); err != nil {
		return nil, translateNotFound(err, "venue not found", "failed to update venue")
	}
	if s.cache != nil {
		s.cache.InvalidateVenue(ctx, venueID)
	}
	s.logger.InfoContext(ctx, "venue status changed",
		"request_id", requestcontext.RequestID(ctx),
		"venue_id", venueID.String(),
		"status", string(status),
	)
	return v, nil
}

type CreateExamProductCommand struct {
	Name               string
	Description        string
	Category           models.Category
	AircraftType       models.AircraftType
	Duration           time.Duration
	TheoryPassScore    int
	PracticalPassScore int
}

func (s *Service) CreateExamProduct(ctx context.Context, cmd CreateExamProductCommand) (*models.ExamProduct, error) {
	p, err := models.NewExamProduct(id.ExamProductID(uuid.New()), cmd.Name, cmd.Description, cmd.Category,
		cmd.AircraftType, cmd.Duration, cmd.TheoryPassScore, cmd.PracticalPassScore, requestcontext.Now(ctx))
	if err != nil {
		return nil, invariantToValidation(err)
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create exam product")
	}
	s.logger.InfoContext(ctx, "exam product created",
		"request_id", requestcontext.RequestID(ctx),
		"exam_product_id", p.ID.String(),
	)
	return p, nil
}

func (s *Service) GetExamProduct(ctx context.Context, productID id.ExamProductID) (*models.ExamProduct, error) {
	var (
		p   *models.ExamProduct
		err error
	)
	if s.cache != nil {
		p, err = s.cache.ExamProduct(ctx, productID, s.products)
	} else {
		p, err = s.products.FindByID(ctx, productID)
	}
	if err != nil {
		return nil, translateNotFound(err, "exam product not found", "failed to load exam product")
	}
	return p, nil
}

func (s *Service) ListExamProducts(ctx context.Context) ([]*models.ExamProduct, error) {
	out, err := s.products.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list exam products")
	}
	return out, nil
}

func invariantToValidation(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
		de, _ := dErrors.As(err)
		return dErrors.New(dErrors.CodeValidation, de.Message)
	}
	return err
}

func translateNotFound(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}
