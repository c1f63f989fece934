// Package service is the scheduling engine: it books candidates into venue
// time slots, reports queue positions and runs the check-in state machine.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	candidatemodels "examsite/internal/candidate/models"
	catalogmodels "examsite/internal/catalog/models"
	"examsite/internal/platform/device"
	"examsite/internal/scheduling/checkincode"
	"examsite/internal/scheduling/events"
	"examsite/internal/scheduling/metrics"
	"examsite/internal/scheduling/models"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/requestcontext"
)

const (
	roleInstitution = "institution"
	roleCandidate   = "candidate"
)

// Store persists schedules.
type Store interface {
	CreateBatch(ctx context.Context, batch []*models.Schedule) error
	FindByID(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error)
	FindByIDForUpdate(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error)
	Update(ctx context.Context, s *models.Schedule) error
	ListByVenueDate(ctx context.Context, venueID id.VenueID, date civil.Date) ([]*models.Schedule, error)
	FindActiveByCandidatesOnDate(ctx context.Context, ids []id.CandidateID, date civil.Date) ([]*models.Schedule, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Schedule, error)
	CountByStatus(ctx context.Context, date civil.Date, venueID *id.VenueID) ([]models.StatusCount, error)
}

// CandidateStore is the slice of the candidate registry the engine reads and
// updates inside its transactions.
type CandidateStore interface {
	FindByIDs(ctx context.Context, ids []id.CandidateID) ([]*candidatemodels.Candidate, error)
	FindByIDsForUpdate(ctx context.Context, ids []id.CandidateID) ([]*candidatemodels.Candidate, error)
	Update(ctx context.Context, c *candidatemodels.Candidate) error
}

// VenueLocker locks a venue row for the length of a batch.
type VenueLocker interface {
	FindByIDForUpdate(ctx context.Context, venueID id.VenueID) (*catalogmodels.Venue, error)
}

// Catalog resolves venues and exam products through the catalog cache.
type Catalog interface {
	GetVenue(ctx context.Context, venueID id.VenueID) (*catalogmodels.Venue, error)
	GetExamProduct(ctx context.Context, productID id.ExamProductID) (*catalogmodels.ExamProduct, error)
}

type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Codes issues and resolves check-in codes.
type Codes interface {
	Issue(scheduleID id.ScheduleID, examDate civil.Date, now time.Time) (string, time.Time, error)
	Resolve(code string, now time.Time) (*checkincode.Ticket, error)
}

// Config holds the scheduling defaults and limits.
type Config struct {
	// Location defines the exam calendar: slot clocks and "today" for check-in.
	Location         *time.Location
	DayStart         civil.Time
	DayEnd           civil.Time
	DefaultDuration  time.Duration
	BreakDuration    time.Duration
	MaxPerDay        int
	MaxBatchSize     int
	BatchConcurrency int
}

// Service implements batch scheduling, queue tracking and check-in.
type Service struct {
	store      Store
	candidates CandidateStore
	venues     VenueLocker
	catalog    Catalog
	tx         Transactor
	codes      Codes
	cfg        Config

	publisher events.Publisher
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithPublisher sets where domain events go after commit. Defaults to the log.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

func New(store Store, candidates CandidateStore, venues VenueLocker, catalog Catalog, tx Transactor,
	codes Codes, cfg Config, opts ...Option) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 1
	}
	s := &Service{
		store:      store,
		candidates: candidates,
		venues:     venues,
		catalog:    catalog,
		tx:         tx,
		codes:      codes,
		cfg:        cfg,
		tracer:     otel.Tracer("examsite/scheduling"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = events.NewLogPublisher(s.logger)
	}
	return s
}

// Today is the current exam date in the configured location.
func (s *Service) Today(ctx context.Context) civil.Date {
	return civil.DateOf(requestcontext.Now(ctx).In(s.cfg.Location))
}

// GetSchedule returns a schedule. Schedules of other institutions look
// missing to institution callers.
func (s *Service) GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error) {
	sc, err := s.store.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, translateNotFound(err, "schedule not found", "failed to load schedule")
	}
	if !visibleTo(ctx, sc) {
		return nil, dErrors.New(dErrors.CodeNotFound, "schedule not found")
	}
	return sc, nil
}

// ListSchedules lists schedules matching filter. Institution callers are
// limited to their own institution and candidates to their own schedules.
func (s *Service) ListSchedules(ctx context.Context, filter models.Filter) ([]*models.Schedule, error) {
	if inst, ok := institutionScope(ctx); ok {
		filter.InstitutionID = inst
	}
	if cand, ok := candidateScope(ctx); ok {
		filter.CandidateID = cand
	}
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list schedules")
	}
	return out, nil
}

func institutionScope(ctx context.Context) (id.InstitutionID, bool) {
	p, ok := requestcontext.PrincipalFrom(ctx)
	if !ok || p.Role != roleInstitution {
		return id.InstitutionID{}, false
	}
	return p.InstitutionID, true
}

func candidateScope(ctx context.Context) (id.CandidateID, bool) {
	p, ok := requestcontext.PrincipalFrom(ctx)
	if !ok || p.Role != roleCandidate {
		return id.CandidateID{}, false
	}
	return p.CandidateID, true
}

func visibleTo(ctx context.Context, sc *models.Schedule) bool {
	if cand, ok := candidateScope(ctx); ok {
		return sc.CandidateID == cand
	}
	inst, scoped := institutionScope(ctx)
	return !scoped || sc.InstitutionID == inst
}

func translateNotFound(err error, notFoundMsg, internalMsg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, internalMsg)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(dErrors.CodeOf(err))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome(err))
	}
	span.End()
}

func (s *Service) emit(ctx context.Context, t events.Type, venueID id.VenueID, date civil.Date, schedules ...*models.Schedule) {
	ids := make([]string, len(schedules))
	for i, sc := range schedules {
		ids[i] = sc.ID.String()
	}
	e := events.Event{
		Type:        t,
		OccurredAt:  requestcontext.Now(ctx).UTC(),
		RequestID:   requestcontext.RequestID(ctx),
		VenueID:     venueID.String(),
		ExamDate:    date.String(),
		ScheduleIDs: ids,
	}
	if actor := requestcontext.UserID(ctx); !actor.IsNil() {
		e.ActorID = actor.String()
	}
	if ua := requestcontext.UserAgent(ctx); ua != "" {
		e.Device = device.ParseUserAgent(ua)
	}
	if len(schedules) == 1 {
		e.Status = string(schedules[0].Status)
	}
	s.publisher.Publish(ctx, e)
}
