package service

import (
	"context"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	candidatemodels "examsite/internal/candidate/models"
	"examsite/internal/scheduling/events"
	"examsite/internal/scheduling/models"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/requestcontext"
)

// ScanCheckIn checks in the schedule a code resolves to. The caller on ctx is
// recorded as the checking-in staff member.
func (s *Service) ScanCheckIn(ctx context.Context, code string) (sc *models.Schedule, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.ScanCheckIn")
	defer func() {
		s.metrics.IncrementScan(outcome(err))
		endSpan(span, err)
	}()

	now := requestcontext.Now(ctx)
	ticket, err := s.codes.Resolve(code, now)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("schedule_id", ticket.ScheduleID.String()))

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		sc, txErr = s.checkInLocked(ctx, ticket.ScheduleID, ticket.ExamDate, now)
		return txErr
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "candidate checked in",
		"request_id", requestcontext.RequestID(ctx),
		"schedule_id", sc.ID.String(),
		"venue_id", sc.VenueID.String(),
	)
	s.emit(ctx, events.ScheduleCheckedIn, sc.VenueID, sc.ExamDate, sc)
	return sc, nil
}

func (s *Service) checkInLocked(ctx context.Context, scheduleID id.ScheduleID, codeDate civil.Date, now time.Time) (*models.Schedule, error) {
	sc, err := s.store.FindByIDForUpdate(ctx, scheduleID)
	if err != nil {
		return nil, translateNotFound(err, "check-in code not recognised", "failed to load schedule")
	}
	// A code minted for an earlier booking of the same schedule id is stale.
	if sc.ExamDate != codeDate {
		return nil, dErrors.New(dErrors.CodeNotFound, "check-in code not recognised")
	}
	if sc.Status != models.StatusPending {
		return nil, dErrors.New(dErrors.CodeInvalidState, "schedule is already "+string(sc.Status))
	}
	if today := civil.DateOf(now.In(s.cfg.Location)); sc.ExamDate != today {
		return nil, dErrors.New(dErrors.CodeOutOfWindow,
			"check-in is only open on the exam date "+sc.ExamDate.String())
	}

	if err := sc.CheckIn(requestcontext.UserID(ctx), now); err != nil {
		return nil, err
	}
	if err := s.store.Update(ctx, sc); err != nil {
		return nil, translateNotFound(err, "schedule not found", "failed to save check-in")
	}

	found, err := s.candidates.FindByIDsForUpdate(ctx, []id.CandidateID{sc.CandidateID})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}
	for _, c := range found {
		if c.Status != candidatemodels.StatusApproved {
			continue
		}
		if err := c.TransitionTo(candidatemodels.StatusActive, now); err != nil {
			return nil, err
		}
		if err := s.candidates.Update(ctx, c); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to activate candidate")
		}
	}
	return sc, nil
}

// ScanResult is the outcome of one code in a batch scan.
type ScanResult struct {
	Code     string
	Schedule *models.Schedule
	Err      error
}

// BatchScanCheckIn scans every code independently. One failing code never
// affects the others; each result carries its own error.
func (s *Service) BatchScanCheckIn(ctx context.Context, codes []string) ([]ScanResult, error) {
	if len(codes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "codes must not be empty")
	}
	if s.cfg.MaxBatchSize > 0 && len(codes) > s.cfg.MaxBatchSize {
		return nil, dErrors.New(dErrors.CodeValidation, "too many codes in one batch")
	}
	s.metrics.ObserveBatchScanSize(len(codes))

	ctx, span := s.tracer.Start(ctx, "scheduling.BatchScanCheckIn")
	span.SetAttributes(attribute.Int("codes", len(codes)))
	defer span.End()

	results := make([]ScanResult, len(codes))
	var g errgroup.Group
	g.SetLimit(s.cfg.BatchConcurrency)
	for i, code := range codes {
		g.Go(func() error {
			sc, err := s.ScanCheckIn(ctx, code)
			results[i] = ScanResult{Code: code, Schedule: sc, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results, nil
}

// VenueStats counts one venue's schedules on a date by status.
type VenueStats struct {
	VenueID     id.VenueID
	Counts      map[models.Status]int
	Total       int
	CheckInRate float64
}

// CheckInStats aggregates check-in progress across venues for one date.
type CheckInStats struct {
	ExamDate    civil.Date
	Venues      []VenueStats
	Counts      map[models.Status]int
	Total       int
	CheckInRate float64
}

// GetCheckInStats groups the schedules of date by venue and status. A nil
// venue covers every venue.
func (s *Service) GetCheckInStats(ctx context.Context, date civil.Date, venueID *id.VenueID) (*CheckInStats, error) {
	rows, err := s.store.CountByStatus(ctx, date, venueID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count schedules")
	}
	stats := &CheckInStats{ExamDate: date, Counts: emptyCounts(), Venues: make([]VenueStats, 0)}
	index := make(map[id.VenueID]int)
	for _, r := range rows {
		i, ok := index[r.VenueID]
		if !ok {
			i = len(stats.Venues)
			index[r.VenueID] = i
			stats.Venues = append(stats.Venues, VenueStats{VenueID: r.VenueID, Counts: emptyCounts()})
		}
		stats.Venues[i].Counts[r.Status] += r.Count
		stats.Venues[i].Total += r.Count
		stats.Counts[r.Status] += r.Count
		stats.Total += r.Count
	}
	for i := range stats.Venues {
		stats.Venues[i].CheckInRate = checkInRate(stats.Venues[i].Counts)
	}
	stats.CheckInRate = checkInRate(stats.Counts)
	return stats, nil
}

func emptyCounts() map[models.Status]int {
	m := make(map[models.Status]int, len(models.AllStatuses))
	for _, st := range models.AllStatuses {
		m[st] = 0
	}
	return m
}

// checkInRate is the share of live schedules that have been checked in or
// completed. Cancelled schedules are left out of the denominator.
func checkInRate(counts map[models.Status]int) float64 {
	arrived := counts[models.StatusCheckedIn] + counts[models.StatusCompleted]
	live := arrived + counts[models.StatusPending]
	if live == 0 {
		return 0
	}
	return float64(arrived) / float64(live)
}

// CompleteSchedule closes a checked-in schedule.
func (s *Service) CompleteSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error) {
	sc, err := s.transition(ctx, scheduleID, (*models.Schedule).Complete)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.ScheduleCompleted, sc.VenueID, sc.ExamDate, sc)
	return sc, nil
}

// CancelSchedule cancels a pending or checked-in schedule, freeing the
// candidate's date for a new booking.
func (s *Service) CancelSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error) {
	sc, err := s.transition(ctx, scheduleID, (*models.Schedule).Cancel)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, events.ScheduleCancelled, sc.VenueID, sc.ExamDate, sc)
	return sc, nil
}

func (s *Service) transition(ctx context.Context, scheduleID id.ScheduleID,
	apply func(*models.Schedule, time.Time) error) (*models.Schedule, error) {
	var sc *models.Schedule
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		locked, err := s.store.FindByIDForUpdate(ctx, scheduleID)
		if err != nil {
			return translateNotFound(err, "schedule not found", "failed to load schedule")
		}
		if !visibleTo(ctx, locked) {
			return dErrors.New(dErrors.CodeNotFound, "schedule not found")
		}
		if err := apply(locked, requestcontext.Now(ctx)); err != nil {
			return err
		}
		if err := s.store.Update(ctx, locked); err != nil {
			return translateNotFound(err, "schedule not found", "failed to update schedule")
		}
		sc = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "schedule status changed",
		"request_id", requestcontext.RequestID(ctx),
		"schedule_id", sc.ID.String(),
		"status", string(sc.Status),
	)
	return sc, nil
}

// CheckInCode is a signed code for one schedule.
type CheckInCode struct {
	ScheduleID id.ScheduleID
	Code       string
	ExpiresAt  time.Time
}

// IssueCheckInCode mints the code printed on a pending schedule's admission
// slip.
func (s *Service) IssueCheckInCode(ctx context.Context, scheduleID id.ScheduleID) (*CheckInCode, error) {
	sc, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if sc.Status != models.StatusPending {
		return nil, dErrors.New(dErrors.CodeInvalidState, "schedule is already "+string(sc.Status))
	}
	code, expires, err := s.codes.Issue(sc.ID, sc.ExamDate, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	return &CheckInCode{ScheduleID: sc.ID, Code: code, ExpiresAt: expires}, nil
}
