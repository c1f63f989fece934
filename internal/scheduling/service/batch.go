package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	candidatemodels "examsite/internal/candidate/models"
	"examsite/internal/scheduling/events"
	"examsite/internal/scheduling/models"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/requestcontext"
)

// BatchScheduleCommand books the listed candidates into one venue on one
// date. Zero-valued optional fields fall back to the configured defaults.
type BatchScheduleCommand struct {
	CandidateIDs []id.CandidateID
	VenueID      id.VenueID
	ExamDate     civil.Date
	ActivityType models.ActivityType
	ActivityName string

	// DayStart overrides the configured start of the working day.
	DayStart *civil.Time
	// Duration overrides the exam product duration for every slot.
	Duration time.Duration
	// BreakDuration overrides the configured gap between slots.
	BreakDuration      *time.Duration
	MaxPerDay          int
	GroupByInstitution bool
}

// CreateBatchSchedule assigns every candidate a consecutive slot, or none of
// them. The venue row and the candidate rows are locked FOR UPDATE, which
// serialises batches on the same venue or sharing a candidate; the existing
// bookings are then read with plain selects. The partial unique index on
// (candidate, exam date) backs the already-scheduled check.
func (s *Service) CreateBatchSchedule(ctx context.Context, cmd BatchScheduleCommand) (created []*models.Schedule, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.CreateBatchSchedule")
	span.SetAttributes(
		attribute.String("venue_id", cmd.VenueID.String()),
		attribute.String("exam_date", cmd.ExamDate.String()),
		attribute.Int("candidates", len(cmd.CandidateIDs)),
	)
	start := time.Now()
	defer func() {
		s.metrics.ObserveBatch(outcome(err), len(created), time.Since(start))
		endSpan(span, err)
	}()

	if err := s.validateBatch(cmd); err != nil {
		return nil, err
	}
	if cmd.ActivityType == "" {
		cmd.ActivityType = models.ActivityTheory
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		created, txErr = s.scheduleLocked(ctx, cmd)
		return txErr
	})
	if err != nil {
		created = nil
		return nil, err
	}

	s.logger.InfoContext(ctx, "batch scheduled",
		"request_id", requestcontext.RequestID(ctx),
		"venue_id", cmd.VenueID.String(),
		"exam_date", cmd.ExamDate.String(),
		"count", len(created),
	)
	s.emit(ctx, events.SchedulesCreated, cmd.VenueID, cmd.ExamDate, created...)
	return created, nil
}

func (s *Service) validateBatch(cmd BatchScheduleCommand) error {
	switch {
	case len(cmd.CandidateIDs) == 0:
		return dErrors.New(dErrors.CodeValidation, "candidate_ids must not be empty")
	case s.cfg.MaxBatchSize > 0 && len(cmd.CandidateIDs) > s.cfg.MaxBatchSize:
		return dErrors.New(dErrors.CodeValidation, "too many candidates in one batch")
	case cmd.Duration < 0:
		return dErrors.New(dErrors.CodeValidation, "duration must be positive")
	case cmd.BreakDuration != nil && *cmd.BreakDuration < 0:
		return dErrors.New(dErrors.CodeValidation, "break duration must not be negative")
	case cmd.MaxPerDay < 0:
		return dErrors.New(dErrors.CodeValidation, "max_per_day must not be negative")
	}
	seen := make(map[id.CandidateID]struct{}, len(cmd.CandidateIDs))
	for _, cid := range cmd.CandidateIDs {
		if _, dup := seen[cid]; dup {
			return dErrors.New(dErrors.CodeValidation, "candidate "+cid.String()+" is listed twice")
		}
		seen[cid] = struct{}{}
	}
	return nil
}

func (s *Service) scheduleLocked(ctx context.Context, cmd BatchScheduleCommand) ([]*models.Schedule, error) {
	now := requestcontext.Now(ctx)

	venue, err := s.venues.FindByIDForUpdate(ctx, cmd.VenueID)
	if err != nil {
		return nil, translateNotFound(err, "venue not found", "failed to lock venue")
	}
	if !venue.IsActive() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "venue is inactive")
	}

	candidates, err := s.lockCandidates(ctx, cmd.CandidateIDs)
	if err != nil {
		return nil, err
	}
	duration, err := s.slotDuration(ctx, cmd, candidates)
	if err != nil {
		return nil, err
	}

	held, err := s.store.FindActiveByCandidatesOnDate(ctx, cmd.CandidateIDs, cmd.ExamDate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing schedules")
	}
	if len(held) > 0 {
		return nil, dErrors.New(dErrors.CodeAlreadyScheduled,
			"candidate "+held[0].CandidateID.String()+" is already scheduled on "+cmd.ExamDate.String())
	}

	day, err := s.store.ListByVenueDate(ctx, cmd.VenueID, cmd.ExamDate)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load venue schedules")
	}
	live := models.CountLive(day)
	maxPerDay := cmd.MaxPerDay
	if maxPerDay == 0 {
		maxPerDay = s.cfg.MaxPerDay
	}
	if maxPerDay > 0 && live+len(cmd.CandidateIDs) > maxPerDay {
		return nil, dErrors.New(dErrors.CodeCapacityExceeded, capacityMessage(live, len(cmd.CandidateIDs), maxPerDay))
	}

	slots, err := models.PlanSlots(s.planRequest(cmd, candidates, duration, models.LatestEnd(day)))
	if err != nil {
		return nil, err
	}

	byID := make(map[id.CandidateID]*candidatemodels.Candidate, len(candidates))
	for _, c := range candidates {
		byID[c.ID] = c
	}
	createdBy := requestcontext.UserID(ctx)
	batch := make([]*models.Schedule, len(slots))
	for i, slot := range slots {
		c := byID[slot.CandidateID]
		pos := live + i + 1
		batch[i] = &models.Schedule{
			ID:            id.ScheduleID(uuid.New()),
			CandidateID:   c.ID,
			VenueID:       venue.ID,
			ExamProductID: c.ExamProductID,
			InstitutionID: c.InstitutionID,
			ExamDate:      cmd.ExamDate,
			StartAt:       slot.StartAt,
			EndAt:         slot.EndAt,
			ActivityType:  cmd.ActivityType,
			ActivityName:  cmd.ActivityName,
			Status:        models.StatusPending,
			QueuePosition: &pos,
			CreatedBy:     createdBy,
			CreatedAt:     now,
			UpdatedAt:     now,
		}
	}
	if err := s.store.CreateBatch(ctx, batch); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeAlreadyScheduled, "a candidate in the batch is already scheduled on "+cmd.ExamDate.String())
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create schedules")
	}

	for _, c := range candidates {
		c.AssignVenue(venue.ID, now)
		if err := s.candidates.Update(ctx, c); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign venue to candidate")
		}
	}
	return batch, nil
}

// lockCandidates locks every listed candidate and checks it may be booked.
func (s *Service) lockCandidates(ctx context.Context, ids []id.CandidateID) ([]*candidatemodels.Candidate, error) {
	found, err := s.candidates.FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to lock candidates")
	}
	if len(found) != len(ids) {
		present := make(map[id.CandidateID]struct{}, len(found))
		for _, c := range found {
			present[c.ID] = struct{}{}
		}
		for _, cid := range ids {
			if _, ok := present[cid]; !ok {
				return nil, dErrors.New(dErrors.CodeNotFound, "candidate "+cid.String()+" not found")
			}
		}
	}
	for _, c := range found {
		if !c.Status.IsSchedulable() {
			return nil, dErrors.New(dErrors.CodeInvalidState,
				"candidate "+c.ID.String()+" cannot be scheduled while "+string(c.Status))
		}
	}
	return found, nil
}

// slotDuration picks the explicit duration, else the longest exam product
// duration among the candidates, else the configured default.
func (s *Service) slotDuration(ctx context.Context, cmd BatchScheduleCommand, candidates []*candidatemodels.Candidate) (time.Duration, error) {
	var longest time.Duration
	seen := make(map[id.ExamProductID]struct{})
	for _, c := range candidates {
		if _, ok := seen[c.ExamProductID]; ok {
			continue
		}
		seen[c.ExamProductID] = struct{}{}
		product, err := s.catalog.GetExamProduct(ctx, c.ExamProductID)
		if err != nil {
			return 0, err
		}
		if !product.IsActive() {
			return 0, dErrors.New(dErrors.CodeInvalidState, "exam product "+product.Name+" is inactive")
		}
		longest = max(longest, product.Duration)
	}
	switch {
	case cmd.Duration > 0:
		return cmd.Duration, nil
	case longest > 0:
		return longest, nil
	}
	return s.cfg.DefaultDuration, nil
}

func (s *Service) planRequest(cmd BatchScheduleCommand, candidates []*candidatemodels.Candidate, duration time.Duration,
	latestEnd time.Time) models.PlanRequest {
	inst := make(map[id.CandidateID]id.InstitutionID, len(candidates))
	for _, c := range candidates {
		inst[c.ID] = c.InstitutionID
	}
	entries := make([]models.PlanEntry, len(cmd.CandidateIDs))
	for i, cid := range cmd.CandidateIDs {
		entries[i] = models.PlanEntry{CandidateID: cid, InstitutionID: inst[cid]}
	}
	req := models.PlanRequest{
		Entries:            entries,
		Date:               cmd.ExamDate,
		Location:           s.cfg.Location,
		DayStart:           s.cfg.DayStart,
		DayEnd:             s.cfg.DayEnd,
		LatestEnd:          latestEnd,
		Duration:           duration,
		Break:              s.cfg.BreakDuration,
		GroupByInstitution: cmd.GroupByInstitution,
	}
	if cmd.DayStart != nil {
		req.DayStart = *cmd.DayStart
	}
	if cmd.BreakDuration != nil {
		req.Break = *cmd.BreakDuration
	}
	return req
}

func capacityMessage(existing, requested, limit int) string {
	if existing == 0 {
		return fmt.Sprintf("batch of %d exceeds the limit of %d exams per day", requested, limit)
	}
	return fmt.Sprintf("%d exams already booked; adding %d exceeds the limit of %d exams per day",
		existing, requested, limit)
}
