package service

import (
	"context"
	"slices"
	"time"

	"cloud.google.com/go/civil"
	"go.opentelemetry.io/otel/attribute"

	"examsite/internal/scheduling/models"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

// GetQueuePosition reports where a pending schedule stands at its venue and
// date. It is recomputed from the store on every call.
func (s *Service) GetQueuePosition(ctx context.Context, scheduleID id.ScheduleID) (pos models.QueuePosition, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.GetQueuePosition")
	span.SetAttributes(attribute.String("schedule_id", scheduleID.String()))
	defer func() { endSpan(span, err) }()

	sc, err := s.GetSchedule(ctx, scheduleID)
	if err != nil {
		return models.QueuePosition{}, err
	}
	if sc.Status != models.StatusPending {
		return models.QueuePosition{}, dErrors.New(dErrors.CodeNotFound, "schedule is not waiting in a queue")
	}
	day, err := s.store.ListByVenueDate(ctx, sc.VenueID, sc.ExamDate)
	if err != nil {
		return models.QueuePosition{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load venue queue")
	}
	pos, ok := models.ComputeQueuePosition(sc.ID, day)
	if !ok {
		return models.QueuePosition{}, dErrors.New(dErrors.CodeNotFound, "schedule is not waiting in a queue")
	}
	return pos, nil
}

// CandidateQueueEntry is one of a candidate's pending schedules for today and
// its place in the venue queue.
type CandidateQueueEntry struct {
	Schedule  *models.Schedule
	VenueName string
	Position  models.QueuePosition
}

// CandidateQueueStatus lists the candidate's pending schedules for today with
// their queue positions. A candidate caller can only ask about itself.
func (s *Service) CandidateQueueStatus(ctx context.Context, candidateID id.CandidateID) (out []CandidateQueueEntry, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.CandidateQueueStatus")
	defer func() { endSpan(span, err) }()

	if cand, ok := candidateScope(ctx); ok && cand != candidateID {
		return nil, dErrors.New(dErrors.CodeNotFound, "candidate not found")
	}
	today := s.Today(ctx)
	pending, err := s.store.List(ctx, models.Filter{CandidateID: candidateID, ExamDate: &today, Status: models.StatusPending})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list schedules")
	}
	pending = slices.DeleteFunc(pending, func(sc *models.Schedule) bool { return !visibleTo(ctx, sc) })

	out = make([]CandidateQueueEntry, 0, len(pending))
	for _, sc := range pending {
		day, err := s.store.ListByVenueDate(ctx, sc.VenueID, sc.ExamDate)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load venue queue")
		}
		pos, ok := models.ComputeQueuePosition(sc.ID, day)
		if !ok {
			continue
		}
		venue, err := s.catalog.GetVenue(ctx, sc.VenueID)
		if err != nil {
			return nil, err
		}
		out = append(out, CandidateQueueEntry{Schedule: sc, VenueName: venue.Name, Position: pos})
	}
	return out, nil
}

// QueueEntry is one line of the public venue board.
type QueueEntry struct {
	Position     int
	MaskedName   string
	StartAt      time.Time
	EndAt        time.Time
	ActivityType models.ActivityType
}

// VenueQueue is the pending queue of a venue on one date.
type VenueQueue struct {
	VenueID         id.VenueID
	VenueName       string
	ExamDate        civil.Date
	TotalPending    int
	AverageDuration time.Duration
	Entries         []QueueEntry
}

// GetVenueQueue lists the pending queue for a public board. Candidate names
// are masked to their first character.
func (s *Service) GetVenueQueue(ctx context.Context, venueID id.VenueID, date civil.Date, limit int) (*VenueQueue, error) {
	venue, err := s.catalog.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	day, err := s.store.ListByVenueDate(ctx, venueID, date)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load venue queue")
	}
	pending := models.PendingQueue(day)
	shown := pending
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	ids := make([]id.CandidateID, len(shown))
	for i, sc := range shown {
		ids[i] = sc.CandidateID
	}
	candidates, err := s.candidates.FindByIDs(ctx, ids)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidates")
	}
	names := make(map[id.CandidateID]string, len(candidates))
	for _, c := range candidates {
		names[c.ID] = c.Name
	}

	q := &VenueQueue{
		VenueID:         venue.ID,
		VenueName:       venue.Name,
		ExamDate:        date,
		TotalPending:    len(pending),
		AverageDuration: models.AverageDuration(day),
		Entries:         make([]QueueEntry, len(shown)),
	}
	for i, sc := range shown {
		q.Entries[i] = QueueEntry{
			Position:     i + 1,
			MaskedName:   models.MaskName(names[sc.CandidateID]),
			StartAt:      sc.StartAt,
			EndAt:        sc.EndAt,
			ActivityType: sc.ActivityType,
		}
	}
	return q, nil
}
