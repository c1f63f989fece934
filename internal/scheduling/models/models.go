// Package models holds the schedule aggregate, its check-in lifecycle and the
// pure slot and queue calculations the engine is built on.
package models

import (
	"time"

	"cloud.google.com/go/civil"

	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

// Status is the check-in state of a schedule.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCheckedIn Status = "checked_in"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// AllStatuses lists every status in lifecycle order.
var AllStatuses = []Status{StatusPending, StatusCheckedIn, StatusCompleted, StatusCancelled}

var transitions = map[Status][]Status{
	StatusPending:   {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusCompleted, StatusCancelled},
	StatusCompleted: nil,
	StatusCancelled: nil,
}

func ParseStatus(s string) (Status, error) {
	if _, ok := transitions[Status(s)]; ok {
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "status must be one of pending, checked_in, completed, cancelled")
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return len(transitions[s]) == 0
}

type ActivityType string

const (
	ActivityTheory    ActivityType = "theory"
	ActivityPractical ActivityType = "practical"
	ActivityWaiting   ActivityType = "waiting"
)

func ParseActivityType(s string) (ActivityType, error) {
	switch ActivityType(s) {
	case ActivityTheory, ActivityPractical, ActivityWaiting:
		return ActivityType(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "activity_type must be one of theory, practical, waiting")
}

// Schedule is one candidate's booked slot at a venue on an exam date.
type Schedule struct {
	ID            id.ScheduleID
	CandidateID   id.CandidateID
	VenueID       id.VenueID
	ExamProductID id.ExamProductID
	InstitutionID id.InstitutionID
	ExamDate      civil.Date
	StartAt       time.Time
	EndAt         time.Time
	ActivityType  ActivityType
	ActivityName  string
	Status        Status
	// QueuePosition is the booking sequence at the venue/date. It is cleared
	// once the schedule leaves pending.
	QueuePosition *int
	CheckedInAt   *time.Time
	CheckedInBy   *id.UserID
	CreatedBy     id.UserID
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (s *Schedule) Duration() time.Duration {
	return s.EndAt.Sub(s.StartAt)
}

func (s *Schedule) transition(next Status, now time.Time) error {
	if !s.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState,
			"schedule cannot move from "+string(s.Status)+" to "+string(next))
	}
	s.Status = next
	s.UpdatedAt = now
	if next != StatusPending {
		s.QueuePosition = nil
	}
	return nil
}

// CheckIn marks the candidate present. Only pending schedules can be checked in.
func (s *Schedule) CheckIn(staff id.UserID, now time.Time) error {
	if err := s.transition(StatusCheckedIn, now); err != nil {
		return err
	}
	at := now
	s.CheckedInAt = &at
	s.CheckedInBy = &staff
	return nil
}

func (s *Schedule) Complete(now time.Time) error {
	return s.transition(StatusCompleted, now)
}

func (s *Schedule) Cancel(now time.Time) error {
	return s.transition(StatusCancelled, now)
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	ExamDate      *civil.Date
	VenueID       id.VenueID
	InstitutionID id.InstitutionID
	CandidateID   id.CandidateID
	Status        Status
	Limit         int
}

// StatusCount is one row of a per-venue status aggregate.
type StatusCount struct {
	VenueID id.VenueID
	Status  Status
	Count   int
}
