package models

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

func newSchedule(status Status) *Schedule {
	start := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	pos := 1
	return &Schedule{
		ID:            id.ScheduleID(uuid.New()),
		CandidateID:   id.CandidateID(uuid.New()),
		VenueID:       id.VenueID(uuid.New()),
		ExamDate:      civil.Date{Year: 2026, Month: time.May, Day: 1},
		StartAt:       start,
		EndAt:         start.Add(15 * time.Minute),
		ActivityType:  ActivityTheory,
		Status:        status,
		QueuePosition: &pos,
	}
}

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status]map[Status]bool{
		StatusPending:   {StatusCheckedIn: true, StatusCancelled: true},
		StatusCheckedIn: {StatusCompleted: true, StatusCancelled: true},
	}
	for _, from := range AllStatuses {
		for _, to := range AllStatuses {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusPending.IsTerminal())
}

func TestParseStatus(t *testing.T) {
	s, err := ParseStatus("checked_in")
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, s)

	_, err = ParseStatus("done")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = ParseActivityType("oral")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestCheckIn(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 55, 0, 0, time.UTC)
	staff := id.UserID(uuid.New())
	s := newSchedule(StatusPending)

	require.NoError(t, s.CheckIn(staff, now))
	assert.Equal(t, StatusCheckedIn, s.Status)
	require.NotNil(t, s.CheckedInAt)
	assert.Equal(t, now, *s.CheckedInAt)
	require.NotNil(t, s.CheckedInBy)
	assert.Equal(t, staff, *s.CheckedInBy)
	assert.Nil(t, s.QueuePosition)

	err := s.CheckIn(staff, now.Add(time.Minute))
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	assert.Equal(t, now, *s.CheckedInAt)
}

func TestTerminalSchedulesRejectChanges(t *testing.T) {
	now := time.Now()
	for _, status := range []Status{StatusCompleted, StatusCancelled} {
		s := newSchedule(status)
		assert.True(t, dErrors.HasCode(s.CheckIn(id.UserID(uuid.New()), now), dErrors.CodeInvalidState))
		assert.True(t, dErrors.HasCode(s.Complete(now), dErrors.CodeInvalidState))
		assert.True(t, dErrors.HasCode(s.Cancel(now), dErrors.CodeInvalidState))
		assert.Equal(t, status, s.Status)
		assert.Nil(t, s.CheckedInAt)
	}
}

func TestCompleteRequiresCheckIn(t *testing.T) {
	now := time.Now()
	s := newSchedule(StatusPending)
	assert.True(t, dErrors.HasCode(s.Complete(now), dErrors.CodeInvalidState))

	require.NoError(t, s.CheckIn(id.UserID(uuid.New()), now))
	require.NoError(t, s.Complete(now))
	assert.Equal(t, StatusCompleted, s.Status)
}
