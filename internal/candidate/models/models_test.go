package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

func TestStatusTransitions(t *testing.T) {
	all := []Status{StatusPendingReview, StatusApproved, StatusRejected, StatusActive, StatusInactive}
	allowed := map[Status]map[Status]bool{
		StatusPendingReview: {StatusApproved: true, StatusRejected: true},
		StatusApproved:      {StatusActive: true, StatusInactive: true},
		StatusRejected:      {StatusPendingReview: true},
		StatusActive:        {StatusInactive: true},
		StatusInactive:      {StatusActive: true},
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[from][to], from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
}

func TestSchedulable(t *testing.T) {
	assert.True(t, StatusApproved.IsSchedulable())
	assert.True(t, StatusActive.IsSchedulable())
	assert.False(t, StatusPendingReview.IsSchedulable())
	assert.False(t, StatusRejected.IsSchedulable())
	assert.False(t, StatusInactive.IsSchedulable())
}

func TestNormalizeIDNumber(t *testing.T) {
	n, err := NormalizeIDNumber(" 11010519491231002x ")
	require.NoError(t, err)
	assert.Equal(t, "11010519491231002X", n)

	for _, bad := range []string{"", "123", "1101051949123100XX", "11010519491231002Y"} {
		_, err := NormalizeIDNumber(bad)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation), bad)
	}
}

func TestTransitionTo(t *testing.T) {
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	c, err := NewCandidate(id.CandidateID(uuid.New()), "Li Wei", "11010519491231002X", "",
		id.InstitutionID(uuid.New()), id.ExamProductID(uuid.New()), now)
	require.NoError(t, err)
	require.Equal(t, StatusPendingReview, c.Status)

	err = c.TransitionTo(StatusActive, now)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidState))
	assert.Equal(t, StatusPendingReview, c.Status)

	later := now.Add(time.Hour)
	require.NoError(t, c.TransitionTo(StatusApproved, later))
	assert.Equal(t, StatusApproved, c.Status)
	assert.Equal(t, later, c.UpdatedAt)
}

func TestNewCandidateInvariants(t *testing.T) {
	_, err := NewCandidate(id.CandidateID(uuid.New()), " ", "11010519491231002X", "",
		id.InstitutionID(uuid.New()), id.ExamProductID(uuid.New()), time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))

	_, err = NewCandidate(id.CandidateID(uuid.New()), "Li", "11010519491231002X", "",
		id.InstitutionID(uuid.Nil), id.ExamProductID(uuid.New()), time.Now())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}
