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

var (
	examDate = civil.Date{Year: 2026, Month: time.May, Day: 1}
	nine     = civil.Time{Hour: 9}
	five     = civil.Time{Hour: 17}
)

func entries(insts ...id.InstitutionID) []PlanEntry {
	out := make([]PlanEntry, len(insts))
	for i, inst := range insts {
		out[i] = PlanEntry{CandidateID: id.CandidateID(uuid.New()), InstitutionID: inst}
	}
	return out
}

func clockOf(t time.Time) string {
	return t.Format("15:04")
}

func TestPlanSlotsBackToBack(t *testing.T) {
	inst := id.InstitutionID(uuid.New())
	in := entries(inst, inst, inst)

	slots, err := PlanSlots(PlanRequest{
		Entries:  in,
		Date:     examDate,
		Location: time.UTC,
		DayStart: nine,
		DayEnd:   five,
		Duration: 15 * time.Minute,
	})
	require.NoError(t, err)
	require.Len(t, slots, 3)
	assert.Equal(t, []string{"09:00", "09:15", "09:30"},
		[]string{clockOf(slots[0].StartAt), clockOf(slots[1].StartAt), clockOf(slots[2].StartAt)})
	for i, s := range slots {
		assert.Equal(t, in[i].CandidateID, s.CandidateID)
		assert.Equal(t, 15*time.Minute, s.EndAt.Sub(s.StartAt))
	}
}

func TestPlanSlotsWithBreak(t *testing.T) {
	inst := id.InstitutionID(uuid.New())
	slots, err := PlanSlots(PlanRequest{
		Entries:  entries(inst, inst),
		Date:     examDate,
		DayStart: nine,
		DayEnd:   five,
		Duration: 30 * time.Minute,
		Break:    10 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", clockOf(slots[0].StartAt))
	assert.Equal(t, "09:40", clockOf(slots[1].StartAt))
	assert.Equal(t, "10:10", clockOf(slots[1].EndAt))
}

func TestPlanSlotsContinuesAfterExistingBookings(t *testing.T) {
	inst := id.InstitutionID(uuid.New())
	slots, err := PlanSlots(PlanRequest{
		Entries:   entries(inst),
		Date:      examDate,
		Location:  time.UTC,
		DayStart:  nine,
		DayEnd:    five,
		LatestEnd: time.Date(2026, 5, 1, 11, 0, 0, 0, time.UTC),
		Duration:  15 * time.Minute,
		Break:     5 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, "11:05", clockOf(slots[0].StartAt))

	// an earlier booking than the day start does not pull the clock back
	slots, err = PlanSlots(PlanRequest{
		Entries:   entries(inst),
		Date:      examDate,
		Location:  time.UTC,
		DayStart:  nine,
		DayEnd:    five,
		LatestEnd: time.Date(2026, 5, 1, 7, 0, 0, 0, time.UTC),
		Duration:  15 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, "09:00", clockOf(slots[0].StartAt))
}

func TestPlanSlotsDayEndOverflow(t *testing.T) {
	inst := id.InstitutionID(uuid.New())
	_, err := PlanSlots(PlanRequest{
		Entries:  entries(inst, inst, inst),
		Date:     examDate,
		DayStart: civil.Time{Hour: 16, Minute: 15},
		DayEnd:   five,
		Duration: 20 * time.Minute,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeCapacityExceeded))
	assert.Contains(t, err.Error(), "1 candidate would finish after the day end at 17:00")
}

func TestPlanSlotsExactlyFillsDay(t *testing.T) {
	inst := id.InstitutionID(uuid.New())
	slots, err := PlanSlots(PlanRequest{
		Entries:  entries(inst, inst),
		Date:     examDate,
		DayStart: civil.Time{Hour: 16},
		DayEnd:   five,
		Duration: 30 * time.Minute,
	})
	require.NoError(t, err)
	assert.Equal(t, "17:00", clockOf(slots[1].EndAt))
}

func TestPlanSlotsRejectsBadDurations(t *testing.T) {
	_, err := PlanSlots(PlanRequest{Date: examDate, DayStart: nine, DayEnd: five})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = PlanSlots(PlanRequest{Date: examDate, DayStart: nine, DayEnd: five, Duration: time.Minute, Break: -time.Minute})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestGroupByInstitutionIsStable(t *testing.T) {
	a := id.InstitutionID(uuid.New())
	b := id.InstitutionID(uuid.New())
	in := entries(b, a, b, a, b)

	out := GroupByInstitution(in)
	require.Len(t, out, 5)
	want := []PlanEntry{in[0], in[2], in[4], in[1], in[3]}
	assert.Equal(t, want, out)

	slots, err := PlanSlots(PlanRequest{
		Entries:            in,
		Date:               examDate,
		DayStart:           nine,
		DayEnd:             five,
		Duration:           10 * time.Minute,
		GroupByInstitution: true,
	})
	require.NoError(t, err)
	for i, s := range slots {
		assert.Equal(t, want[i].CandidateID, s.CandidateID)
	}
}

func TestAtHonoursLocation(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*60*60)
	at := At(examDate, nine, loc)
	assert.Equal(t, time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC), at.UTC())
}
