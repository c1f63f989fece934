package models

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

// PlanEntry is a candidate waiting for a slot.
type PlanEntry struct {
	CandidateID   id.CandidateID
	InstitutionID id.InstitutionID
}

// PlanRequest describes one batch of slots at a single venue and date.
type PlanRequest struct {
	Entries  []PlanEntry
	Date     civil.Date
	Location *time.Location
	DayStart civil.Time
	DayEnd   civil.Time
	// LatestEnd is the end of the last live booking already at the venue on
	// Date. The zero value means the venue is free.
	LatestEnd          time.Time
	Duration           time.Duration
	Break              time.Duration
	GroupByInstitution bool
}

// Slot is a planned interval for one candidate.
type Slot struct {
	CandidateID   id.CandidateID
	InstitutionID id.InstitutionID
	StartAt       time.Time
	EndAt         time.Time
}

// At combines a civil date and clock time in loc.
func At(date civil.Date, clock civil.Time, loc *time.Location) time.Time {
	return time.Date(date.Year, date.Month, date.Day, clock.Hour, clock.Minute, clock.Second, clock.Nanosecond, loc)
}

// PlanSlots lays entries out back to back. The clock starts at DayStart or
// one break after LatestEnd, whichever is later, and advances by
// Duration+Break per entry. A slot ending after DayEnd fails the whole plan
// with capacity_exceeded.
func PlanSlots(req PlanRequest) ([]Slot, error) {
	if req.Duration <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "duration must be positive")
	}
	if req.Break < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "break duration must not be negative")
	}
	loc := req.Location
	if loc == nil {
		loc = time.UTC
	}

	entries := req.Entries
	if req.GroupByInstitution {
		entries = GroupByInstitution(entries)
	}

	clock := At(req.Date, req.DayStart, loc)
	if !req.LatestEnd.IsZero() {
		if next := req.LatestEnd.Add(req.Break); next.After(clock) {
			clock = next
		}
	}
	dayEnd := At(req.Date, req.DayEnd, loc)

	slots := make([]Slot, 0, len(entries))
	for i, e := range entries {
		end := clock.Add(req.Duration)
		if end.After(dayEnd) {
			return nil, dErrors.New(dErrors.CodeCapacityExceeded, dayOverflowMessage(len(entries)-i, req.DayEnd))
		}
		slots = append(slots, Slot{
			CandidateID:   e.CandidateID,
			InstitutionID: e.InstitutionID,
			StartAt:       clock,
			EndAt:         end,
		})
		clock = end.Add(req.Break)
	}
	return slots, nil
}

func dayOverflowMessage(remaining int, dayEnd civil.Time) string {
	noun := "candidates"
	if remaining == 1 {
		noun = "candidate"
	}
	return fmt.Sprintf("%d %s would finish after the day end at %02d:%02d", remaining, noun, dayEnd.Hour, dayEnd.Minute)
}

// GroupByInstitution reorders entries so each institution's candidates are
// contiguous. Groups keep the order of their first appearance and entries
// keep their relative order within a group.
func GroupByInstitution(entries []PlanEntry) []PlanEntry {
	order := make([]id.InstitutionID, 0)
	groups := make(map[id.InstitutionID][]PlanEntry)
	for _, e := range entries {
		if _, seen := groups[e.InstitutionID]; !seen {
			order = append(order, e.InstitutionID)
		}
		groups[e.InstitutionID] = append(groups[e.InstitutionID], e)
	}
	out := make([]PlanEntry, 0, len(entries))
	for _, inst := range order {
		out = append(out, groups[inst]...)
	}
	return out
}
