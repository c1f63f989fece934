// Package domain holds identifier types shared across bounded contexts.
//
// Each entity gets its own named UUID type so a VenueID cannot be passed
// where a CandidateID is expected. Construct them with the Parse* functions
// at trust boundaries; the zero value is the nil UUID and is never valid.
package domain

import (
	"bytes"
	"strings"

	"github.com/google/uuid"

	dErrors "examsite/pkg/domain-errors"
)

type (
	CandidateID   uuid.UUID
	ScheduleID    uuid.UUID
	VenueID       uuid.UUID
	ExamProductID uuid.UUID
	InstitutionID uuid.UUID
	UserID        uuid.UUID
)

func parseUUID(s, kind string) (uuid.UUID, error) {
	if strings.TrimSpace(s) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	if len(s) > 64 {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	return u, nil
}

func ParseCandidateID(s string) (CandidateID, error) {
	u, err := parseUUID(s, "candidate_id")
	return CandidateID(u), err
}

func ParseScheduleID(s string) (ScheduleID, error) {
	u, err := parseUUID(s, "schedule_id")
	return ScheduleID(u), err
}

func ParseVenueID(s string) (VenueID, error) {
	u, err := parseUUID(s, "venue_id")
	return VenueID(u), err
}

func ParseExamProductID(s string) (ExamProductID, error) {
	u, err := parseUUID(s, "exam_product_id")
	return ExamProductID(u), err
}

func ParseInstitutionID(s string) (InstitutionID, error) {
	u, err := parseUUID(s, "institution_id")
	return InstitutionID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user_id")
	return UserID(u), err
}

func (id CandidateID) String() string   { return uuid.UUID(id).String() }
func (id ScheduleID) String() string    { return uuid.UUID(id).String() }
func (id VenueID) String() string       { return uuid.UUID(id).String() }
func (id ExamProductID) String() string { return uuid.UUID(id).String() }
func (id InstitutionID) String() string { return uuid.UUID(id).String() }
func (id UserID) String() string        { return uuid.UUID(id).String() }

func (id CandidateID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id ScheduleID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id VenueID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id ExamProductID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id InstitutionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }

// Compare orders ids bytewise, matching PostgreSQL's uuid ordering. Queue
// ordering uses it to break ties between slots with identical start times.
func (id ScheduleID) Compare(other ScheduleID) int {
	return bytes.Compare(id[:], other[:])
}

// Compare orders candidate ids the way row locks are taken.
func (id CandidateID) Compare(other CandidateID) int {
	return bytes.Compare(id[:], other[:])
}

func (id VenueID) Compare(other VenueID) int {
	return bytes.Compare(id[:], other[:])
}
