// Package models holds the candidate aggregate and its status lifecycle.
package models

import (
	"regexp"
	"strings"
	"time"

	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

// Status is the registration state of a candidate.
type Status string

const (
	StatusPendingReview Status = "pending_review"
	StatusApproved      Status = "approved"
	StatusRejected      Status = "rejected"
	StatusActive        Status = "active"
	StatusInactive      Status = "inactive"
)

var transitions = map[Status][]Status{
	StatusPendingReview: {StatusApproved, StatusRejected},
	StatusApproved:      {StatusActive, StatusInactive},
	StatusRejected:      {StatusPendingReview},
	StatusActive:        {StatusInactive},
	StatusInactive:      {StatusActive},
}

func ParseStatus(s string) (Status, error) {
	if _, ok := transitions[Status(s)]; ok {
		return Status(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput,
		"status must be one of pending_review, approved, rejected, active, inactive")
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsSchedulable reports whether a candidate in this status may be booked.
func (s Status) IsSchedulable() bool {
	return s == StatusApproved || s == StatusActive
}

var idNumberPattern = regexp.MustCompile(`^[0-9]{17}[0-9X]$`)

// NormalizeIDNumber upper-cases the check digit and validates the 18 character
// resident identity number format.
func NormalizeIDNumber(raw string) (string, error) {
	n := strings.ToUpper(strings.TrimSpace(raw))
	if !idNumberPattern.MatchString(n) {
		return "", dErrors.New(dErrors.CodeValidation, "id_number must be 17 digits followed by a digit or X")
	}
	return n, nil
}

// Candidate is a person registered by an institution to sit an exam.
type Candidate struct {
	ID              id.CandidateID
	Name            string
	IDNumber        string
	Phone           string
	Status          Status
	InstitutionID   id.InstitutionID
	ExamProductID   id.ExamProductID
	AssignedVenueID *id.VenueID
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func NewCandidate(candidateID id.CandidateID, name, idNumber, phone string, instID id.InstitutionID,
	productID id.ExamProductID, now time.Time) (*Candidate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "candidate name cannot be empty")
	}
	if instID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "candidate institution is required")
	}
	if productID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "candidate exam product is required")
	}
	return &Candidate{
		ID:            candidateID,
		Name:          name,
		IDNumber:      idNumber,
		Phone:         strings.TrimSpace(phone),
		Status:        StatusPendingReview,
		InstitutionID: instID,
		ExamProductID: productID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// TransitionTo moves the candidate to next or returns invalid_state.
func (c *Candidate) TransitionTo(next Status, now time.Time) error {
	if !c.Status.CanTransitionTo(next) {
		return dErrors.New(dErrors.CodeInvalidState,
			"candidate cannot move from "+string(c.Status)+" to "+string(next))
	}
	c.Status = next
	c.UpdatedAt = now
	return nil
}

// AssignVenue records the venue of the candidate's latest booking.
func (c *Candidate) AssignVenue(venueID id.VenueID, now time.Time) {
	c.AssignedVenueID = &venueID
	c.UpdatedAt = now
}

// Filter narrows List results. Zero fields match everything.
type Filter struct {
	InstitutionID id.InstitutionID
	Status        Status
	Limit         int
	Offset        int
}
