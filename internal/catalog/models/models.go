// Package models defines the read-mostly reference data that schedules point
// at: institutions (tenants), venues and exam products.
package models

import (
	"strings"
	"time"

	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

// ResourceStatus marks whether a catalog entry can be used for new work.
type ResourceStatus string

const (
	StatusActive   ResourceStatus = "active"
	StatusInactive ResourceStatus = "inactive"
)

func ParseResourceStatus(s string) (ResourceStatus, error) {
	switch ResourceStatus(s) {
	case StatusActive, StatusInactive:
		return ResourceStatus(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "status must be active or inactive")
}

type VenueType string

const (
	VenueTheory    VenueType = "theory"
	VenuePractical VenueType = "practical"
	VenueWaiting   VenueType = "waiting"
)

func ParseVenueType(s string) (VenueType, error) {
	switch VenueType(s) {
	case VenueTheory, VenuePractical, VenueWaiting:
		return VenueType(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "type must be one of theory, practical, waiting")
}

type Category string

const (
	CategoryVLOS  Category = "vlos"
	CategoryBVLOS Category = "bvlos"
	CategoryNight Category = "night"
)

func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryVLOS, CategoryBVLOS, CategoryNight:
		return Category(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "category must be one of vlos, bvlos, night")
}

type AircraftType string

const (
	AircraftMultirotor AircraftType = "multirotor"
	AircraftFixedWing  AircraftType = "fixed_wing"
	AircraftHelicopter AircraftType = "helicopter"
)

func ParseAircraftType(s string) (AircraftType, error) {
	switch AircraftType(s) {
	case AircraftMultirotor, AircraftFixedWing, AircraftHelicopter:
		return AircraftType(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "aircraft_type must be one of multirotor, fixed_wing, helicopter")
}

// Institution is a tenant: it owns candidates and sees only their schedules.
type Institution struct {
	ID        id.InstitutionID
	Name      string
	Status    ResourceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewInstitution(instID id.InstitutionID, name string, now time.Time) (*Institution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution name cannot be empty")
	}
	if len(name) > 200 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution name must be 200 characters or less")
	}
	return &Institution{ID: instID, Name: name, Status: StatusActive, CreatedAt: now, UpdatedAt: now}, nil
}

func (i *Institution) IsActive() bool { return i.Status == StatusActive }

// Venue is a physical room or field where exam activities run.
type Venue struct {
	ID        id.VenueID
	Name      string
	Address   string
	Type      VenueType
	Capacity  int
	Status    ResourceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewVenue(venueID id.VenueID, name, address string, venueType VenueType, capacity int, now time.Time) (*Venue, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "venue name cannot be empty")
	}
	if capacity <= 0 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "venue capacity must be positive")
	}
	return &Venue{
		ID:        venueID,
		Name:      name,
		Address:   strings.TrimSpace(address),
		Type:      venueType,
		Capacity:  capacity,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (v *Venue) IsActive() bool { return v.Status == StatusActive }

// ExamProduct is a certification an exam is taken for. Duration is the
// default slot length when scheduling its candidates.
type ExamProduct struct {
	ID                 id.ExamProductID
	Name               string
	Description        string
	Category           Category
	AircraftType       AircraftType
	Duration           time.Duration
	TheoryPassScore    int
	PracticalPassScore int
	Status             ResourceStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func NewExamProduct(productID id.ExamProductID, name, description string, category Category, aircraft AircraftType,
	duration time.Duration, theoryPass, practicalPass int, now time.Time) (*ExamProduct, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "exam product name cannot be empty")
	}
	if duration < time.Minute {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "exam product duration must be at least one minute")
	}
	if theoryPass < 0 || theoryPass > 100 || practicalPass < 0 || practicalPass > 100 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "pass scores must be between 0 and 100")
	}
	return &ExamProduct{
		ID:                 productID,
		Name:               name,
		Description:        strings.TrimSpace(description),
		Category:           category,
		AircraftType:       aircraft,
		Duration:           duration,
		TheoryPassScore:    theoryPass,
		PracticalPassScore: practicalPass,
		Status:             StatusActive,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (p *ExamProduct) IsActive() bool { return p.Status == StatusActive }

// VenueFilter narrows List results; zero fields match everything.
type VenueFilter struct {
	Type   VenueType
	Status ResourceStatus
}
