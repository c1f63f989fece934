package handler

import (
	"strings"
	"time"

	"examsite/internal/catalog/models"
)

type CreateInstitutionRequest struct {
	Name string `json:"name" validate:"notblank,max=200"`
}

func (r *CreateInstitutionRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
}

type CreateVenueRequest struct {
	Name     string `json:"name" validate:"notblank,max=200"`
	Address  string `json:"address" validate:"max=500"`
	Type     string `json:"type" validate:"required"`
	Capacity int    `json:"capacity" validate:"required,min=1,max=10000"`

	parsedType models.VenueType
}

func (r *CreateVenueRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.Type = strings.ToLower(strings.TrimSpace(r.Type))
}

func (r *CreateVenueRequest) Validate() error {
	t, err := models.ParseVenueType(r.Type)
	if err != nil {
		return err
	}
	r.parsedType = t
	return nil
}

func (r *CreateVenueRequest) ParsedType() models.VenueType { return r.parsedType }

type UpdateVenueStatusRequest struct {
	Status string `json:"status" validate:"required"`

	parsedStatus models.ResourceStatus
}

func (r *UpdateVenueStatusRequest) Validate() error {
	st, err := models.ParseResourceStatus(strings.ToLower(strings.TrimSpace(r.Status)))
	if err != nil {
		return err
	}
	r.parsedStatus = st
	return nil
}

func (r *UpdateVenueStatusRequest) ParsedStatus() models.ResourceStatus { return r.parsedStatus }

type CreateExamProductRequest struct {
	Name               string `json:"name" validate:"notblank,max=200"`
	Description        string `json:"description" validate:"max=2000"`
	Category           string `json:"category" validate:"required"`
	AircraftType       string `json:"aircraft_type" validate:"required"`
	DurationMinutes    int    `json:"duration_minutes" validate:"required,min=1,max=600"`
	TheoryPassScore    *int   `json:"theory_pass_score" validate:"omitempty,min=0,max=100"`
	PracticalPassScore *int   `json:"practical_pass_score" validate:"omitempty,min=0,max=100"`

	parsedCategory models.Category
	parsedAircraft models.AircraftType
}

func (r *CreateExamProductRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Category = strings.ToLower(strings.TrimSpace(r.Category))
	r.AircraftType = strings.ToLower(strings.TrimSpace(r.AircraftType))
	if r.TheoryPassScore == nil {
		v := 70
		r.TheoryPassScore = &v
	}
	if r.PracticalPassScore == nil {
		v := 80
		r.PracticalPassScore = &v
	}
}

func (r *CreateExamProductRequest) Validate() error {
	c, err := models.ParseCategory(r.Category)
	if err != nil {
		return err
	}
	a, err := models.ParseAircraftType(r.AircraftType)
	if err != nil {
		return err
	}
	r.parsedCategory, r.parsedAircraft = c, a
	return nil
}

func (r *CreateExamProductRequest) Duration() time.Duration {
	return time.Duration(r.DurationMinutes) * time.Minute
}
