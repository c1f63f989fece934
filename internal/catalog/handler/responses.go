package handler

import (
	"time"

	"examsite/internal/catalog/models"
)

type InstitutionResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func FromInstitution(i *models.Institution) InstitutionResponse {
	return InstitutionResponse{ID: i.ID.String(), Name: i.Name, Status: string(i.Status), CreatedAt: i.CreatedAt}
}

type VenueResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Type     string `json:"type"`
	Capacity int    `json:"capacity"`
	Status   string `json:"status"`
}

func FromVenue(v *models.Venue) VenueResponse {
	return VenueResponse{
		ID:       v.ID.String(),
		Name:     v.Name,
		Address:  v.Address,
		Type:     string(v.Type),
		Capacity: v.Capacity,
		Status:   string(v.Status),
	}
}

type ExamProductResponse struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	Description        string `json:"description,omitempty"`
	Category           string `json:"category"`
	AircraftType       string `json:"aircraft_type"`
	DurationMinutes    int    `json:"duration_minutes"`
	TheoryPassScore    int    `json:"theory_pass_score"`
	PracticalPassScore int    `json:"practical_pass_score"`
	Status             string `json:"status"`
}

func FromExamProduct(p *models.ExamProduct) ExamProductResponse {
	return ExamProductResponse{
		ID:                 p.ID.String(),
		Name:               p.Name,
		Description:        p.Description,
		Category:           string(p.Category),
		AircraftType:       string(p.AircraftType),
		DurationMinutes:    int(p.Duration / time.Minute),
		TheoryPassScore:    p.TheoryPassScore,
		PracticalPassScore: p.PracticalPassScore,
		Status:             string(p.Status),
	}
}

type ListResponse[T any] struct {
	Items []T `json:"items"`
	Total int `json:"total"`
}

func listOf[M any, T any](items []M, conv func(M) T) ListResponse[T] {
	out := make([]T, 0, len(items))
	for _, it := range items {
		out = append(out, conv(it))
	}
	return ListResponse[T]{Items: out, Total: len(out)}
}
