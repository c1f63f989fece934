package handler

import (
	"time"

	"examsite/internal/candidate/models"
	candidateservice "examsite/internal/candidate/service"
)

type CandidateResponse struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	IDNumber        string    `json:"id_number"`
	Phone           string    `json:"phone,omitempty"`
	Status          string    `json:"status"`
	InstitutionID   string    `json:"institution_id"`
	ExamProductID   string    `json:"exam_product_id"`
	AssignedVenueID *string   `json:"assigned_venue_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func FromCandidate(c *models.Candidate) CandidateResponse {
	resp := CandidateResponse{
		ID:            c.ID.String(),
		Name:          c.Name,
		IDNumber:      c.IDNumber,
		Phone:         c.Phone,
		Status:        string(c.Status),
		InstitutionID: c.InstitutionID.String(),
		ExamProductID: c.ExamProductID.String(),
		CreatedAt:     c.CreatedAt,
		UpdatedAt:     c.UpdatedAt,
	}
	if c.AssignedVenueID != nil {
		v := c.AssignedVenueID.String()
		resp.AssignedVenueID = &v
	}
	return resp
}

type CandidateListResponse struct {
	Items []CandidateResponse `json:"items"`
	Total int                 `json:"total"`
	Page  int                 `json:"page"`
	Size  int                 `json:"size"`
	Pages int                 `json:"pages"`
}

type ImportRowErrorResponse struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

type ImportResponse struct {
	TotalRows     int                      `json:"total_rows"`
	ImportedCount int                      `json:"imported_count"`
	Items         []CandidateResponse      `json:"items"`
	Errors        []ImportRowErrorResponse `json:"errors"`
}

func fromImportReport(report *candidateservice.ImportReport) ImportResponse {
	resp := ImportResponse{
		TotalRows:     report.Total,
		ImportedCount: len(report.Imported),
		Items:         make([]CandidateResponse, 0, len(report.Imported)),
		Errors:        make([]ImportRowErrorResponse, 0, len(report.Errors)),
	}
	for _, c := range report.Imported {
		resp.Items = append(resp.Items, FromCandidate(c))
	}
	for _, e := range report.Errors {
		resp.Errors = append(resp.Errors, ImportRowErrorResponse{Line: e.Line, Message: e.Message})
	}
	return resp
}
