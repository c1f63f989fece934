package handler

import (
	"strings"

	"examsite/internal/candidate/models"
	id "examsite/pkg/domain"
)

type RegisterCandidateRequest struct {
	Name          string `json:"name" validate:"notblank,max=100"`
	IDNumber      string `json:"id_number" validate:"required"`
	Phone         string `json:"phone" validate:"omitempty,max=32"`
	InstitutionID string `json:"institution_id" validate:"omitempty,uuid"`
	ExamProductID string `json:"exam_product_id" validate:"required,uuid"`

	institutionID id.InstitutionID
	examProductID id.ExamProductID
}

func (r *RegisterCandidateRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.IDNumber = strings.TrimSpace(r.IDNumber)
	r.Phone = strings.TrimSpace(r.Phone)
	r.InstitutionID = strings.TrimSpace(r.InstitutionID)
	r.ExamProductID = strings.TrimSpace(r.ExamProductID)
}

// Validate parses the ids. An empty institution_id is allowed for
// institution callers, whose own institution is used.
func (r *RegisterCandidateRequest) Validate() error {
	if _, err := models.NormalizeIDNumber(r.IDNumber); err != nil {
		return err
	}
	if r.InstitutionID != "" {
		inst, err := id.ParseInstitutionID(r.InstitutionID)
		if err != nil {
			return err
		}
		r.institutionID = inst
	}
	product, err := id.ParseExamProductID(r.ExamProductID)
	if err != nil {
		return err
	}
	r.examProductID = product
	return nil
}

type UpdateCandidateStatusRequest struct {
	Status string `json:"status" validate:"required"`

	parsed models.Status
}

func (r *UpdateCandidateStatusRequest) Validate() error {
	st, err := models.ParseStatus(strings.ToLower(strings.TrimSpace(r.Status)))
	if err != nil {
		return err
	}
	r.parsed = st
	return nil
}
