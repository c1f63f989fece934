package handler

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"examsite/internal/scheduling/models"
	schedulingservice "examsite/internal/scheduling/service"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/validation"
)

type BatchScheduleRequest struct {
	CandidateIDs    []string `json:"candidate_ids" validate:"required,min=1,dive,uuid"`
	VenueID         string   `json:"venue_id" validate:"required,uuid"`
	ExamDate        string   `json:"exam_date" validate:"required,civildate"`
	StartTime       string   `json:"start_time" validate:"omitempty,clock"`
	DurationMinutes int      `json:"duration_minutes" validate:"omitempty,min=1,max=480"`
	BreakMinutes    *int     `json:"break_minutes" validate:"omitempty,min=0,max=240"`
	MaxPerDay       int      `json:"max_per_day" validate:"omitempty,min=1,max=1000"`
	GroupBy         string   `json:"group_by" validate:"omitempty,oneof=institution"`
	ActivityType    string   `json:"activity_type"`
	ActivityName    string   `json:"activity_name" validate:"max=100"`

	cmd schedulingservice.BatchScheduleCommand
}

func (r *BatchScheduleRequest) Normalize() {
	for i := range r.CandidateIDs {
		r.CandidateIDs[i] = strings.TrimSpace(r.CandidateIDs[i])
	}
	r.VenueID = strings.TrimSpace(r.VenueID)
	r.ExamDate = strings.TrimSpace(r.ExamDate)
	r.StartTime = strings.TrimSpace(r.StartTime)
	r.GroupBy = strings.ToLower(strings.TrimSpace(r.GroupBy))
	r.ActivityType = strings.ToLower(strings.TrimSpace(r.ActivityType))
	r.ActivityName = strings.TrimSpace(r.ActivityName)
}

// Validate parses the request into a scheduling command. Candidate order is
// kept because it decides slot order.
func (r *BatchScheduleRequest) Validate() error {
	ids := make([]id.CandidateID, len(r.CandidateIDs))
	for i, raw := range r.CandidateIDs {
		cid, err := id.ParseCandidateID(raw)
		if err != nil {
			return err
		}
		ids[i] = cid
	}
	venueID, err := id.ParseVenueID(r.VenueID)
	if err != nil {
		return err
	}
	date, err := civil.ParseDate(r.ExamDate)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "exam_date must be YYYY-MM-DD")
	}
	r.cmd = schedulingservice.BatchScheduleCommand{
		CandidateIDs:       ids,
		VenueID:            venueID,
		ExamDate:           date,
		ActivityName:       r.ActivityName,
		Duration:           time.Duration(r.DurationMinutes) * time.Minute,
		MaxPerDay:          r.MaxPerDay,
		GroupByInstitution: r.GroupBy == "institution",
	}
	if r.ActivityType != "" {
		if r.cmd.ActivityType, err = models.ParseActivityType(r.ActivityType); err != nil {
			return err
		}
	}
	if r.StartTime != "" {
		start, err := validation.ParseClock(r.StartTime)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "start_time must be HH:MM")
		}
		r.cmd.DayStart = &start
	}
	if r.BreakMinutes != nil {
		brk := time.Duration(*r.BreakMinutes) * time.Minute
		r.cmd.BreakDuration = &brk
	}
	return nil
}

type ScanRequest struct {
	Code string `json:"code" validate:"notblank"`
}

func (r *ScanRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
}

type BatchScanRequest struct {
	Codes []string `json:"codes" validate:"required,min=1,dive,notblank"`
}

func (r *BatchScanRequest) Normalize() {
	for i := range r.Codes {
		r.Codes[i] = strings.TrimSpace(r.Codes[i])
	}
}
