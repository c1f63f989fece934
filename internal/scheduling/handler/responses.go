package handler

import (
	"time"

	"examsite/internal/scheduling/models"
	schedulingservice "examsite/internal/scheduling/service"
	dErrors "examsite/pkg/domain-errors"
)

type ScheduleResponse struct {
	ID            string     `json:"id"`
	CandidateID   string     `json:"candidate_id"`
	VenueID       string     `json:"venue_id"`
	ExamProductID string     `json:"exam_product_id"`
	InstitutionID string     `json:"institution_id"`
	ExamDate      string     `json:"exam_date"`
	StartTime     time.Time  `json:"start_time"`
	EndTime       time.Time  `json:"end_time"`
	ActivityType  string     `json:"activity_type"`
	ActivityName  string     `json:"activity_name,omitempty"`
	Status        string     `json:"status"`
	QueuePosition *int       `json:"queue_position,omitempty"`
	CheckedInAt   *time.Time `json:"check_in_time,omitempty"`
	CheckedInBy   *string    `json:"checked_in_by,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func FromSchedule(sc *models.Schedule) ScheduleResponse {
	resp := ScheduleResponse{
		ID:            sc.ID.String(),
		CandidateID:   sc.CandidateID.String(),
		VenueID:       sc.VenueID.String(),
		ExamProductID: sc.ExamProductID.String(),
		InstitutionID: sc.InstitutionID.String(),
		ExamDate:      sc.ExamDate.String(),
		StartTime:     sc.StartAt,
		EndTime:       sc.EndAt,
		ActivityType:  string(sc.ActivityType),
		ActivityName:  sc.ActivityName,
		Status:        string(sc.Status),
		QueuePosition: sc.QueuePosition,
		CheckedInAt:   sc.CheckedInAt,
		CreatedAt:     sc.CreatedAt,
		UpdatedAt:     sc.UpdatedAt,
	}
	if sc.CheckedInBy != nil {
		by := sc.CheckedInBy.String()
		resp.CheckedInBy = &by
	}
	return resp
}

func fromSchedules(items []*models.Schedule) []ScheduleResponse {
	out := make([]ScheduleResponse, 0, len(items))
	for _, sc := range items {
		out = append(out, FromSchedule(sc))
	}
	return out
}

type BatchScheduleResponse struct {
	Items []ScheduleResponse `json:"items"`
	Total int                `json:"total"`
}

type ScheduleListResponse struct {
	Items []ScheduleResponse `json:"items"`
	Total int                `json:"total"`
}

type QueuePositionResponse struct {
	ScheduleID             string `json:"schedule_id"`
	VenueID                string `json:"venue_id"`
	Position               int    `json:"position"`
	TotalInQueue           int    `json:"total_in_queue"`
	AverageDurationMinutes int    `json:"average_duration_minutes"`
	EstimatedWaitMinutes   int    `json:"estimated_wait_minutes"`
}

func fromQueuePosition(p models.QueuePosition) QueuePositionResponse {
	return QueuePositionResponse{
		ScheduleID:             p.ScheduleID.String(),
		VenueID:                p.VenueID.String(),
		Position:               p.Position,
		TotalInQueue:           p.TotalInQueue,
		AverageDurationMinutes: minutes(p.AverageDuration),
		EstimatedWaitMinutes:   minutes(p.EstimatedWait),
	}
}

type CandidateQueueItemResponse struct {
	ScheduleID           string    `json:"schedule_id"`
	VenueName            string    `json:"venue_name"`
	ActivityType         string    `json:"activity_type"`
	StartTime            time.Time `json:"start_time"`
	Position             int       `json:"position"`
	TotalInQueue         int       `json:"total_in_queue"`
	EstimatedWaitMinutes int       `json:"estimated_wait_minutes"`
}

type CandidateQueueResponse struct {
	Items     []CandidateQueueItemResponse `json:"items"`
	UpdatedAt time.Time                    `json:"updated_at"`
}

func fromCandidateQueue(entries []schedulingservice.CandidateQueueEntry, now time.Time) CandidateQueueResponse {
	resp := CandidateQueueResponse{Items: make([]CandidateQueueItemResponse, 0, len(entries)), UpdatedAt: now}
	for _, e := range entries {
		resp.Items = append(resp.Items, CandidateQueueItemResponse{
			ScheduleID:           e.Schedule.ID.String(),
			VenueName:            e.VenueName,
			ActivityType:         string(e.Schedule.ActivityType),
			StartTime:            e.Schedule.StartAt,
			Position:             e.Position.Position,
			TotalInQueue:         e.Position.TotalInQueue,
			EstimatedWaitMinutes: minutes(e.Position.EstimatedWait),
		})
	}
	return resp
}

type QueueEntryResponse struct {
	Position     int       `json:"position"`
	Name         string    `json:"name"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	ActivityType string    `json:"activity_type"`
}

type VenueQueueResponse struct {
	VenueID                string               `json:"venue_id"`
	VenueName              string               `json:"venue_name"`
	ExamDate               string               `json:"exam_date"`
	TotalPending           int                  `json:"total_pending"`
	AverageDurationMinutes int                  `json:"average_duration_minutes"`
	Entries                []QueueEntryResponse `json:"entries"`
}

func fromVenueQueue(q *schedulingservice.VenueQueue) VenueQueueResponse {
	resp := VenueQueueResponse{
		VenueID:                q.VenueID.String(),
		VenueName:              q.VenueName,
		ExamDate:               q.ExamDate.String(),
		TotalPending:           q.TotalPending,
		AverageDurationMinutes: minutes(q.AverageDuration),
		Entries:                make([]QueueEntryResponse, 0, len(q.Entries)),
	}
	for _, e := range q.Entries {
		resp.Entries = append(resp.Entries, QueueEntryResponse{
			Position:     e.Position,
			Name:         e.MaskedName,
			StartTime:    e.StartAt,
			EndTime:      e.EndAt,
			ActivityType: string(e.ActivityType),
		})
	}
	return resp
}

type CheckInCodeResponse struct {
	ScheduleID string    `json:"schedule_id"`
	Code       string    `json:"code"`
	ExpiresAt  time.Time `json:"expires_at"`
}

type ScanItemResponse struct {
	Code             string            `json:"code"`
	Status           string            `json:"status"`
	Schedule         *ScheduleResponse `json:"schedule,omitempty"`
	Error            string            `json:"error,omitempty"`
	ErrorDescription string            `json:"error_description,omitempty"`
}

type BatchScanResponse struct {
	Items     []ScanItemResponse `json:"items"`
	Succeeded int                `json:"succeeded"`
	Failed    int                `json:"failed"`
}

func fromScanResults(results []schedulingservice.ScanResult) BatchScanResponse {
	resp := BatchScanResponse{Items: make([]ScanItemResponse, 0, len(results))}
	for _, res := range results {
		item := ScanItemResponse{Code: res.Code}
		if res.Err != nil {
			item.Status = "error"
			item.Error = string(dErrors.CodeOf(res.Err))
			item.ErrorDescription = describe(res.Err)
			resp.Failed++
		} else {
			item.Status = "ok"
			sc := FromSchedule(res.Schedule)
			item.Schedule = &sc
			resp.Succeeded++
		}
		resp.Items = append(resp.Items, item)
	}
	return resp
}

type VenueStatsResponse struct {
	VenueID     string         `json:"venue_id"`
	Counts      map[string]int `json:"counts"`
	Total       int            `json:"total"`
	CheckInRate float64        `json:"check_in_rate"`
}

type CheckInStatsResponse struct {
	ExamDate    string               `json:"exam_date"`
	Counts      map[string]int       `json:"counts"`
	Total       int                  `json:"total"`
	CheckInRate float64              `json:"check_in_rate"`
	Venues      []VenueStatsResponse `json:"venues"`
}

func fromStats(st *schedulingservice.CheckInStats) CheckInStatsResponse {
	resp := CheckInStatsResponse{
		ExamDate:    st.ExamDate.String(),
		Counts:      statusCounts(st.Counts),
		Total:       st.Total,
		CheckInRate: st.CheckInRate,
		Venues:      make([]VenueStatsResponse, 0, len(st.Venues)),
	}
	for _, v := range st.Venues {
		resp.Venues = append(resp.Venues, VenueStatsResponse{
			VenueID:     v.VenueID.String(),
			Counts:      statusCounts(v.Counts),
			Total:       v.Total,
			CheckInRate: v.CheckInRate,
		})
	}
	return resp
}

func statusCounts(in map[models.Status]int) map[string]int {
	out := make(map[string]int, len(in))
	for st, n := range in {
		out[string(st)] = n
	}
	return out
}

func minutes(d time.Duration) int {
	return int(d.Round(time.Minute) / time.Minute)
}

// describe returns the client-facing message of a domain error and a generic
// one for anything else.
func describe(err error) string {
	if de, ok := dErrors.As(err); ok && de.Code != dErrors.CodeInternal {
		return de.Message
	}
	return "internal error"
}
