package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/go-chi/chi/v5"

	"examsite/internal/scheduling/models"
	schedulingservice "examsite/internal/scheduling/service"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/httputil"
	"examsite/pkg/requestcontext"
)

const (
	defaultListLimit  = 100
	maxListLimit      = 500
	defaultQueueLimit = 20
	maxQueueLimit     = 100
)

type Service interface {
	CreateBatchSchedule(ctx context.Context, cmd schedulingservice.BatchScheduleCommand) ([]*models.Schedule, error)
	GetSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error)
	ListSchedules(ctx context.Context, filter models.Filter) ([]*models.Schedule, error)
	GetQueuePosition(ctx context.Context, scheduleID id.ScheduleID) (models.QueuePosition, error)
	CandidateQueueStatus(ctx context.Context, candidateID id.CandidateID) ([]schedulingservice.CandidateQueueEntry, error)
	GetVenueQueue(ctx context.Context, venueID id.VenueID, date civil.Date, limit int) (*schedulingservice.VenueQueue, error)
	IssueCheckInCode(ctx context.Context, scheduleID id.ScheduleID) (*schedulingservice.CheckInCode, error)
	CompleteSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error)
	CancelSchedule(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error)
	ScanCheckIn(ctx context.Context, code string) (*models.Schedule, error)
	BatchScanCheckIn(ctx context.Context, codes []string) ([]schedulingservice.ScanResult, error)
	GetCheckInStats(ctx context.Context, date civil.Date, venueID *id.VenueID) (*schedulingservice.CheckInStats, error)
	Today(ctx context.Context) civil.Date
}

type Handler struct {
	service Service
	logger  *slog.Logger
	guard   func(roles ...string) func(http.Handler) http.Handler
}

func New(service Service, logger *slog.Logger, guard func(roles ...string) func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

// Register mounts the authenticated scheduling and check-in routes.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard("admin"))
		r.Post("/schedules/batch", h.HandleBatchSchedule)
		r.Post("/schedules/{id}/cancel", h.HandleCancel)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard("admin", "staff", "institution", "candidate"))
		r.Get("/schedules", h.HandleList)
		r.Get("/schedules/{id}", h.HandleGet)
		r.Get("/schedules/{id}/queue-position", h.HandleQueuePosition)
		r.Get("/schedules/{id}/checkin-code", h.HandleCheckInCode)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard("admin", "staff"))
		r.Post("/schedules/{id}/complete", h.HandleComplete)
		r.Post("/checkin/scan", h.HandleScan)
		r.Post("/checkin/batch-scan", h.HandleBatchScan)
		r.Get("/checkin/stats", h.HandleStats)
	})
	r.With(h.guard("candidate")).Get("/candidate/queue-status", h.HandleCandidateQueueStatus)
}

// RegisterPublic mounts the unauthenticated venue board.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/venues/{id}/queue", h.HandleVenueQueue)
}

func (h *Handler) HandleBatchSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[BatchScheduleRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	created, err := h.service.CreateBatchSchedule(ctx, req.cmd)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create batch schedule",
			"request_id", requestID,
			"venue_id", req.VenueID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, BatchScheduleResponse{Items: fromSchedules(created), Total: len(created)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sc, err := h.service.GetSchedule(r.Context(), scheduleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSchedule(sc))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := intParam(q.Get("limit"), defaultListLimit)
	if err != nil || limit < 1 || limit > maxListLimit {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 500"))
		return
	}
	filter := models.Filter{Limit: limit}
	if raw := q.Get("date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.ExamDate = &date
	}
	if raw := q.Get("venue_id"); raw != "" {
		if filter.VenueID, err = id.ParseVenueID(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("candidate_id"); raw != "" {
		if filter.CandidateID, err = id.ParseCandidateID(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("institution_id"); raw != "" {
		if filter.InstitutionID, err = id.ParseInstitutionID(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if raw := q.Get("status"); raw != "" {
		if filter.Status, err = models.ParseStatus(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	items, err := h.service.ListSchedules(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ScheduleListResponse{Items: fromSchedules(items), Total: len(items)})
}

func (h *Handler) HandleQueuePosition(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	pos, err := h.service.GetQueuePosition(r.Context(), scheduleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromQueuePosition(pos))
}

// HandleCandidateQueueStatus answers a candidate session with its own
// pending schedules for today.
func (h *Handler) HandleCandidateQueueStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entries, err := h.service.CandidateQueueStatus(ctx, requestcontext.CandidateID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromCandidateQueue(entries, requestcontext.Now(ctx)))
}

func (h *Handler) HandleCheckInCode(w http.ResponseWriter, r *http.Request) {
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	code, err := h.service.IssueCheckInCode(r.Context(), scheduleID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CheckInCodeResponse{
		ScheduleID: code.ScheduleID.String(),
		Code:       code.Code,
		ExpiresAt:  code.ExpiresAt,
	})
}

func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "complete", h.service.CompleteSchedule)
}

func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	h.handleTransition(w, r, "cancel", h.service.CancelSchedule)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request, action string,
	apply func(context.Context, id.ScheduleID) (*models.Schedule, error),
) {
	ctx := r.Context()
	scheduleID, err := id.ParseScheduleID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	sc, err := apply(ctx, scheduleID)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to "+action+" schedule",
			"request_id", requestcontext.RequestID(ctx),
			"schedule_id", scheduleID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSchedule(sc))
}

func (h *Handler) HandleScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[ScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	sc, err := h.service.ScanCheckIn(ctx, req.Code)
	if err != nil {
		h.logger.WarnContext(ctx, "check-in scan rejected", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSchedule(sc))
}

// HandleBatchScan always answers 200 once the batch itself is accepted.
// Per-code failures are reported in the items.
func (h *Handler) HandleBatchScan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[BatchScanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	results, err := h.service.BatchScanCheckIn(ctx, req.Codes)
	if err != nil {
		h.logger.WarnContext(ctx, "batch scan rejected", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromScanResults(results))
}

func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	date := h.service.Today(ctx)
	if raw := q.Get("date"); raw != "" {
		parsed, err := parseDate(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		date = parsed
	}
	var venueID *id.VenueID
	if raw := q.Get("venue_id"); raw != "" {
		v, err := id.ParseVenueID(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		venueID = &v
	}
	stats, err := h.service.GetCheckInStats(ctx, date, venueID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromStats(stats))
}

func (h *Handler) HandleVenueQueue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	venueID, err := id.ParseVenueID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	q := r.URL.Query()
	date := h.service.Today(ctx)
	if raw := q.Get("date"); raw != "" {
		if date, err = parseDate(raw); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	limit, err := intParam(q.Get("limit"), defaultQueueLimit)
	if err != nil || limit < 1 || limit > maxQueueLimit {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be between 1 and 100"))
		return
	}
	queue, err := h.service.GetVenueQueue(ctx, venueID, date, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, fromVenueQueue(queue))
}

func parseDate(raw string) (civil.Date, error) {
	date, err := civil.ParseDate(raw)
	if err != nil {
		return civil.Date{}, dErrors.New(dErrors.CodeInvalidInput, "date must be YYYY-MM-DD")
	}
	return date, nil
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
