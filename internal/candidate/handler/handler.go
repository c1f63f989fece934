package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"examsite/internal/candidate/models"
	candidateservice "examsite/internal/candidate/service"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/httputil"
	"examsite/pkg/requestcontext"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type Service interface {
	Register(ctx context.Context, cmd candidateservice.RegisterCommand) (*models.Candidate, error)
	Get(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error)
	List(ctx context.Context, filter models.Filter) ([]*models.Candidate, int, error)
	UpdateStatus(ctx context.Context, candidateID id.CandidateID, next models.Status) (*models.Candidate, error)
	Import(ctx context.Context, cmd candidateservice.ImportCommand) (*candidateservice.ImportReport, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
	guard   func(roles ...string) func(http.Handler) http.Handler
}

func New(service Service, logger *slog.Logger, guard func(roles ...string) func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard("admin", "institution"))
		r.Post("/candidates", h.HandleRegister)
		r.Get("/candidates", h.HandleList)
		r.Get("/candidates/import/template", h.HandleImportTemplate)
		r.Post("/candidates/import", h.HandleImport)
		r.Get("/candidates/{id}", h.HandleGet)
		r.Patch("/candidates/{id}/status", h.HandleUpdateStatus)
	})
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[RegisterCandidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.Register(ctx, candidateservice.RegisterCommand{
		Name:          req.Name,
		IDNumber:      req.IDNumber,
		Phone:         req.Phone,
		InstitutionID: req.institutionID,
		ExamProductID: req.examProductID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to register candidate", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCandidate(c))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.Get(r.Context(), candidateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCandidate(c))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, err := intParam(q.Get("page"), 1)
	if err != nil || page < 1 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "page must be a positive integer"))
		return
	}
	size, err := intParam(q.Get("size"), defaultPageSize)
	if err != nil || size < 1 || size > maxPageSize {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "size must be between 1 and 100"))
		return
	}

	filter := models.Filter{Limit: size, Offset: (page - 1) * size}
	if st := q.Get("status"); st != "" {
		if filter.Status, err = models.ParseStatus(st); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}
	if inst := q.Get("institution_id"); inst != "" {
		if filter.InstitutionID, err = id.ParseInstitutionID(inst); err != nil {
			httputil.WriteError(w, err)
			return
		}
	}

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := CandidateListResponse{
		Items: make([]CandidateResponse, 0, len(items)),
		Total: total,
		Page:  page,
		Size:  size,
		Pages: (total + size - 1) / size,
	}
	for _, c := range items {
		resp.Items = append(resp.Items, FromCandidate(c))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	candidateID, err := id.ParseCandidateID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateCandidateStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	c, err := h.service.UpdateStatus(ctx, candidateID, req.parsed)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to update candidate status",
			"request_id", requestcontext.RequestID(ctx),
			"candidate_id", candidateID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCandidate(c))
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
