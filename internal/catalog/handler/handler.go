package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"examsite/internal/catalog/models"
	catalogservice "examsite/internal/catalog/service"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/httputil"
	"examsite/pkg/requestcontext"
)

// Service defines the catalog operations exposed over HTTP.
type Service interface {
	CreateInstitution(ctx context.Context, cmd catalogservice.CreateInstitutionCommand) (*models.Institution, error)
	GetInstitution(ctx context.Context, instID id.InstitutionID) (*models.Institution, error)
	ListInstitutions(ctx context.Context) ([]*models.Institution, error)
	CreateVenue(ctx context.Context, cmd catalogservice.CreateVenueCommand) (*models.Venue, error)
	GetVenue(ctx context.Context, venueID id.VenueID) (*models.Venue, error)
	ListVenues(ctx context.Context, filter models.VenueFilter) ([]*models.Venue, error)
	SetVenueStatus(ctx context.Context, venueID id.VenueID, status models.ResourceStatus) (*models.Venue, error)
	CreateExamProduct(ctx context.Context, cmd catalogservice.CreateExamProductCommand) (*models.ExamProduct, error)
	GetExamProduct(ctx context.Context, productID id.ExamProductID) (*models.ExamProduct, error)
	ListExamProducts(ctx context.Context) ([]*models.ExamProduct, error)
}

// RoleGuard builds middleware admitting only the given roles.
type RoleGuard func(roles ...string) func(http.Handler) http.Handler

type Handler struct {
	service Service
	logger  *slog.Logger
	guard   RoleGuard
}

func New(service Service, logger *slog.Logger, guard RoleGuard) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

// Register mounts catalog routes. Writes are admin only; reads are open to
// admin and staff.
func (h *Handler) Register(r chi.Router) {
	admin := h.guard("admin")
	readers := h.guard("admin", "staff")

	r.With(admin).Post("/institutions", h.HandleCreateInstitution)
	r.With(admin).Get("/institutions", h.HandleListInstitutions)
	r.With(admin).Get("/institutions/{id}", h.HandleGetInstitution)

	r.With(admin).Post("/venues", h.HandleCreateVenue)
	r.With(readers).Get("/venues", h.HandleListVenues)
	r.With(readers).Get("/venues/{id}", h.HandleGetVenue)
	r.With(admin).Patch("/venues/{id}/status", h.HandleUpdateVenueStatus)

	r.With(admin).Post("/exam-products", h.HandleCreateExamProduct)
	r.With(readers).Get("/exam-products", h.HandleListExamProducts)
	r.With(readers).Get("/exam-products/{id}", h.HandleGetExamProduct)
}

func (h *Handler) HandleCreateInstitution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[CreateInstitutionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	inst, err := h.service.CreateInstitution(ctx, catalogservice.CreateInstitutionCommand{Name: req.Name})
	if err != nil {
		h.fail(ctx, w, "failed to create institution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromInstitution(inst))
}

func (h *Handler) HandleGetInstitution(w http.ResponseWriter, r *http.Request) {
	instID, err := id.ParseInstitutionID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	inst, err := h.service.GetInstitution(r.Context(), instID)
	if err != nil {
		h.fail(r.Context(), w, "failed to get institution", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstitution(inst))
}

func (h *Handler) HandleListInstitutions(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListInstitutions(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to list institutions", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(items, FromInstitution))
}

func (h *Handler) HandleCreateVenue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[CreateVenueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	v, err := h.service.CreateVenue(ctx, catalogservice.CreateVenueCommand{
		Name:     req.Name,
		Address:  req.Address,
		Type:     req.ParsedType(),
		Capacity: req.Capacity,
	})
	if err != nil {
		h.fail(ctx, w, "failed to create venue", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromVenue(v))
}

func (h *Handler) HandleGetVenue(w http.ResponseWriter, r *http.Request) {
	venueID, err := id.ParseVenueID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	v, err := h.service.GetVenue(r.Context(), venueID)
	if err != nil {
		h.fail(r.Context(), w, "failed to get venue", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVenue(v))
}

func (h *Handler) HandleListVenues(w http.ResponseWriter, r *http.Request) {
	filter := models.VenueFilter{}
	if t := r.URL.Query().Get("type"); t != "" {
		vt, err := models.ParseVenueType(t)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Type = vt
	}
	if st := r.URL.Query().Get("status"); st != "" {
		rs, err := models.ParseResourceStatus(st)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.Status = rs
	}
	items, err := h.service.ListVenues(r.Context(), filter)
	if err != nil {
		h.fail(r.Context(), w, "failed to list venues", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(items, FromVenue))
}

func (h *Handler) HandleUpdateVenueStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	venueID, err := id.ParseVenueID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpdateVenueStatusRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	v, err := h.service.SetVenueStatus(ctx, venueID, req.ParsedStatus())
	if err != nil {
		h.fail(ctx, w, "failed to update venue status", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVenue(v))
}

func (h *Handler) HandleCreateExamProduct(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	req, ok := httputil.DecodeAndPrepare[CreateExamProductRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}
	p, err := h.service.CreateExamProduct(ctx, catalogservice.CreateExamProductCommand{
		Name:               req.Name,
		Description:        req.Description,
		Category:           req.parsedCategory,
		AircraftType:       req.parsedAircraft,
		Duration:           req.Duration(),
		TheoryPassScore:    *req.TheoryPassScore,
		PracticalPassScore: *req.PracticalPassScore,
	})
	if err != nil {
		h.fail(ctx, w, "failed to create exam product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromExamProduct(p))
}

func (h *Handler) HandleGetExamProduct(w http.ResponseWriter, r *http.Request) {
	productID, err := id.ParseExamProductID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	p, err := h.service.GetExamProduct(r.Context(), productID)
	if err != nil {
		h.fail(r.Context(), w, "failed to get exam product", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromExamProduct(p))
}

func (h *Handler) HandleListExamProducts(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListExamProducts(r.Context())
	if err != nil {
		h.fail(r.Context(), w, "failed to list exam products", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listOf(items, FromExamProduct))
}

func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	h.logger.WarnContext(ctx, msg,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	)
	httputil.WriteError(w, err)
}
