package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"examsite/internal/auth/models"
	authservice "examsite/internal/auth/service"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/httputil"
	"examsite/pkg/requestcontext"
)

type Service interface {
	Login(ctx context.Context, username, password string) (*authservice.LoginResult, error)
	CandidateLogin(ctx context.Context, idNumber string) (*authservice.CandidateLoginResult, error)
	CreateUser(ctx context.Context, cmd authservice.CreateUserCommand) (*models.User, error)
	GetUser(ctx context.Context, userID id.UserID) (*models.User, error)
	ListUsers(ctx context.Context) ([]*models.User, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
	guard   func(roles ...string) func(http.Handler) http.Handler
}

func New(service Service, logger *slog.Logger, guard func(roles ...string) func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, logger: logger, guard: guard}
}

// RegisterPublic mounts routes that need no token.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/candidate-login", h.HandleCandidateLogin)
}

// Register mounts routes for authenticated callers.
func (h *Handler) Register(r chi.Router) {
	r.With(h.guard("admin", "staff", "institution")).Get("/auth/me", h.HandleMe)
	r.With(h.guard("admin")).Post("/users", h.HandleCreateUser)
	r.With(h.guard("admin")).Get("/users", h.HandleListUsers)
}

type LoginRequest struct {
	Username string `json:"username" validate:"notblank,max=64"`
	Password string `json:"password" validate:"required,max=72"`
}

func (r *LoginRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
}

type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	ExpiresIn   int          `json:"expires_in"`
	User        UserResponse `json:"user"`
}

type CandidateLoginRequest struct {
	IDNumber string `json:"id_number" validate:"notblank,max=32"`
}

func (r *CandidateLoginRequest) Normalize() {
	r.IDNumber = strings.TrimSpace(r.IDNumber)
}

type CandidateSummary struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type CandidateLoginResponse struct {
	AccessToken string           `json:"access_token"`
	TokenType   string           `json:"token_type"`
	ExpiresIn   int              `json:"expires_in"`
	Candidate   CandidateSummary `json:"candidate"`
}

type CreateUserRequest struct {
	Username      string `json:"username" validate:"notblank,max=64"`
	Password      string `json:"password" validate:"required,min=8,max=72"`
	Role          string `json:"role" validate:"required"`
	InstitutionID string `json:"institution_id" validate:"omitempty,uuid"`

	role          models.Role
	institutionID id.InstitutionID
}

func (r *CreateUserRequest) Normalize() {
	r.Username = strings.TrimSpace(r.Username)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

func (r *CreateUserRequest) Validate() error {
	role, err := models.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.role = role
	if r.InstitutionID != "" {
		if r.institutionID, err = id.ParseInstitutionID(r.InstitutionID); err != nil {
			return err
		}
	}
	if role == models.RoleInstitution && r.institutionID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "institution_id is required for institution accounts")
	}
	return nil
}

type UserResponse struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	Role          string    `json:"role"`
	InstitutionID string    `json:"institution_id,omitempty"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

func FromUser(u *models.User) UserResponse {
	resp := UserResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Role:      string(u.Role),
		Status:    string(u.Status),
		CreatedAt: u.CreatedAt,
	}
	if !u.InstitutionID.IsNil() {
		resp.InstitutionID = u.InstitutionID.String()
	}
	return resp
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.Login(ctx, req.Username, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(res.ExpiresIn / time.Second),
		User:        FromUser(res.User),
	})
}

func (h *Handler) HandleCandidateLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[CandidateLoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	res, err := h.service.CandidateLogin(ctx, req.IDNumber)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CandidateLoginResponse{
		AccessToken: res.AccessToken,
		TokenType:   "Bearer",
		ExpiresIn:   int(res.ExpiresIn / time.Second),
		Candidate: CandidateSummary{
			ID:     res.Candidate.ID.String(),
			Name:   res.Candidate.Name,
			Status: string(res.Candidate.Status),
		},
	})
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	u, err := h.service.GetUser(ctx, requestcontext.UserID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromUser(u))
}

func (h *Handler) HandleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	req, ok := httputil.DecodeAndPrepare[CreateUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	u, err := h.service.CreateUser(ctx, authservice.CreateUserCommand{
		Username:      req.Username,
		Password:      req.Password,
		Role:          req.role,
		InstitutionID: req.institutionID,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create user", "request_id", requestID, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromUser(u))
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, FromUser(u))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"items": out, "total": len(out)})
}
