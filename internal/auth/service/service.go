package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"examsite/internal/auth/models"
	candidatemodels "examsite/internal/candidate/models"
	catalogmodels "examsite/internal/catalog/models"
	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/requestcontext"
)

const minPasswordLength = 8

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, role string, institutionID id.InstitutionID, expiresIn time.Duration) (string, error)
	GenerateCandidateToken(candidateID id.CandidateID, expiresIn time.Duration) (string, error)
}

// CandidateDirectory finds registered candidates for self-service login.
type CandidateDirectory interface {
	FindByIDNumber(ctx context.Context, idNumber string) (*candidatemodels.Candidate, error)
}

type InstitutionReader interface {
	GetInstitution(ctx context.Context, instID id.InstitutionID) (*catalogmodels.Institution, error)
}

// Service authenticates staff accounts and manages them.
type Service struct {
	users        UserStore
	tokens       TokenIssuer
	institutions InstitutionReader
	candidates   CandidateDirectory
	tokenTTL     time.Duration
	bcryptCost   int
	logger       *slog.Logger

	// dummyHash is compared against when a username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash []byte
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithBcryptCost overrides the hashing cost. Tests use bcrypt.MinCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		s.bcryptCost = cost
	}
}

// WithCandidates enables candidate self-service login.
func WithCandidates(dir CandidateDirectory) Option {
	return func(s *Service) {
		s.candidates = dir
	}
}

func New(users UserStore, tokens TokenIssuer, institutions InstitutionReader, tokenTTL time.Duration, opts ...Option) *Service {
	s := &Service{
		users:        users,
		tokens:       tokens,
		institutions: institutions,
		tokenTTL:     tokenTTL,
		bcryptCost:   bcrypt.DefaultCost,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("examsite-dummy-password"), s.bcryptCost)
	return s
}

type LoginResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	User        *models.User
}

// Login checks the credentials and issues an access token. Unknown users,
// wrong passwords and disabled accounts all fail the same way.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")

	u, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		s.logger.WarnContext(ctx, "login failed", "request_id", requestcontext.RequestID(ctx), "reason", "unknown_user")
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "login failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", u.ID.String(),
			"reason", "bad_password",
		)
		return nil, invalid
	}
	if !u.IsActive() {
		return nil, invalid
	}

	token, err := s.tokens.GenerateAccessToken(u.ID, string(u.Role), u.InstitutionID, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	s.logger.InfoContext(ctx, "user logged in",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", u.ID.String(),
		"role", string(u.Role),
	)
	return &LoginResult{AccessToken: token, ExpiresIn: s.tokenTTL, User: u}, nil
}

type CandidateLoginResult struct {
	AccessToken string
	ExpiresIn   time.Duration
	Candidate   *candidatemodels.Candidate
}

// CandidateLogin opens a candidate session from an id number. The session
// only reads the candidate's own schedules. Rejected and inactive
// registrations cannot log in.
func (s *Service) CandidateLogin(ctx context.Context, rawIDNumber string) (*CandidateLoginResult, error) {
	invalid := dErrors.New(dErrors.CodeUnauthorized, "no active registration for this id number")
	if s.candidates == nil {
		return nil, invalid
	}
	idNumber, err := candidatemodels.NormalizeIDNumber(rawIDNumber)
	if err != nil {
		return nil, invalid
	}

	c, err := s.candidates.FindByIDNumber(ctx, idNumber)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
		}
		s.logger.WarnContext(ctx, "candidate login failed", "request_id", requestcontext.RequestID(ctx), "reason", "unknown_id_number")
		return nil, invalid
	}
	if c.Status == candidatemodels.StatusRejected || c.Status == candidatemodels.StatusInactive {
		s.logger.WarnContext(ctx, "candidate login failed",
			"request_id", requestcontext.RequestID(ctx),
			"candidate_id", c.ID.String(),
			"reason", string(c.Status),
		)
		return nil, invalid
	}

	token, err := s.tokens.GenerateCandidateToken(c.ID, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue access token")
	}
	s.logger.InfoContext(ctx, "candidate logged in",
		"request_id", requestcontext.RequestID(ctx),
		"candidate_id", c.ID.String(),
	)
	return &CandidateLoginResult{AccessToken: token, ExpiresIn: s.tokenTTL, Candidate: c}, nil
}

type CreateUserCommand struct {
	Username      string
	Password      string
	Role          models.Role
	InstitutionID id.InstitutionID
}

func (s *Service) CreateUser(ctx context.Context, cmd CreateUserCommand) (*models.User, error) {
	if len(cmd.Password) < minPasswordLength {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if cmd.Role == models.RoleInstitution {
		inst, err := s.institutions.GetInstitution(ctx, cmd.InstitutionID)
		if err != nil {
			return nil, err
		}
		if !inst.IsActive() {
			return nil, dErrors.New(dErrors.CodeInvalidState, "institution is inactive")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), s.bcryptCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "password cannot be hashed")
	}
	u, err := models.NewUser(id.UserID(uuid.New()), cmd.Username, string(hash), cmd.Role, cmd.InstitutionID, requestcontext.Now(ctx))
	if err != nil {
		de, _ := dErrors.As(err)
		return nil, dErrors.New(dErrors.CodeValidation, de.Message)
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "username is already taken")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.logger.InfoContext(ctx, "user created",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", u.ID.String(),
		"role", string(u.Role),
	)
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, userID id.UserID) (*models.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "user not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]*models.User, error) {
	out, err := s.users.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return out, nil
}

// EnsureBootstrapAdmin creates the configured admin account when no user
// with that name exists. It reports whether an account was created.
func (s *Service) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		return false, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up bootstrap admin")
	}
	_, err := s.CreateUser(ctx, CreateUserCommand{Username: username, Password: password, Role: models.RoleAdmin})
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
