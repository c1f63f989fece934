// Package app is the composition root shared by the API server and examctl.
// It picks Postgres or in-memory storage from the configuration and wires
// every module against it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jmoiron/sqlx"

	authhandler "examsite/internal/auth/handler"
	authservice "examsite/internal/auth/service"
	authstore "examsite/internal/auth/store"
	candidatehandler "examsite/internal/candidate/handler"
	candidateservice "examsite/internal/candidate/service"
	candidatestore "examsite/internal/candidate/store"
	"examsite/internal/catalog/cache"
	cataloghandler "examsite/internal/catalog/handler"
	catalogservice "examsite/internal/catalog/service"
	catalogstore "examsite/internal/catalog/store"
	"examsite/internal/jwttoken"
	"examsite/internal/platform/config"
	"examsite/internal/platform/database"
	"examsite/internal/platform/kafka"
	"examsite/internal/platform/metrics"
	platformredis "examsite/internal/platform/redis"
	ratelimitmetrics "examsite/internal/ratelimit/metrics"
	ratelimitmw "examsite/internal/ratelimit/middleware"
	ratelimitmodels "examsite/internal/ratelimit/models"
	ratelimitservice "examsite/internal/ratelimit/service"
	"examsite/internal/ratelimit/store/bucket"
	"examsite/internal/scheduling/checkincode"
	"examsite/internal/scheduling/events"
	schedulinghandler "examsite/internal/scheduling/handler"
	schedulingmetrics "examsite/internal/scheduling/metrics"
	schedulingservice "examsite/internal/scheduling/service"
	schedulingstore "examsite/internal/scheduling/store"
	httptransport "examsite/internal/transport/http"
	"examsite/pkg/platform/tx"
)

type venueStore interface {
	catalogservice.VenueStore
	schedulingservice.VenueLocker
}

// App holds the wired services and the infrastructure they run on. DB, Redis
// and Producer are nil when the matching setting is empty.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	DB       *sqlx.DB
	Redis    *platformredis.Client
	Producer *kafka.Producer
	Metrics  *metrics.Registry
	JWT      *jwttoken.JWTService

	Auth       *authservice.Service
	Catalog    *catalogservice.Service
	Candidates *candidateservice.Service
	Scheduling *schedulingservice.Service
	// RateLimit is nil when public rate limiting is disabled.
	RateLimit *ratelimitservice.Service
}

// New connects to the configured infrastructure and builds the services.
// Call Close when done, also after a partial failure.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (a *App, err error) {
	a = &App{Config: cfg, Logger: logger, Metrics: metrics.NewRegistry()}
	defer func() {
		if err != nil {
			a.Close()
			a = nil
		}
	}()

	var (
		users        authservice.UserStore
		venues       venueStore
		products     catalogservice.ExamProductStore
		institutions catalogservice.InstitutionStore
		candidates   interface {
			candidateservice.Store
			schedulingservice.CandidateStore
		}
		schedules  schedulingservice.Store
		transactor schedulingservice.Transactor
	)

	if cfg.Database.URL != "" {
		if a.DB, err = database.Open(ctx, cfg.Database); err != nil {
			return a, err
		}
		if cfg.Database.AutoMigrate {
			if err = database.Migrate(ctx, a.DB, "up", logger); err != nil {
				return a, err
			}
		}
		users = authstore.NewPostgresUsers(a.DB)
		venues = catalogstore.NewPostgresVenues(a.DB)
		products = catalogstore.NewPostgresExamProducts(a.DB)
		institutions = catalogstore.NewPostgresInstitutions(a.DB)
		candidates = candidatestore.NewPostgres(a.DB)
		schedules = schedulingstore.NewPostgres(a.DB)
		transactor = tx.NewPostgres(a.DB, cfg.Database.TxTimeout)
	} else {
		logger.WarnContext(ctx, "no database configured, using in-memory stores")
		memVenues := catalogstore.NewInMemoryVenues()
		memCandidates := candidatestore.NewInMemory()
		memSchedules := schedulingstore.NewInMemory()
		users = authstore.NewInMemoryUsers()
		venues = memVenues
		products = catalogstore.NewInMemoryExamProducts()
		institutions = catalogstore.NewInMemoryInstitutions()
		candidates = memCandidates
		schedules = memSchedules
		transactor = tx.NewMemory(memSchedules, memCandidates, memVenues)
	}

	catalogOpts := []catalogservice.Option{catalogservice.WithLogger(logger)}
	if a.Redis, err = platformredis.New(ctx, cfg.Redis); err != nil {
		return a, err
	}
	if a.Redis != nil {
		catalogOpts = append(catalogOpts, catalogservice.WithCache(cache.New(a.Redis, cfg.Redis.CatalogTTL, logger)))
	}
	a.Catalog = catalogservice.New(venues, products, institutions, catalogOpts...)

	if cfg.RateLimit.Enabled {
		if a.RateLimit, err = newRateLimiter(cfg.RateLimit, a.Redis, a.Metrics, logger); err != nil {
			return a, err
		}
	}

	a.JWT = jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.Issuer, cfg.Auth.Audience)
	a.Auth = authservice.New(users, a.JWT, a.Catalog, cfg.Auth.TokenTTL,
		authservice.WithLogger(logger),
		authservice.WithCandidates(candidates),
	)
	a.Candidates = candidateservice.New(candidates, a.Catalog,
		candidateservice.WithLogger(logger),
		candidateservice.WithTransactor(transactor),
	)

	schedMetrics := schedulingmetrics.New(a.Metrics.Registerer())
	var publisher events.Publisher = events.NewLogPublisher(logger)
	if a.Producer, err = kafka.NewProducer(ctx, cfg.Kafka); err != nil {
		return a, err
	}
	if a.Producer != nil {
		if topicErr := a.Producer.EnsureTopic(ctx, cfg.Kafka.Partitions, cfg.Kafka.ReplicationFactor); topicErr != nil {
			logger.WarnContext(ctx, "could not ensure event topic", "topic", a.Producer.Topic(), "error", topicErr)
		}
		publisher = events.NewKafkaPublisher(a.Producer, logger, events.WithFailureRecorder(schedMetrics))
	}

	a.Scheduling = schedulingservice.New(
		schedules,
		candidates,
		venues,
		a.Catalog,
		transactor,
		checkincode.New(cfg.CheckIn.CodeSecret, cfg.CheckIn.CodeTTL),
		schedulingservice.Config{
			Location:         cfg.Scheduling.Location,
			DayStart:         cfg.Scheduling.DayStart,
			DayEnd:           cfg.Scheduling.DayEnd,
			DefaultDuration:  cfg.Scheduling.DefaultDuration,
			BreakDuration:    cfg.Scheduling.BreakDuration,
			MaxPerDay:        cfg.Scheduling.MaxPerDay,
			MaxBatchSize:     cfg.Scheduling.MaxBatchSize,
			BatchConcurrency: cfg.CheckIn.BatchConcurrency,
		},
		schedulingservice.WithLogger(logger),
		schedulingservice.WithMetrics(schedMetrics),
		schedulingservice.WithPublisher(publisher),
	)

	created, err := a.Auth.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminUsername, cfg.Auth.BootstrapAdminPassword)
	if err != nil {
		return a, fmt.Errorf("bootstrap admin: %w", err)
	}
	if created {
		logger.InfoContext(ctx, "bootstrap admin created", "username", cfg.Auth.BootstrapAdminUsername)
	}
	return a, nil
}

// Router builds the HTTP API over the wired services.
func (a *App) Router() http.Handler {
	guard := httptransport.RoleGuard(a.Logger)
	auth := authhandler.New(a.Auth, a.Logger, guard)
	scheduling := schedulinghandler.New(a.Scheduling, a.Logger, guard)

	checks := map[string]httptransport.HealthCheck{}
	if a.DB != nil {
		checks["postgres"] = a.DB.PingContext
	}
	if a.Redis != nil {
		checks["redis"] = a.Redis.Health
	}

	var publicLimit func(http.Handler) http.Handler
	if a.RateLimit != nil {
		publicLimit = ratelimitmw.New(a.RateLimit, a.Logger).RateLimitPublic
	}

	return httptransport.NewRouter(httptransport.Config{
		Logger:         a.Logger,
		Observer:       a.Metrics,
		MetricsHandler: a.Metrics.Handler(),
		MetricsToken:   a.Config.Server.MetricsToken,
		RequestTimeout: a.Config.Server.RequestTimeout,
		Tokens:         jwttoken.NewJWTServiceAdapter(a.JWT),
		PublicLimit:    publicLimit,
		HealthChecks:   checks,
		Public:         []httptransport.PublicModule{auth, scheduling},
		Modules: []httptransport.Module{
			auth,
			cataloghandler.New(a.Catalog, a.Logger, guard),
			candidatehandler.New(a.Candidates, a.Logger, guard),
			scheduling,
		},
	})
}

// newRateLimiter shares budgets through Redis when it is configured and keeps
// them in process memory otherwise.
func newRateLimiter(cfg config.RateLimit, redis *platformredis.Client, reg *metrics.Registry, logger *slog.Logger) (*ratelimitservice.Service, error) {
	var primary ratelimitservice.BucketStore = bucket.New()
	if redis != nil {
		primary = bucket.NewRedis(redis)
	}
	return ratelimitservice.New(primary,
		map[ratelimitmodels.EndpointClass]ratelimitmodels.Limit{
			ratelimitmodels.ClassLogin: {Requests: cfg.LoginRequests, Window: cfg.LoginWindow},
			ratelimitmodels.ClassBoard: {Requests: cfg.BoardRequests, Window: cfg.BoardWindow},
		},
		ratelimitservice.WithLogger(logger),
		ratelimitservice.WithMetrics(ratelimitmetrics.New(reg.Registerer())),
	)
}

// Close releases every connection New opened.
func (a *App) Close() {
	if a.Producer != nil {
		a.Producer.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("failed to close redis", "error", err)
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			a.Logger.Warn("failed to close database", "error", err)
		}
	}
}
