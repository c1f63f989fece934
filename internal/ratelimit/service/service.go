// Package service decides whether a public request fits its IP budget.
//
// The primary bucket store is usually Redis. After repeated store errors the
// circuit opens and checks run on an in-memory store, with one trial of the
// primary per breaker cooldown, until the primary answers again. Results
// produced by the fallback are marked Degraded.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"examsite/internal/ratelimit/metrics"
	"examsite/internal/ratelimit/models"
	"examsite/internal/ratelimit/store/bucket"
	dErrors "examsite/pkg/domain-errors"
	"examsite/pkg/platform/circuit"
)

// BucketStore records requests against a sliding window.
type BucketStore interface {
	Allow(ctx context.Context, key string, limit models.Limit) (*models.RateLimitResult, error)
}

type Service struct {
	primary  BucketStore
	fallback BucketStore
	breaker  *circuit.Breaker
	limits   map[models.EndpointClass]models.Limit
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithFallback replaces the in-memory fallback store.
func WithFallback(store BucketStore) Option {
	return func(s *Service) {
		s.fallback = store
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(s *Service) {
		s.breaker = b
	}
}

func New(primary BucketStore, limits map[models.EndpointClass]models.Limit, opts ...Option) (*Service, error) {
	if primary == nil {
		return nil, fmt.Errorf("bucket store is required")
	}
	for class, limit := range limits {
		if !class.IsValid() {
			return nil, fmt.Errorf("unknown endpoint class %q", class)
		}
		if err := limit.Validate(); err != nil {
			return nil, fmt.Errorf("limit for %s: %w", class, err)
		}
	}
	s := &Service{
		primary: primary,
		limits:  limits,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.fallback == nil {
		s.fallback = bucket.New()
	}
	if s.breaker == nil {
		s.breaker = circuit.New("ratelimit")
	}
	return s, nil
}

// CheckIP consumes one request from the IP's budget for class. A class
// without a configured limit is always allowed and returns a nil result.
func (s *Service) CheckIP(ctx context.Context, ip string, class models.EndpointClass) (*models.RateLimitResult, error) {
	if !class.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown endpoint class")
	}
	limit, ok := s.limits[class]
	if !ok {
		return nil, nil
	}
	key := models.NewIPRateLimitKey(ip, class)

	if s.breaker.IsOpen() {
		if !s.breaker.Allow() {
			return s.checkFallback(ctx, key, class, limit)
		}
		// try the primary; a successful trial answers the request so it is
		// charged to one store only
		result, err := s.primary.Allow(ctx, key, limit)
		if err != nil {
			s.breaker.RecordFailure()
			return s.checkFallback(ctx, key, class, limit)
		}
		if _, change := s.breaker.RecordSuccess(); change.Closed {
			s.logger.InfoContext(ctx, "rate limit store recovered")
			s.setDegraded(false)
		}
		return s.observe(class, result), nil
	}

	result, err := s.primary.Allow(ctx, key, limit)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncrementStoreErrors()
		}
		useFallback, change := s.breaker.RecordFailure()
		if change.Opened {
			s.logger.WarnContext(ctx, "rate limit store failing, switching to in-memory fallback", "error", err)
			s.setDegraded(true)
		}
		if !useFallback {
			return nil, fmt.Errorf("check %s limit: %w", class, err)
		}
		return s.checkFallback(ctx, key, class, limit)
	}
	s.breaker.RecordSuccess()
	return s.observe(class, result), nil
}

func (s *Service) checkFallback(ctx context.Context, key string, class models.EndpointClass, limit models.Limit) (*models.RateLimitResult, error) {
	result, err := s.fallback.Allow(ctx, key, limit)
	if err != nil {
		return nil, fmt.Errorf("check %s limit on fallback: %w", class, err)
	}
	result.Degraded = true
	return s.observe(class, result), nil
}

func (s *Service) observe(class models.EndpointClass, result *models.RateLimitResult) *models.RateLimitResult {
	if !result.Allowed && s.metrics != nil {
		s.metrics.IncrementRejections(class.String())
	}
	return result
}

func (s *Service) setDegraded(degraded bool) {
	if s.metrics != nil {
		s.metrics.SetDegraded(degraded)
	}
}
