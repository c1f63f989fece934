// Package events delivers scheduling domain events after their transaction
// commits. Delivery is best effort: failures are logged and counted but never
// surface to the caller.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"examsite/pkg/platform/circuit"
)

type Type string

const (
	SchedulesCreated  Type = "schedules_created"
	ScheduleCheckedIn Type = "schedule_checked_in"
	ScheduleCompleted Type = "schedule_completed"
	ScheduleCancelled Type = "schedule_cancelled"
)

// Event is the wire record written to the event topic.
type Event struct {
	Type        Type      `json:"type"`
	OccurredAt  time.Time `json:"occurred_at"`
	RequestID   string    `json:"request_id,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	Device      string    `json:"device,omitempty"`
	VenueID     string    `json:"venue_id"`
	ExamDate    string    `json:"exam_date"`
	ScheduleIDs []string  `json:"schedule_ids"`
	Status      string    `json:"status,omitempty"`
}

// Publisher accepts events for delivery.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}

// Producer is the broker client the Kafka publisher writes through.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
}

// FailureRecorder counts undelivered events.
type FailureRecorder interface {
	IncrementPublishFailure(event string)
}

// LogPublisher writes events to the structured log. It is the publisher when
// no broker is configured and the fallback while the broker is failing.
type LogPublisher struct {
	logger *slog.Logger
}

func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, e Event) {
	p.logger.InfoContext(ctx, "scheduling event",
		"event", string(e.Type),
		"venue_id", e.VenueID,
		"exam_date", e.ExamDate,
		"schedules", len(e.ScheduleIDs),
		"actor_id", e.ActorID,
		"device", e.Device,
		"request_id", e.RequestID,
	)
}

const (
	defaultPublishTimeout = 3 * time.Second
	defaultRetryInterval  = 30 * time.Second
)

// KafkaPublisher writes events keyed by venue so a venue's events stay
// ordered on one partition. Events the broker rejects go to the log
// fallback. While the breaker is open events go straight to the log and
// only one event per retry interval is tried against the broker.
type KafkaPublisher struct {
	producer Producer
	breaker  *circuit.Breaker
	fallback Publisher
	failures FailureRecorder
	logger   *slog.Logger
	timeout  time.Duration
}

type Option func(*KafkaPublisher)

func WithFailureRecorder(r FailureRecorder) Option {
	return func(p *KafkaPublisher) {
		p.failures = r
	}
}

// WithBreaker replaces the default broker circuit breaker.
func WithBreaker(b *circuit.Breaker) Option {
	return func(p *KafkaPublisher) {
		if b != nil {
			p.breaker = b
		}
	}
}

func WithPublishTimeout(d time.Duration) Option {
	return func(p *KafkaPublisher) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewKafkaPublisher(producer Producer, logger *slog.Logger, opts ...Option) *KafkaPublisher {
	breaker := circuit.New("scheduling-events",
		circuit.WithFailureThreshold(3),
		circuit.WithSuccessThreshold(2),
		circuit.WithCooldown(defaultRetryInterval),
	)
	p := &KafkaPublisher{
		producer: producer,
		breaker:  breaker,
		fallback: NewLogPublisher(logger),
		logger:   logger,
		timeout:  defaultPublishTimeout,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) {
	value, err := json.Marshal(e)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to encode scheduling event", "event", string(e.Type), "error", err)
		return
	}
	if !p.breaker.Allow() {
		p.fallback.Publish(ctx, e)
		return
	}

	// Delivery outlives the request that triggered it.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	err = p.producer.Publish(sendCtx, e.VenueID, value, map[string]string{
		"event_type": string(e.Type),
		"request_id": e.RequestID,
	})
	if err != nil {
		if p.failures != nil {
			p.failures.IncrementPublishFailure(string(e.Type))
		}
		_, change := p.breaker.RecordFailure()
		if change.Opened {
			p.logger.WarnContext(ctx, "event broker circuit opened, logging events locally", "breaker", p.breaker.Name())
		}
		p.logger.WarnContext(ctx, "failed to publish scheduling event", "event", string(e.Type), "error", err)
		p.fallback.Publish(ctx, e)
		return
	}

	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "event broker circuit closed", "breaker", p.breaker.Name())
	}
}
