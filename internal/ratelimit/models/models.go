package models

import (
	"time"

	dErrors "examsite/pkg/domain-errors"
)

// EndpointClass groups public endpoints that share a request budget.
type EndpointClass string

const (
	// ClassLogin covers POST /auth/login.
	ClassLogin EndpointClass = "login"
	// ClassBoard covers the public venue queue board.
	ClassBoard EndpointClass = "board"
)

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassLogin, ClassBoard:
		return true
	}
	return false
}

func (c EndpointClass) String() string {
	return string(c)
}

// Limit is a request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

func (l Limit) Validate() error {
	if l.Requests <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "limit requests must be positive")
	}
	if l.Window <= 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "limit window must be positive")
	}
	return nil
}

// RateLimitResult represents the outcome of a rate limit check.
type RateLimitResult struct {
	Allowed    bool      `json:"allowed"`
	Limit      int       `json:"limit"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
	RetryAfter int       `json:"retry_after,omitempty"` // seconds, only set when not allowed
	Degraded   bool      `json:"-"`
}

// RateLimitExceededResponse is the 429 body. It keeps the error envelope
// fields so clients can handle it like any other API error.
type RateLimitExceededResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	RetryAfter       int    `json:"retry_after"`
}

// NewIPRateLimitKey builds the bucket key for one client IP and class.
func NewIPRateLimitKey(ip string, class EndpointClass) string {
	return "ip:" + ip + ":" + string(class)
}
