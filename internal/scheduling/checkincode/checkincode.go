// Package checkincode issues and resolves the opaque codes printed on
// admission slips and scanned at the venue door.
package checkincode

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/golang-jwt/jwt/v5"

	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

const issuer = "examsite-checkin"

type claims struct {
	ExamDate string `json:"exam_date"`
	jwt.RegisteredClaims
}

// Ticket is what a valid code resolves to.
type Ticket struct {
	ScheduleID id.ScheduleID
	ExamDate   civil.Date
	ExpiresAt  time.Time
}

// Codec signs codes with an HMAC secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
}

func New(secret string, ttl time.Duration) *Codec {
	return &Codec{secret: []byte(secret), ttl: ttl}
}

// Issue returns a code for the schedule valid for the configured TTL from now.
func (c *Codec) Issue(scheduleID id.ScheduleID, examDate civil.Date, now time.Time) (string, time.Time, error) {
	expires := now.Add(c.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		ExamDate: examDate.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   scheduleID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign check-in code")
	}
	return signed, expires, nil
}

// Resolve verifies a code as of now. Any malformed, forged or expired code is
// reported as not_found so scanners cannot guess valid schedules.
func (c *Codec) Resolve(code string, now time.Time) (*Ticket, error) {
	notFound := dErrors.New(dErrors.CodeNotFound, "check-in code not recognised")
	parsed, err := jwt.ParseWithClaims(code, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return c.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		return nil, notFound
	}
	cl, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return nil, notFound
	}
	scheduleID, err := id.ParseScheduleID(cl.Subject)
	if err != nil {
		return nil, notFound
	}
	examDate, err := civil.ParseDate(cl.ExamDate)
	if err != nil {
		return nil, notFound
	}
	return &Ticket{ScheduleID: scheduleID, ExamDate: examDate, ExpiresAt: cl.ExpiresAt.Time}, nil
}
