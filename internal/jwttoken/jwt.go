package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

// RoleCandidate is the role of self-service candidate sessions.
const RoleCandidate = "candidate"

// AccessTokenClaims are carried by staff and candidate access tokens.
type AccessTokenClaims struct {
	UserID        string `json:"user_id,omitempty"`
	Role          string `json:"role"`
	InstitutionID string `json:"institution_id,omitempty"`
	CandidateID   string `json:"candidate_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTService handles JWT creation and validation
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	now        func() time.Time
}

func NewJWTService(signingKey string, issuer string, audience string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		now:        time.Now,
	}
}

func (s *JWTService) GenerateAccessToken(
	userID id.UserID,
	role string,
	institutionID id.InstitutionID,
	expiresIn time.Duration) (string, error) {
	now := s.now()
	claims := AccessTokenClaims{
		UserID: userID.String(),
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	}
	if !institutionID.IsNil() {
		claims.InstitutionID = institutionID.String()
	}

	return s.sign(claims)
}

// GenerateCandidateToken issues a read-only session for one candidate.
func (s *JWTService) GenerateCandidateToken(candidateID id.CandidateID, expiresIn time.Duration) (string, error) {
	now := s.now()
	return s.sign(AccessTokenClaims{
		Role:        RoleCandidate,
		CandidateID: candidateID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   candidateID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})
}

func (s *JWTService) sign(claims AccessTokenClaims) (string, error) {
	signedToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.signingKey)
	if err != nil {
		return "", err
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*AccessTokenClaims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &AccessTokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AccessTokenClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	return claims, nil
}
