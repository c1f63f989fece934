// Package models holds staff accounts and their roles.
package models

import (
	"strings"
	"time"

	id "examsite/pkg/domain"
	dErrors "examsite/pkg/domain-errors"
)

type Role string

const (
	RoleAdmin       Role = "admin"
	RoleStaff       Role = "staff"
	RoleInstitution Role = "institution"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleStaff, RoleInstitution:
		return Role(s), nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "role must be one of admin, staff, institution")
}

type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserDisabled UserStatus = "disabled"
)

// User is a staff account. Institution accounts are bound to exactly one
// institution; admin and staff accounts to none.
type User struct {
	ID            id.UserID
	Username      string
	PasswordHash  string
	Role          Role
	InstitutionID id.InstitutionID
	Status        UserStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewUser(userID id.UserID, username, passwordHash string, role Role, instID id.InstitutionID, now time.Time) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash is required")
	}
	switch {
	case role == RoleInstitution && instID.IsNil():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "institution accounts require an institution")
	case role != RoleInstitution && !instID.IsNil():
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "only institution accounts belong to an institution")
	}
	return &User{
		ID:            userID,
		Username:      username,
		PasswordHash:  passwordHash,
		Role:          role,
		InstitutionID: instID,
		Status:        UserActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (u *User) IsActive() bool { return u.Status == UserActive }
