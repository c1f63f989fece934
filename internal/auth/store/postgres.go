package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"examsite/internal/auth/models"
	"examsite/internal/platform/database"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/platform/tx"
)

type userRow struct {
	ID            uuid.UUID     `db:"id"`
	Username      string        `db:"username"`
	PasswordHash  string        `db:"password_hash"`
	Role          string        `db:"role"`
	InstitutionID uuid.NullUUID `db:"institution_id"`
	Status        string        `db:"status"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func (r userRow) toModel() *models.User {
	u := &models.User{
		ID:           id.UserID(r.ID),
		Username:     r.Username,
		PasswordHash: r.PasswordHash,
		Role:         models.Role(r.Role),
		Status:       models.UserStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.InstitutionID.Valid {
		u.InstitutionID = id.InstitutionID(r.InstitutionID.UUID)
	}
	return u
}

const userColumns = `id, username, password_hash, role, institution_id, status, created_at, updated_at`

type PostgresUsers struct {
	db *sqlx.DB
}

func NewPostgresUsers(db *sqlx.DB) *PostgresUsers {
	return &PostgresUsers{db: db}
}

func (s *PostgresUsers) Create(ctx context.Context, u *models.User) error {
	inst := uuid.NullUUID{UUID: uuid.UUID(u.InstitutionID), Valid: !u.InstitutionID.IsNil()}
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(u.ID), u.Username, u.PasswordHash, string(u.Role), inst, string(u.Status), u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "users_username_key") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresUsers) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, uuid.UUID(userID))
}

func (s *PostgresUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

func (s *PostgresUsers) findOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var row userRow
	if err := tx.Executor(ctx, s.db).GetContext(ctx, &row, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresUsers) List(ctx context.Context) ([]*models.User, error) {
	var rows []userRow
	if err := tx.Executor(ctx, s.db).SelectContext(ctx, &rows,
		`SELECT `+userColumns+` FROM users ORDER BY username`); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*models.User, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
