package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"examsite/internal/candidate/models"
	"examsite/internal/platform/database"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/platform/tx"
)

const idNumberConstraint = "candidates_id_number_key"

type candidateRow struct {
	ID              uuid.UUID     `db:"id"`
	Name            string        `db:"name"`
	IDNumber        string        `db:"id_number"`
	Phone           string        `db:"phone"`
	Status          string        `db:"status"`
	InstitutionID   uuid.UUID     `db:"institution_id"`
	ExamProductID   uuid.UUID     `db:"exam_product_id"`
	AssignedVenueID uuid.NullUUID `db:"assigned_venue_id"`
	CreatedAt       time.Time     `db:"created_at"`
	UpdatedAt       time.Time     `db:"updated_at"`
}

func (r candidateRow) toModel() *models.Candidate {
	c := &models.Candidate{
		ID:            id.CandidateID(r.ID),
		Name:          r.Name,
		IDNumber:      r.IDNumber,
		Phone:         r.Phone,
		Status:        models.Status(r.Status),
		InstitutionID: id.InstitutionID(r.InstitutionID),
		ExamProductID: id.ExamProductID(r.ExamProductID),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.AssignedVenueID.Valid {
		v := id.VenueID(r.AssignedVenueID.UUID)
		c.AssignedVenueID = &v
	}
	return c
}

func nullVenue(v *id.VenueID) uuid.NullUUID {
	if v == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*v), Valid: true}
}

const candidateColumns = `id, name, id_number, phone, status, institution_id, exam_product_id,
	assigned_venue_id, created_at, updated_at`

// Postgres persists candidates. Calls made with a transaction on the context
// run inside it.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, c *models.Candidate) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO candidates (`+candidateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		uuid.UUID(c.ID), c.Name, c.IDNumber, c.Phone, string(c.Status),
		uuid.UUID(c.InstitutionID), uuid.UUID(c.ExamProductID), nullVenue(c.AssignedVenueID),
		c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, idNumberConstraint) || database.IsUniqueViolation(err, "candidates_pkey") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert candidate: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	var row candidateRow
	err := tx.Executor(ctx, s.db).GetContext(ctx, &row,
		`SELECT `+candidateColumns+` FROM candidates WHERE id = $1`, uuid.UUID(candidateID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find candidate: %w", err)
	}
	return row.toModel(), nil
}

func (s *Postgres) FindByIDNumber(ctx context.Context, idNumber string) (*models.Candidate, error) {
	var row candidateRow
	err := tx.Executor(ctx, s.db).GetContext(ctx, &row,
		`SELECT `+candidateColumns+` FROM candidates WHERE id_number = $1`, idNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find candidate by id number: %w", err)
	}
	return row.toModel(), nil
}

// FindByIDsForUpdate locks the candidate rows in id order so concurrent
// batches touching overlapping candidates cannot deadlock. Missing ids are
// skipped; callers compare lengths.
func (s *Postgres) FindByIDsForUpdate(ctx context.Context, ids []id.CandidateID) ([]*models.Candidate, error) {
	return s.findByIDs(ctx, ids, "FOR UPDATE")
}

// FindByIDs reads the candidates without locking them.
func (s *Postgres) FindByIDs(ctx context.Context, ids []id.CandidateID) ([]*models.Candidate, error) {
	return s.findByIDs(ctx, ids, "")
}

func (s *Postgres) findByIDs(ctx context.Context, ids []id.CandidateID, lock string) ([]*models.Candidate, error) {
	raw := make([]string, len(ids))
	for i, cid := range ids {
		raw[i] = cid.String()
	}
	var rows []candidateRow
	err := tx.Executor(ctx, s.db).SelectContext(ctx, &rows, `
		SELECT `+candidateColumns+` FROM candidates
		WHERE id = ANY($1::uuid[])
		ORDER BY id `+lock, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}
	out := make([]*models.Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Postgres) List(ctx context.Context, filter models.Filter) ([]*models.Candidate, int, error) {
	inst := uuid.NullUUID{UUID: uuid.UUID(filter.InstitutionID), Valid: !filter.InstitutionID.IsNil()}
	q := tx.Executor(ctx, s.db)

	var total int
	if err := q.GetContext(ctx, &total, `
		SELECT count(*) FROM candidates
		WHERE ($1::uuid IS NULL OR institution_id = $1) AND ($2 = '' OR status = $2)`,
		inst, string(filter.Status)); err != nil {
		return nil, 0, fmt.Errorf("count candidates: %w", err)
	}

	limit := sql.NullInt64{Int64: int64(filter.Limit), Valid: filter.Limit > 0}
	var rows []candidateRow
	if err := q.SelectContext(ctx, &rows, `
		SELECT `+candidateColumns+` FROM candidates
		WHERE ($1::uuid IS NULL OR institution_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`,
		inst, string(filter.Status), limit, filter.Offset); err != nil {
		return nil, 0, fmt.Errorf("list candidates: %w", err)
	}
	out := make([]*models.Candidate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, total, nil
}

func (s *Postgres) Update(ctx context.Context, c *models.Candidate) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE candidates
		SET name = $2, phone = $3, status = $4, assigned_venue_id = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(c.ID), c.Name, c.Phone, string(c.Status), nullVenue(c.AssignedVenueID), c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update candidate: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
