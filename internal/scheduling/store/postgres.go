package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"examsite/internal/platform/database"
	"examsite/internal/scheduling/models"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/platform/tx"
)

// ActiveBookingConstraint is the partial unique index that allows one
// non-cancelled schedule per candidate and exam date.
const ActiveBookingConstraint = "schedules_candidate_date_active_key"

type scheduleRow struct {
	ID            uuid.UUID     `db:"id"`
	CandidateID   uuid.UUID     `db:"candidate_id"`
	VenueID       uuid.UUID     `db:"venue_id"`
	ExamProductID uuid.UUID     `db:"exam_product_id"`
	InstitutionID uuid.UUID     `db:"institution_id"`
	ExamDate      time.Time     `db:"exam_date"`
	StartAt       time.Time     `db:"start_at"`
	EndAt         time.Time     `db:"end_at"`
	ActivityType  string        `db:"activity_type"`
	ActivityName  string        `db:"activity_name"`
	Status        string        `db:"status"`
	QueuePosition sql.NullInt64 `db:"queue_position"`
	CheckedInAt   sql.NullTime  `db:"checked_in_at"`
	CheckedInBy   uuid.NullUUID `db:"checked_in_by"`
	CreatedBy     uuid.NullUUID `db:"created_by"`
	CreatedAt     time.Time     `db:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at"`
}

func (r scheduleRow) toModel() *models.Schedule {
	s := &models.Schedule{
		ID:            id.ScheduleID(r.ID),
		CandidateID:   id.CandidateID(r.CandidateID),
		VenueID:       id.VenueID(r.VenueID),
		ExamProductID: id.ExamProductID(r.ExamProductID),
		InstitutionID: id.InstitutionID(r.InstitutionID),
		ExamDate:      civil.DateOf(r.ExamDate),
		StartAt:       r.StartAt,
		EndAt:         r.EndAt,
		ActivityType:  models.ActivityType(r.ActivityType),
		ActivityName:  r.ActivityName,
		Status:        models.Status(r.Status),
		CreatedBy:     id.UserID(r.CreatedBy.UUID),
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.QueuePosition.Valid {
		pos := int(r.QueuePosition.Int64)
		s.QueuePosition = &pos
	}
	if r.CheckedInAt.Valid {
		at := r.CheckedInAt.Time
		s.CheckedInAt = &at
	}
	if r.CheckedInBy.Valid {
		by := id.UserID(r.CheckedInBy.UUID)
		s.CheckedInBy = &by
	}
	return s
}

func nullPosition(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUser(u *id.UserID) uuid.NullUUID {
	if u == nil || u.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*u), Valid: true}
}

const scheduleColumns = `id, candidate_id, venue_id, exam_product_id, institution_id, exam_date,
	start_at, end_at, activity_type, activity_name, status, queue_position, checked_in_at,
	checked_in_by, created_by, created_at, updated_at`

// Postgres persists schedules. Calls made with a transaction on the context
// run inside it.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

// CreateBatch inserts the schedules with one multi-row statement so the
// batch lands or fails as a unit even outside a transaction.
func (s *Postgres) CreateBatch(ctx context.Context, batch []*models.Schedule) error {
	if len(batch) == 0 {
		return nil
	}
	const perRow = 17
	query := `INSERT INTO schedules (` + scheduleColumns + `) VALUES `
	args := make([]any, 0, len(batch)*perRow)
	for i, sc := range batch {
		if i > 0 {
			query += ", "
		}
		query += placeholders(i*perRow, perRow)
		createdBy := sc.CreatedBy
		args = append(args,
			uuid.UUID(sc.ID), uuid.UUID(sc.CandidateID), uuid.UUID(sc.VenueID), uuid.UUID(sc.ExamProductID),
			uuid.UUID(sc.InstitutionID), sc.ExamDate.String(), sc.StartAt, sc.EndAt,
			string(sc.ActivityType), sc.ActivityName, string(sc.Status), nullPosition(sc.QueuePosition),
			nullTime(sc.CheckedInAt), nullUser(sc.CheckedInBy), nullUser(&createdBy), sc.CreatedAt, sc.UpdatedAt)
	}
	if _, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		if database.IsUniqueViolation(err, ActiveBookingConstraint) || database.IsUniqueViolation(err, "schedules_pkey") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert schedules: %w", err)
	}
	return nil
}

func placeholders(offset, n int) string {
	out := "("
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		out += fmt.Sprintf("$%d", offset+i)
	}
	return out + ")"
}

func (s *Postgres) FindByID(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error) {
	return s.find(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1`, scheduleID)
}

// FindByIDForUpdate locks the row until the surrounding transaction ends, so
// two scans of the same code serialise and the second sees checked_in.
func (s *Postgres) FindByIDForUpdate(ctx context.Context, scheduleID id.ScheduleID) (*models.Schedule, error) {
	return s.find(ctx, `SELECT `+scheduleColumns+` FROM schedules WHERE id = $1 FOR UPDATE`, scheduleID)
}

func (s *Postgres) find(ctx context.Context, query string, scheduleID id.ScheduleID) (*models.Schedule, error) {
	var row scheduleRow
	if err := tx.Executor(ctx, s.db).GetContext(ctx, &row, query, uuid.UUID(scheduleID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find schedule: %w", err)
	}
	return row.toModel(), nil
}

func (s *Postgres) Update(ctx context.Context, sc *models.Schedule) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE schedules
		SET status = $2, queue_position = $3, checked_in_at = $4, checked_in_by = $5, updated_at = $6
		WHERE id = $1`,
		uuid.UUID(sc.ID), string(sc.Status), nullPosition(sc.QueuePosition), nullTime(sc.CheckedInAt),
		nullUser(sc.CheckedInBy), sc.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, ActiveBookingConstraint) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("update schedule: %w", err)
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

func (s *Postgres) ListByVenueDate(ctx context.Context, venueID id.VenueID, date civil.Date) ([]*models.Schedule, error) {
	return s.selectRows(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE venue_id = $1 AND exam_date = $2::date
		ORDER BY start_at, id`, uuid.UUID(venueID), date.String())
}

func (s *Postgres) FindActiveByCandidatesOnDate(ctx context.Context, ids []id.CandidateID, date civil.Date) ([]*models.Schedule, error) {
	raw := make([]string, len(ids))
	for i, cid := range ids {
		raw[i] = cid.String()
	}
	return s.selectRows(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE candidate_id = ANY($1::uuid[]) AND exam_date = $2::date AND status <> 'cancelled'
		ORDER BY start_at, id`, pq.Array(raw), date.String())
}

func (s *Postgres) List(ctx context.Context, filter models.Filter) ([]*models.Schedule, error) {
	var date sql.NullString
	if filter.ExamDate != nil {
		date = sql.NullString{String: filter.ExamDate.String(), Valid: true}
	}
	limit := sql.NullInt64{Int64: int64(filter.Limit), Valid: filter.Limit > 0}
	return s.selectRows(ctx, `
		SELECT `+scheduleColumns+` FROM schedules
		WHERE ($1::date IS NULL OR exam_date = $1::date)
		  AND ($2::uuid IS NULL OR venue_id = $2)
		  AND ($3::uuid IS NULL OR institution_id = $3)
		  AND ($4::uuid IS NULL OR candidate_id = $4)
		  AND ($5 = '' OR status = $5)
		ORDER BY exam_date, start_at, id
		LIMIT $6`,
		date,
		uuid.NullUUID{UUID: uuid.UUID(filter.VenueID), Valid: !filter.VenueID.IsNil()},
		uuid.NullUUID{UUID: uuid.UUID(filter.InstitutionID), Valid: !filter.InstitutionID.IsNil()},
		uuid.NullUUID{UUID: uuid.UUID(filter.CandidateID), Valid: !filter.CandidateID.IsNil()},
		string(filter.Status), limit)
}

func (s *Postgres) CountByStatus(ctx context.Context, date civil.Date, venueID *id.VenueID) ([]models.StatusCount, error) {
	venue := uuid.NullUUID{}
	if venueID != nil {
		venue = uuid.NullUUID{UUID: uuid.UUID(*venueID), Valid: true}
	}
	var rows []struct {
		VenueID uuid.UUID `db:"venue_id"`
		Status  string    `db:"status"`
		Count   int       `db:"count"`
	}
	if err := tx.Executor(ctx, s.db).SelectContext(ctx, &rows, `
		SELECT venue_id, status, count(*) AS count FROM schedules
		WHERE exam_date = $1::date AND ($2::uuid IS NULL OR venue_id = $2)
		GROUP BY venue_id, status
		ORDER BY venue_id, status`, date.String(), venue); err != nil {
		return nil, fmt.Errorf("count schedules: %w", err)
	}
	out := make([]models.StatusCount, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.StatusCount{VenueID: id.VenueID(r.VenueID), Status: models.Status(r.Status), Count: r.Count})
	}
	return out, nil
}

func (s *Postgres) selectRows(ctx context.Context, query string, args ...any) ([]*models.Schedule, error) {
	var rows []scheduleRow
	if err := tx.Executor(ctx, s.db).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	out := make([]*models.Schedule, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
