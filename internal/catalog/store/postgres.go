package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"examsite/internal/catalog/models"
	"examsite/internal/platform/database"
	id "examsite/pkg/domain"
	"examsite/pkg/platform/sentinel"
	"examsite/pkg/platform/tx"
)

type venueRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Address   string    `db:"address"`
	Type      string    `db:"type"`
	Capacity  int       `db:"capacity"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r venueRow) toModel() *models.Venue {
	return &models.Venue{
		ID:        id.VenueID(r.ID),
		Name:      r.Name,
		Address:   r.Address,
		Type:      models.VenueType(r.Type),
		Capacity:  r.Capacity,
		Status:    models.ResourceStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

const venueColumns = `id, name, address, type, capacity, status, created_at, updated_at`

// PostgresVenues persists venues. Calls made with a transaction on the
// context run inside it.
type PostgresVenues struct {
	db *sqlx.DB
}

func NewPostgresVenues(db *sqlx.DB) *PostgresVenues {
	return &PostgresVenues{db: db}
}

func (s *PostgresVenues) Create(ctx context.Context, v *models.Venue) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO venues (id, name, address, type, capacity, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		uuid.UUID(v.ID), v.Name, v.Address, string(v.Type), v.Capacity, string(v.Status), v.CreatedAt, v.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert venue: %w", err)
	}
	return nil
}

func (s *PostgresVenues) FindByID(ctx context.Context, venueID id.VenueID) (*models.Venue, error) {
	return s.find(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1`, venueID)
}

// FindByIDForUpdate locks the venue row until the surrounding transaction
// ends, serializing batch scheduling per venue.
func (s *PostgresVenues) FindByIDForUpdate(ctx context.Context, venueID id.VenueID) (*models.Venue, error) {
	return s.find(ctx, `SELECT `+venueColumns+` FROM venues WHERE id = $1 FOR UPDATE`, venueID)
}

func (s *PostgresVenues) find(ctx context.Context, query string, venueID id.VenueID) (*models.Venue, error) {
	var row venueRow
	if err := tx.Executor(ctx, s.db).GetContext(ctx, &row, query, uuid.UUID(venueID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find venue: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresVenues) List(ctx context.Context, filter models.VenueFilter) ([]*models.Venue, error) {
	var rows []venueRow
	err := tx.Executor(ctx, s.db).SelectContext(ctx, &rows, `
		SELECT `+venueColumns+` FROM venues
		WHERE ($1 = '' OR type = $1) AND ($2 = '' OR status = $2)
		ORDER BY name`, string(filter.Type), string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("list venues: %w", err)
	}
	out := make([]*models.Venue, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *PostgresVenues) Update(ctx context.Context, v *models.Venue) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		UPDATE venues SET name = $2, address = $3, type = $4, capacity = $5, status = $6, updated_at = $7
		WHERE id = $1`,
		uuid.UUID(v.ID), v.Name, v.Address, string(v.Type), v.Capacity, string(v.Status), v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update venue: %w", err)
	}
	return requireAffected(res)
}

type examProductRow struct {
	ID                 uuid.UUID `db:"id"`
	Name               string    `db:"name"`
	Description        string    `db:"description"`
	Category           string    `db:"category"`
	AircraftType       string    `db:"aircraft_type"`
	DurationMinutes    int       `db:"duration_minutes"`
	TheoryPassScore    int       `db:"theory_pass_score"`
	PracticalPassScore int       `db:"practical_pass_score"`
	Status             string    `db:"status"`
	CreatedAt          time.Time `db:"created_at"`
	UpdatedAt          time.Time `db:"updated_at"`
}

func (r examProductRow) toModel() *models.ExamProduct {
	return &models.ExamProduct{
		ID:                 id.ExamProductID(r.ID),
		Name:               r.Name,
		Description:        r.Description,
		Category:           models.Category(r.Category),
		AircraftType:       models.AircraftType(r.AircraftType),
		Duration:           time.Duration(r.DurationMinutes) * time.Minute,
		TheoryPassScore:    r.TheoryPassScore,
		PracticalPassScore: r.PracticalPassScore,
		Status:             models.ResourceStatus(r.Status),
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

const examProductColumns = `id, name, description, category, aircraft_type, duration_minutes,
	theory_pass_score, practical_pass_score, status, created_at, updated_at`

type PostgresExamProducts struct {
	db *sqlx.DB
}

func NewPostgresExamProducts(db *sqlx.DB) *PostgresExamProducts {
	return &PostgresExamProducts{db: db}
}

func (s *PostgresExamProducts) Create(ctx context.Context, p *models.ExamProduct) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO exam_products (`+examProductColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		uuid.UUID(p.ID), p.Name, p.Description, string(p.Category), string(p.AircraftType),
		int(p.Duration/time.Minute), p.TheoryPassScore, p.PracticalPassScore, string(p.Status), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert exam product: %w", err)
	}
	return nil
}

func (s *PostgresExamProducts) FindByID(ctx context.Context, productID id.ExamProductID) (*models.ExamProduct, error) {
	var row examProductRow
	err := tx.Executor(ctx, s.db).GetContext(ctx, &row,
		`SELECT `+examProductColumns+` FROM exam_products WHERE id = $1`, uuid.UUID(productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find exam product: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresExamProducts) List(ctx context.Context) ([]*models.ExamProduct, error) {
	var rows []examProductRow
	if err := tx.Executor(ctx, s.db).SelectContext(ctx, &rows,
		`SELECT `+examProductColumns+` FROM exam_products ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list exam products: %w", err)
	}
	out := make([]*models.ExamProduct, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

type institutionRow struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r institutionRow) toModel() *models.Institution {
	return &models.Institution{
		ID:        id.InstitutionID(r.ID),
		Name:      r.Name,
		Status:    models.ResourceStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

type PostgresInstitutions struct {
	db *sqlx.DB
}

func NewPostgresInstitutions(db *sqlx.DB) *PostgresInstitutions {
	return &PostgresInstitutions{db: db}
}

// CreateIfNameAvailable relies on the lower(name) unique index so concurrent
// creates with the same name resolve to one winner.
func (s *PostgresInstitutions) CreateIfNameAvailable(ctx context.Context, inst *models.Institution) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO institutions (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(inst.ID), inst.Name, string(inst.Status), inst.CreatedAt, inst.UpdatedAt)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert institution: %w", err)
	}
	return nil
}

func (s *PostgresInstitutions) FindByID(ctx context.Context, instID id.InstitutionID) (*models.Institution, error) {
	var row institutionRow
	err := tx.Executor(ctx, s.db).GetContext(ctx, &row,
		`SELECT id, name, status, created_at, updated_at FROM institutions WHERE id = $1`, uuid.UUID(instID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find institution: %w", err)
	}
	return row.toModel(), nil
}

func (s *PostgresInstitutions) List(ctx context.Context) ([]*models.Institution, error) {
	var rows []institutionRow
	if err := tx.Executor(ctx, s.db).SelectContext(ctx, &rows,
		`SELECT id, name, status, created_at, updated_at FROM institutions ORDER BY name`); err != nil {
		return nil, fmt.Errorf("list institutions: %w", err)
	}
	out := make([]*models.Institution, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
