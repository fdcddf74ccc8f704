package application

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when no record matches the (owner, company,
// position) key.
var ErrNotFound = errors.New("application not found")

type Repository interface {
	Get(ctx context.Context, owner, company, position string) (*Record, error)
	Create(ctx context.Context, rec *Record) error
	Update(ctx context.Context, rec *Record) error
	ListByOwner(ctx context.Context, owner string) ([]Record, error)
	// ListAlertCandidates returns records with an upcoming deadline that have
	// not been alerted yet. Status filtering happens in the gate, not here.
	ListAlertCandidates(ctx context.Context) ([]Record, error)
	MarkAlerted(ctx context.Context, id string, at time.Time) error
	Count(ctx context.Context) (int, error)
}

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const recordColumns = `id, owner, company, position, status, deadline, applied_date, notes, alerted_at, created_at, updated_at`

func (r *PostgresRepo) Get(ctx context.Context, owner, company, position string) (*Record, error) {
	query := `SELECT ` + recordColumns + ` FROM applications WHERE owner = $1 AND company = $2 AND position = $3`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, owner, company, position))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

func (r *PostgresRepo) Create(ctx context.Context, rec *Record) error {
	query := `INSERT INTO applications (owner, company, position, status, deadline, applied_date, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRowContext(ctx, query,
		rec.Owner, rec.Company, rec.Position, rec.Status, rec.Deadline, rec.AppliedDate, rec.Notes,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

func (r *PostgresRepo) Update(ctx context.Context, rec *Record) error {
	query := `UPDATE applications
		SET status = $2, deadline = $3, notes = $4, alerted_at = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	return r.db.QueryRowContext(ctx, query,
		rec.ID, rec.Status, rec.Deadline, rec.Notes, rec.AlertedAt,
	).Scan(&rec.UpdatedAt)
}

func (r *PostgresRepo) ListByOwner(ctx context.Context, owner string) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM applications WHERE owner = $1 ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *PostgresRepo) ListAlertCandidates(ctx context.Context) ([]Record, error) {
	query := `SELECT ` + recordColumns + ` FROM applications
		WHERE deadline IS NOT NULL AND alerted_at IS NULL
		ORDER BY deadline ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *PostgresRepo) MarkAlerted(ctx context.Context, id string, at time.Time) error {
	query := `UPDATE applications SET alerted_at = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id, at)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM applications`
	err := r.db.QueryRowContext(ctx, query).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	rec := &Record{}
	var deadline, alertedAt sql.NullTime
	err := row.Scan(&rec.ID, &rec.Owner, &rec.Company, &rec.Position, &rec.Status,
		&deadline, &rec.AppliedDate, &rec.Notes, &alertedAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if deadline.Valid {
		rec.Deadline = &deadline.Time
	}
	if alertedAt.Valid {
		rec.AlertedAt = &alertedAt.Time
	}
	return rec, nil
}

func collectRecords(rows *sql.Rows) ([]Record, error) {
	var recs []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}
