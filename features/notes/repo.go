package notes

import (
	"context"
	"database/sql"
	"time"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) ListByOwner(ctx context.Context, owner string) ([]Page, error) {
	query := `SELECT owner, page_id, title, last_edited, synced_at FROM page_details WHERE owner = $1`
	rows, err := r.db.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []Page
	for rows.Next() {
		var p Page
		if err := rows.Scan(&p.Owner, &p.PageID, &p.Title, &p.LastEdited, &p.SyncedAt); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

func (r *PostgresRepo) Touch(ctx context.Context, owner, pageID, title string, lastEdited time.Time) error {
	query := `INSERT INTO page_details (owner, page_id, title, last_edited, synced_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (owner, page_id) DO UPDATE
		SET title = EXCLUDED.title, last_edited = EXCLUDED.last_edited, synced_at = NOW()`
	_, err := r.db.ExecContext(ctx, query, owner, pageID, title, lastEdited)
	return err
}

func (r *PostgresRepo) Delete(ctx context.Context, owner, pageID string) error {
	query := `DELETE FROM page_details WHERE owner = $1 AND page_id = $2`
	_, err := r.db.ExecContext(ctx, query, owner, pageID)
	return err
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM page_details`).Scan(&count)
	return count, err
}
