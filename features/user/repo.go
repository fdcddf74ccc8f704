package user

import (
	"context"
	"database/sql"
	"errors"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Get(ctx context.Context, email string) (*User, error) {
	u := &User{}
	query := `SELECT email, notion_token, notion_page_id, gmail_token, created_at, updated_at FROM users WHERE email = $1`
	err := r.db.QueryRowContext(ctx, query, email).
		Scan(&u.Email, &u.NotionToken, &u.NotionPageID, &u.GmailToken, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *PostgresRepo) Upsert(ctx context.Context, u *User) error {
	query := `INSERT INTO users (email, notion_token, notion_page_id, gmail_token)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE
		SET notion_token = EXCLUDED.notion_token,
		    notion_page_id = EXCLUDED.notion_page_id,
		    gmail_token = EXCLUDED.gmail_token,
		    updated_at = NOW()
		RETURNING created_at, updated_at`
	return r.db.QueryRowContext(ctx, query, u.Email, u.NotionToken, u.NotionPageID, u.GmailToken).
		Scan(&u.CreatedAt, &u.UpdatedAt)
}

func (r *PostgresRepo) List(ctx context.Context) ([]User, error) {
	query := `SELECT email, notion_token, notion_page_id, gmail_token, created_at, updated_at FROM users ORDER BY email`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.Email, &u.NotionToken, &u.NotionPageID, &u.GmailToken, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}
