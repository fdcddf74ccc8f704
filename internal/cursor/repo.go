package cursor

import (
	"context"
	"database/sql"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, owner string, source SourceType) (string, bool, error) {
	var token string
	query := `SELECT last_seen_token FROM cursors WHERE owner = $1 AND source = $2`
	err := s.db.QueryRowContext(ctx, query, owner, string(source)).Scan(&token)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, owner string, source SourceType, token string) error {
	query := `
		INSERT INTO cursors (owner, source, last_seen_token, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (owner, source) DO UPDATE SET last_seen_token = $3, updated_at = NOW()
	`
	_, err := s.db.ExecContext(ctx, query, owner, string(source), token)
	return err
}

func (s *PostgresStore) Delete(ctx context.Context, owner string, source SourceType) error {
	query := `DELETE FROM cursors WHERE owner = $1 AND source = $2`
	_, err := s.db.ExecContext(ctx, query, owner, string(source))
	return err
}
