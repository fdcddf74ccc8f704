package job

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresRepo_Save(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("INSERT INTO failed_jobs").
		WithArgs("msg-1", "mail.extract", []byte(`{}`), "model returned garbage").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "retries"}).AddRow("job-1", now, 0))

	repo := NewPostgresRepo(db)
	j := &Job{RefID: "msg-1", Topic: "mail.extract", Payload: []byte(`{}`), Error: "model returned garbage"}
	require.NoError(t, repo.Save(t.Context(), j))
	assert.Equal(t, "job-1", j.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRepo_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM failed_jobs WHERE id").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "ref_id", "topic", "payload", "error", "retries", "created_at"}).
			AddRow("job-1", "msg-1", "notes.embed", []byte(`{"page_id":"p1"}`), "boom", 2, now))

	repo := NewPostgresRepo(db)
	j, err := repo.Get(t.Context(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, "notes.embed", j.Topic)
	assert.JSONEq(t, `{"page_id":"p1"}`, string(j.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}
