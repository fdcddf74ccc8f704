package application_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrail/features/application"
	"jobtrail/internal/testutils"
)

// Requires Docker. Exercises the real schema: uuid generation, nullable
// deadline and alerted_at, and the unique (owner, company, position) key.
func TestPostgresRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	suite := testutils.NewIntegrationSuite(t)
	suite.Setup()
	t.Cleanup(suite.Teardown)

	repo := application.NewPostgresRepo(suite.DB)
	ctx := t.Context()

	deadline := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	rec := &application.Record{
		Owner:       "alice@example.com",
		Company:     "Acme",
		Position:    "Backend Engineer",
		Status:      application.StatusApplied,
		AppliedDate: time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC),
		Deadline:    &deadline,
		Notes:       "referred by Bob",
	}
	require.NoError(t, repo.Create(ctx, rec))
	require.NotEmpty(t, rec.ID)

	got, err := repo.Get(ctx, "alice@example.com", "Acme", "Backend Engineer")
	require.NoError(t, err)
	assert.Equal(t, application.StatusApplied, got.Status)
	require.NotNil(t, got.Deadline)
	assert.Nil(t, got.AlertedAt)

	got.Status = application.StatusInterview
	require.NoError(t, repo.Update(ctx, got))

	candidates, err := repo.ListAlertCandidates(ctx)
	require.NoError(t, err)
	require.Len(t, candidates, 1)

	require.NoError(t, repo.MarkAlerted(ctx, got.ID, time.Now().UTC()))
	candidates, err = repo.ListAlertCandidates(ctx)
	require.NoError(t, err)
	assert.Empty(t, candidates)

	_, err = repo.Get(ctx, "alice@example.com", "Acme", "missing")
	assert.ErrorIs(t, err, application.ErrNotFound)
}
