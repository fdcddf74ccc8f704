package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrail/features/application"
	"jobtrail/internal/config"
	"jobtrail/internal/ingest"
	"jobtrail/internal/retrieval"
)

type nopVectorStore struct{}

func (nopVectorStore) Upsert(context.Context, []ingest.VectorRecord) error          { return nil }
func (nopVectorStore) DeleteByEntity(context.Context, string, string) error         { return nil }
func (nopVectorStore) FetchContent(context.Context, []string) (map[string]string, error) {
	return nil, nil
}
func (nopVectorStore) Search(context.Context, []float32, string, int) ([]retrieval.Match, error) {
	return nil, nil
}
func (nopVectorStore) CountChunks(context.Context) (int, error) { return 0, nil }

type nopPublisher struct{}

func (nopPublisher) Publish(string, []byte) error { return nil }

type nopEmbedder struct{}

func (nopEmbedder) Embed(context.Context, string) ([]float32, error) { return []float32{0}, nil }
func (nopEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	return make([][]float32, len(texts)), nil
}

type nopExtractor struct{}

func (nopExtractor) Extract(context.Context, string) (*application.Extraction, error) {
	return &application.Extraction{}, nil
}

type nopAnswerer struct{}

func (nopAnswerer) Answer(context.Context, string, string) (string, error) { return "", nil }

func newTestApp(t *testing.T) *App {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		ChunkSize:    1000,
		ChunkOverlap: 100,
		SearchTopK:   5,
		QueryLogPath: t.TempDir() + "/query.log",
		ServerPort:   8081,
	}

	a, err := New(cfg, db, nopVectorStore{}, nopPublisher{}, nopEmbedder{}, nopExtractor{}, nopAnswerer{})
	require.NoError(t, err)
	return a
}

func TestNew_WiresAllConsumers(t *testing.T) {
	a := newTestApp(t)

	assert.NotNil(t, a.ExtractConsumer)
	assert.NotNil(t, a.ApplyConsumer)
	assert.NotNil(t, a.EmbedConsumer)
	assert.NotNil(t, a.MailService)
}

func TestHealthEndpoint(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRoutesRegistered(t *testing.T) {
	a := newTestApp(t)

	// A registered route rejects a bad request with 4xx from the handler,
	// never the mux's 404/405.
	cases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/gmail/notifications"},
		{http.MethodPost, "/mail/sync"},
		{http.MethodPost, "/notes/sync"},
		{http.MethodPost, "/ask"},
		{http.MethodGet, "/applications"},
		{http.MethodGet, "/users"},
		{http.MethodPost, "/users"},
		{http.MethodGet, "/jobs/failed"},
		{http.MethodGet, "/stats"},
	}

	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			a.Handler.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
			assert.NotEqual(t, http.StatusNotFound, rec.Code)
			assert.NotEqual(t, http.StatusMethodNotAllowed, rec.Code)
		})
	}
}

func TestCORSHeadersSet(t *testing.T) {
	a := newTestApp(t)

	rec := httptest.NewRecorder()
	a.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/applications?email=a@b.c", nil))

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
