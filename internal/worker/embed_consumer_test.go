package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrail/internal/ingest"
)

type stubPageReader struct {
	content string
	err     error
}

func (s *stubPageReader) ReadPage(context.Context, string, string) (string, error) {
	return s.content, s.err
}

type stubPipeline struct {
	entities []ingest.SourceEntity
	err      error
}

func (s *stubPipeline) Process(_ context.Context, e ingest.SourceEntity) ([]ingest.VectorRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.entities = append(s.entities, e)
	return make([]ingest.VectorRecord, 3), nil
}

type stubPageState struct {
	touched []string
	err     error
}

func (s *stubPageState) Touch(_ context.Context, _, pageID, _ string, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.touched = append(s.touched, pageID)
	return nil
}

func TestEmbedConsumer_IndexesThenAdvancesState(t *testing.T) {
	reader := &stubPageReader{content: "met the hiring manager, final round next week"}
	pipeline := &stubPipeline{}
	state := &stubPageState{}
	c := NewEmbedConsumer(reader, pipeline, state)

	edited := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	err := c.HandleMessage(msg(t, EmbedEvent{
		Email: "alice@example.com", PageID: "page-1", Title: "Acme Notes", LastEdited: edited,
	}))
	require.NoError(t, err)

	require.Len(t, pipeline.entities, 1)
	assert.Equal(t, "page-1", pipeline.entities[0].ID)
	assert.Equal(t, "alice@example.com", pipeline.entities[0].Owner)
	assert.Equal(t, reader.content, pipeline.entities[0].Content)
	assert.Equal(t, "2026-08-30T10:00:00Z", pipeline.entities[0].LastModified)
	assert.Equal(t, []string{"page-1"}, state.touched)
}

func TestEmbedConsumer_IndexFailureLeavesStateStale(t *testing.T) {
	pipeline := &stubPipeline{err: errors.New("weaviate batch failed")}
	state := &stubPageState{}
	c := NewEmbedConsumer(&stubPageReader{content: "x"}, pipeline, state)

	err := c.HandleMessage(msg(t, EmbedEvent{Email: "alice@example.com", PageID: "page-1"}))
	require.Error(t, err)
	assert.Empty(t, state.touched, "state must not advance when indexing failed")
}

func TestEmbedConsumer_ReadFailureRetries(t *testing.T) {
	reader := &stubPageReader{err: errors.New("notion 502")}
	c := NewEmbedConsumer(reader, &stubPipeline{}, &stubPageState{})

	err := c.HandleMessage(msg(t, EmbedEvent{Email: "alice@example.com", PageID: "page-1"}))
	assert.Error(t, err)
}
