package worker

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"jobtrail/internal/ingest"
	"jobtrail/internal/middleware"
)

// PageReader fetches one note page's text.
type PageReader interface {
	ReadPage(ctx context.Context, owner, pageID string) (string, error)
}

// PageStateStore advances a page's sync state after a successful embed.
type PageStateStore interface {
	Touch(ctx context.Context, owner, pageID, title string, lastEdited time.Time) error
}

// IngestPipeline chunks, embeds and indexes one source entity.
type IngestPipeline interface {
	Process(ctx context.Context, entity ingest.SourceEntity) ([]ingest.VectorRecord, error)
}

// EmbedConsumer re-indexes one note page per notes.embed event. The sync
// state is touched only after the index write succeeds, so a failure leaves
// the page stale and it gets queued again on the next sync pass.
type EmbedConsumer struct {
	reader   PageReader
	pipeline IngestPipeline
	state    PageStateStore
}

func NewEmbedConsumer(reader PageReader, pipeline IngestPipeline, state PageStateStore) *EmbedConsumer {
	return &EmbedConsumer{reader: reader, pipeline: pipeline, state: state}
}

func (h *EmbedConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var ev EmbedEvent
	if err := json.Unmarshal(m.Body, &ev); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "topic", TopicEmbed, "error", err)
		return nil
	}

	ctx := context.Background()
	if ev.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, ev.CorrelationID)
	}

	embedCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
	defer cancel()

	content, err := h.reader.ReadPage(embedCtx, ev.Email, ev.PageID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to read page, will retry", "page_id", ev.PageID, "error", err)
		return err
	}

	records, err := h.pipeline.Process(embedCtx, ingest.SourceEntity{
		ID:           ev.PageID,
		Owner:        ev.Email,
		Title:        ev.Title,
		LastModified: ev.LastEdited.UTC().Format(time.RFC3339),
		Content:      content,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to index page, will retry", "page_id", ev.PageID, "error", err)
		return err
	}

	if err := h.state.Touch(ctx, ev.Email, ev.PageID, ev.Title, ev.LastEdited); err != nil {
		slog.ErrorContext(ctx, "failed to advance page state, will retry", "page_id", ev.PageID, "error", err)
		return err
	}

	slog.InfoContext(ctx, "page indexed", "owner", ev.Email, "page_id", ev.PageID, "chunks", len(records))
	return nil
}
