package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"jobtrail/internal/text"
)

// Pipeline turns one entity's content into chunked, embedded, upserted index
// records. All chunks of an entity are embedded in one batch call; the
// id-to-chunk mapping is positional and preserved.
type Pipeline struct {
	chunker  *text.Chunker
	embedder Embedder
	index    VectorIndex
}

func NewPipeline(chunker *text.Chunker, embedder Embedder, index VectorIndex) *Pipeline {
	return &Pipeline{chunker: chunker, embedder: embedder, index: index}
}

// Process chunks, embeds and upserts entity. Existing index entries for the
// entity are dropped first so that a shrinking chunk count cannot leave stale
// trailing chunks behind; for unchanged content the rewrite lands on the same
// deterministic ids with the same vectors, so the operation is idempotent.
func (p *Pipeline) Process(ctx context.Context, entity SourceEntity) ([]VectorRecord, error) {
	chunks := p.chunker.Split(entity.Content)
	if len(chunks) == 0 {
		slog.InfoContext(ctx, "entity has no content, clearing index entries", "owner", entity.Owner, "entity_id", entity.ID)
		return nil, p.index.DeleteByEntity(ctx, entity.Owner, entity.ID)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed entity %s: %w", entity.ID, err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embed entity %s: got %d vectors for %d chunks", entity.ID, len(vectors), len(chunks))
	}

	records := make([]VectorRecord, len(chunks))
	for i, c := range chunks {
		records[i] = VectorRecord{
			DatapointID: DatapointID(entity.Owner, entity.ID, c.Index),
			Owner:       entity.Owner,
			EntityID:    entity.ID,
			ChunkIndex:  c.Index,
			Content:     c.Text,
			Embedding:   vectors[i],
			Metadata: map[string]string{
				"title":         entity.Title,
				"last_modified": entity.LastModified,
			},
		}
	}

	if err := p.index.DeleteByEntity(ctx, entity.Owner, entity.ID); err != nil {
		return nil, fmt.Errorf("clear stale chunks for %s: %w", entity.ID, err)
	}
	if err := p.index.Upsert(ctx, records); err != nil {
		return nil, fmt.Errorf("upsert entity %s: %w", entity.ID, err)
	}

	slog.InfoContext(ctx, "entity indexed", "owner", entity.Owner, "entity_id", entity.ID, "chunks", len(records))
	return records, nil
}
