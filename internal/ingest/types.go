package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// SourceEntity is one external unit of content: an email message or a Notion
// page. LastModified is an opaque change token, comparable only within the
// entity's own source type.
type SourceEntity struct {
	ID           string
	Owner        string
	Title        string
	LastModified string
	Content      string
}

// VectorRecord is one embedded chunk ready for the index. DatapointID is a
// deterministic function of (owner, entity id, chunk index): reprocessing the
// same chunk overwrites rather than duplicates.
type VectorRecord struct {
	DatapointID string
	Owner       string
	EntityID    string
	ChunkIndex  int
	Content     string
	Embedding   []float32
	Metadata    map[string]string
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

type VectorIndex interface {
	Upsert(ctx context.Context, records []VectorRecord) error
	DeleteByEntity(ctx context.Context, owner, entityID string) error
}

// datapointNamespace anchors the UUIDv5 derivation of datapoint ids. Changing
// it orphans every existing index entry, so it is fixed for the life of the
// deployment.
var datapointNamespace = uuid.MustParse("9f2c1b76-4a0e-5d3f-8b21-6c0d7a5e4f10")

// DatapointID derives the stable index id for one chunk. Weaviate object ids
// must be UUIDs, so the triple is hashed into a v5 UUID.
func DatapointID(owner, entityID string, chunkIndex int) string {
	name := fmt.Sprintf("%s|%s|%d", owner, entityID, chunkIndex)
	return uuid.NewSHA1(datapointNamespace, []byte(name)).String()
}
