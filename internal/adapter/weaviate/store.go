package weaviate

import (
	"context"
	"fmt"
	"strconv"

	"jobtrail/internal/ingest"
	"jobtrail/internal/retrieval"
	"jobtrail/internal/vector"

	"github.com/go-openapi/strfmt"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/filters"
	"github.com/weaviate/weaviate-go-client/v5/weaviate/graphql"
	"github.com/weaviate/weaviate/entities/models"
)

// Store adapts the Weaviate client to the pipeline's VectorIndex and the
// retrieval service's search/fetch ports. All objects live in the shared
// NoteChunk class; owner scoping happens through where-filters.
type Store struct {
	client *weaviate.Client
}

func NewStore(client *weaviate.Client) *Store {
	return &Store{client: client}
}

// Upsert writes records under their deterministic ids. The batch endpoint has
// put semantics, so an existing object with the same id is overwritten.
func (s *Store) Upsert(ctx context.Context, records []ingest.VectorRecord) error {
	if len(records) == 0 {
		return nil
	}

	objects := make([]*models.Object, len(records))
	for i, r := range records {
		objects[i] = &models.Object{
			Class: vector.ClassName,
			ID:    strfmt.UUID(r.DatapointID),
			Properties: map[string]interface{}{
				"owner":        r.Owner,
				"entityId":     r.EntityID,
				"chunkIndex":   r.ChunkIndex,
				"content":      r.Content,
				"title":        r.Metadata["title"],
				"lastModified": r.Metadata["last_modified"],
			},
			Vector: models.C11yVector(r.Embedding),
		}
	}

	resp, err := s.client.Batch().ObjectsBatcher().WithObjects(objects...).Do(ctx)
	if err != nil {
		return err
	}
	for _, obj := range resp {
		if obj.Result != nil && obj.Result.Errors != nil && len(obj.Result.Errors.Error) > 0 {
			return fmt.Errorf("batch upsert: %s", obj.Result.Errors.Error[0].Message)
		}
	}
	return nil
}

// DeleteByEntity removes every chunk of one entity for one owner.
func (s *Store) DeleteByEntity(ctx context.Context, owner, entityID string) error {
	_, err := s.client.Batch().ObjectsBatchDeleter().
		WithClassName(vector.ClassName).
		WithOutput("minimal").
		WithWhere(filters.Where().
			WithOperator(filters.And).
			WithOperands([]*filters.WhereBuilder{
				filters.Where().
					WithPath([]string{"owner"}).
					WithOperator(filters.Equal).
					WithValueString(owner),
				filters.Where().
					WithPath([]string{"entityId"}).
					WithOperator(filters.Equal).
					WithValueString(entityID),
			})).
		Do(ctx)
	return err
}

// Search runs an owner-scoped nearest-neighbor query. The owner filter is
// part of the query itself, not post-filtering, so another owner's chunks can
// never appear in the response however close their vectors are.
func (s *Store) Search(ctx context.Context, queryVector []float32, owner string, k int) ([]retrieval.Match, error) {
	nearVector := s.client.GraphQL().NearVectorArgBuilder().WithVector(queryVector)

	where := filters.Where().
		WithPath([]string{"owner"}).
		WithOperator(filters.Equal).
		WithValueString(owner)

	fields := []graphql.Field{
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}, {Name: "distance"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithNearVector(nearVector).
		WithWhere(where).
		WithLimit(k).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	var matches []retrieval.Match
	for _, props := range s.classResults(res.Data) {
		additional, ok := props["_additional"].(map[string]interface{})
		if !ok {
			continue
		}
		m := retrieval.Match{}
		if id, ok := additional["id"].(string); ok {
			m.ID = id
		}
		if dist, ok := additional["distance"].(float64); ok {
			m.Distance = float32(dist)
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// FetchContent resolves datapoint ids to their stored chunk content.
func (s *Store) FetchContent(ctx context.Context, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}

	where := filters.Where().
		WithPath([]string{"id"}).
		WithOperator(filters.ContainsAny).
		WithValueText(ids...)

	fields := []graphql.Field{
		{Name: "content"},
		{Name: "_additional", Fields: []graphql.Field{{Name: "id"}}},
	}

	res, err := s.client.GraphQL().Get().
		WithClassName(vector.ClassName).
		WithWhere(where).
		WithLimit(len(ids)).
		WithFields(fields...).
		Do(ctx)
	if err != nil {
		return nil, err
	}
	if len(res.Errors) > 0 {
		return nil, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	contents := make(map[string]string)
	for _, props := range s.classResults(res.Data) {
		additional, ok := props["_additional"].(map[string]interface{})
		if !ok {
			continue
		}
		id, _ := additional["id"].(string)
		content, _ := props["content"].(string)
		if id != "" {
			contents[id] = content
		}
	}
	return contents, nil
}

// CountChunks returns the total number of indexed chunks across all owners.
func (s *Store) CountChunks(ctx context.Context) (int, error) {
	res, err := s.client.GraphQL().Aggregate().
		WithClassName(vector.ClassName).
		WithFields(graphql.Field{Name: "meta", Fields: []graphql.Field{{Name: "count"}}}).
		Do(ctx)
	if err != nil {
		return 0, err
	}
	if len(res.Errors) > 0 {
		return 0, fmt.Errorf("graphql error: %v", res.Errors[0].Message)
	}

	data, ok := res.Data["Aggregate"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	rows, ok := data[vector.ClassName].([]interface{})
	if !ok || len(rows) == 0 {
		return 0, nil
	}
	props, ok := rows[0].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	meta, ok := props["meta"].(map[string]interface{})
	if !ok {
		return 0, nil
	}
	switch v := meta["count"].(type) {
	case float64:
		return int(v), nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, nil
		}
		return n, nil
	}
	return 0, nil
}

func (s *Store) classResults(data map[string]models.JSONObject) []map[string]interface{} {
	get, ok := data["Get"].(map[string]interface{})
	if !ok {
		return nil
	}
	rows, ok := get[vector.ClassName].([]interface{})
	if !ok {
		return nil
	}
	var out []map[string]interface{}
	for _, row := range rows {
		if props, ok := row.(map[string]interface{}); ok {
			out = append(out, props)
		}
	}
	return out
}
