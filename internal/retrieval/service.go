package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrNoRelevantNotes is the expected outcome when a user's notes hold nothing
// close to the query. It is not a failure: handlers render it as a friendly
// message instead of a 5xx.
var ErrNoRelevantNotes = errors.New("no relevant notes found")

// NoRelevantNotesMessage is the user-facing rendering of ErrNoRelevantNotes.
const NoRelevantNotesMessage = "Unfortunately we don't have any relevant data that we could pull from your notes. Try updating your notes!"

// Match is one nearest-neighbor hit: the datapoint id and its distance to
// the query vector.
type Match struct {
	ID       string
	Distance float32
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Searcher interface {
	Search(ctx context.Context, vector []float32, owner string, k int) ([]Match, error)
}

type ContentFetcher interface {
	FetchContent(ctx context.Context, ids []string) (map[string]string, error)
}

// Service answers "find the most relevant note content for this user". The
// owner filter is a hard security boundary: results always belong to the
// querying owner, never a nearest cross-tenant neighbor.
type Service struct {
	embedder Embedder
	searcher Searcher
	fetcher  ContentFetcher
	topK     int
	logger   *QueryLogger
}

func NewService(e Embedder, s Searcher, f ContentFetcher, topK int, l *QueryLogger) *Service {
	if topK <= 0 {
		topK = 5
	}
	return &Service{embedder: e, searcher: s, fetcher: f, topK: topK, logger: l}
}

// Query embeds the query once, searches the owner's partition and returns the
// top match's content. Search failures and empty result sets both collapse to
// ErrNoRelevantNotes; only embedding failure propagates as a real error.
func (s *Service) Query(ctx context.Context, owner, query string) (string, error) {
	start := time.Now()

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return "", fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.searcher.Search(ctx, vec, owner, s.topK)
	if err != nil {
		slog.WarnContext(ctx, "vector search failed, treating as no results", "owner", owner, "error", err)
		s.log(ctx, query, 0, start)
		return "", ErrNoRelevantNotes
	}
	if len(matches) == 0 {
		s.log(ctx, query, 0, start)
		return "", ErrNoRelevantNotes
	}

	// Only the single nearest neighbor's content is surfaced downstream.
	top := matches[0]
	contents, err := s.fetcher.FetchContent(ctx, []string{top.ID})
	if err != nil {
		slog.WarnContext(ctx, "content fetch failed, treating as no results", "owner", owner, "error", err)
		s.log(ctx, query, 0, start)
		return "", ErrNoRelevantNotes
	}

	content, ok := contents[top.ID]
	if !ok || content == "" {
		s.log(ctx, query, 0, start)
		return "", ErrNoRelevantNotes
	}

	s.log(ctx, query, len(matches), start)
	return content, nil
}

func (s *Service) log(ctx context.Context, query string, results int, start time.Time) {
	if s.logger == nil {
		return
	}
	s.logger.Log(QueryLogEntry{
		Query:      query,
		NumResults: results,
		Duration:   time.Since(start),
	})
}
