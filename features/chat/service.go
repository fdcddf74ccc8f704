package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jobtrail/internal/retrieval"
)

// Retriever fetches the most relevant note excerpt for a question.
type Retriever interface {
	Query(ctx context.Context, owner, question string) (string, error)
}

// Answerer turns a note excerpt and a question into a conversational reply.
type Answerer interface {
	Answer(ctx context.Context, noteContext, question string) (string, error)
}

type Service struct {
	retriever Retriever
	answerer  Answerer
}

func NewService(retriever Retriever, answerer Answerer) *Service {
	return &Service{retriever: retriever, answerer: answerer}
}

// Ask answers a question over the owner's notes. When retrieval comes up
// empty the caller gets the friendly fallback message rather than an error;
// the user asked a fair question, the notes just had nothing to say.
func (s *Service) Ask(ctx context.Context, owner, question string) (string, error) {
	excerpt, err := s.retriever.Query(ctx, owner, question)
	if errors.Is(err, retrieval.ErrNoRelevantNotes) {
		slog.InfoContext(ctx, "no relevant notes for question", "owner", owner)
		return retrieval.NoRelevantNotesMessage, nil
	}
	if err != nil {
		return "", fmt.Errorf("retrieve notes: %w", err)
	}

	answer, err := s.answerer.Answer(ctx, excerpt, question)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}
	return answer, nil
}
