package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const answerPrompt = `You are a helpful assistant for a job application tracker.
Answer the user's question using only the note excerpt below. Be concise and
friendly. If the excerpt does not contain the answer, say you could not find
it in their notes.

Note excerpt:
%s

Question:
%s`

// Generator produces the final conversational answer for note queries.
type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) Answer(ctx context.Context, noteContext, question string) (string, error) {
	out, err := g.client.generate(ctx, fmt.Sprintf(answerPrompt, noteContext, question))
	if err != nil {
		slog.ErrorContext(ctx, "answer generation failed", "error", err)
		return "", err
	}
	return strings.TrimSpace(out), nil
}
