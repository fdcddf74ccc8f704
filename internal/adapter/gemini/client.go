package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// Client wraps the genai client with the two models the service uses: one for
// embeddings, one for text generation and extraction.
type Client struct {
	genai          *genai.Client
	embeddingModel string
	generateModel  string
}

func NewClient(ctx context.Context, apiKey, embeddingModel, generateModel string, opts ...option.ClientOption) (*Client, error) {
	opts = append(opts, option.WithAPIKey(apiKey))
	c, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{genai: c, embeddingModel: embeddingModel, generateModel: generateModel}, nil
}

func (c *Client) Close() error {
	return c.genai.Close()
}

// generate runs a single-turn prompt and returns the concatenated text parts
// of the first candidate.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	model := c.genai.GenerativeModel(c.generateModel)
	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("model returned no candidates")
	}
	var out string
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			out += string(text)
		}
	}
	return out, nil
}
