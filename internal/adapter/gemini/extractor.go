package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"jobtrail/features/application"
)

const extractPrompt = `You are an assistant that reads job application emails.
Given the email below, decide whether it concerns a job application the
recipient made. If it does not, respond with exactly {"relevant": false}.

Otherwise respond with a single JSON object, no prose, no markdown fence:
{
  "relevant": true,
  "title": "<company name>",
  "position": "<role title>",
  "status": "<one of: Applied, OA, Interview, Offer, Rejected>",
  "deadline": "<YYYY-MM-DD or empty string if none mentioned>",
  "date_of_application": "<YYYY-MM-DD or empty string if not stated>",
  "notes": "<one short sentence with any actionable detail>"
}

Email:
%s`

// Extractor turns raw email text into a structured application update.
type Extractor struct {
	client *Client
}

func NewExtractor(client *Client) *Extractor {
	return &Extractor{client: client}
}

// Extract prompts the model over one email body and validates its reply.
// Model misbehavior surfaces as application.ErrExtraction; transport errors
// surface as-is so callers can retry them.
func (x *Extractor) Extract(ctx context.Context, emailBody string) (*application.Extraction, error) {
	raw, err := x.client.generate(ctx, fmt.Sprintf(extractPrompt, emailBody))
	if err != nil {
		slog.ErrorContext(ctx, "extraction generation failed", "error", err)
		return nil, err
	}

	ext, err := application.ParseExtraction(raw)
	if err != nil {
		slog.WarnContext(ctx, "model returned unusable extraction", "error", err, "raw_length", len(raw))
		return nil, err
	}
	return ext, nil
}
