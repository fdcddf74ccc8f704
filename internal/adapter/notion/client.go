package notion

import (
	"context"
	"errors"

	"github.com/jomei/notionapi"
)

// ErrUpstreamUnavailable wraps transient Notion API failures so consumers can
// requeue instead of recording a failed job.
var ErrUpstreamUnavailable = errors.New("notion unavailable")

// CredentialSource resolves a user's Notion integration token and the root
// page their workspace lives under.
type CredentialSource interface {
	NotionCredentials(ctx context.Context, owner string) (token, rootPage string, err error)
}

func newAPIClient(token string) *notionapi.Client {
	return notionapi.NewClient(notionapi.Token(token))
}
