package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrUpstreamUnavailable wraps transient Gmail failures. Consumers requeue
// the message instead of recording a failed job.
var ErrUpstreamUnavailable = errors.New("gmail unavailable")

// ErrTokenExpired means the stored history cursor is older than Gmail's
// retention window. The caller must re-bootstrap from the current profile.
var ErrTokenExpired = errors.New("gmail history token expired")

// Change is one newly observed email within a history window.
type Change struct {
	MessageID string
	HistoryID uint64
	Subject   string
	Body      string
}

// Source reads per-user mailboxes. Each call authenticates with the caller's
// stored OAuth access token; no credentials are held on the struct beyond
// base client options.
type Source struct {
	baseOpts []option.ClientOption
}

func NewSource(opts ...option.ClientOption) *Source {
	return &Source{baseOpts: opts}
}

func (s *Source) service(ctx context.Context, accessToken string) (*gmail.Service, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	opts := append([]option.ClientOption{option.WithTokenSource(ts)}, s.baseOpts...)
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return svc, nil
}

// CurrentToken returns the mailbox's present history id, used to bootstrap a
// cursor when none is stored or the stored one has expired.
func (s *Source) CurrentToken(ctx context.Context, accessToken string) (string, error) {
	svc, err := s.service(ctx, accessToken)
	if err != nil {
		return "", err
	}
	profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: get profile: %v", ErrUpstreamUnavailable, err)
	}
	return strconv.FormatUint(profile.HistoryId, 10), nil
}

// ListChangesSince returns every message added after the given history token,
// oldest first, along with the new watermark token.
func (s *Source) ListChangesSince(ctx context.Context, accessToken, sinceToken string) ([]Change, string, error) {
	svc, err := s.service(ctx, accessToken)
	if err != nil {
		return nil, "", err
	}

	since, err := strconv.ParseUint(sinceToken, 10, 64)
	if err != nil {
		return nil, "", fmt.Errorf("%w: bad history token %q", ErrTokenExpired, sinceToken)
	}

	var messageIDs []string
	watermark := since
	pageToken := ""
	for {
		call := svc.Users.History.List("me").
			StartHistoryId(since).
			HistoryTypes("messageAdded").
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		resp, err := call.Do()
		if err != nil {
			var apiErr *googleapi.Error
			// Gmail returns 404 when the start id fell out of the history
			// retention window.
			if errors.As(err, &apiErr) && apiErr.Code == 404 {
				return nil, "", ErrTokenExpired
			}
			return nil, "", fmt.Errorf("%w: history list: %v", ErrUpstreamUnavailable, err)
		}
		for _, h := range resp.History {
			if h.Id > watermark {
				watermark = h.Id
			}
			for _, added := range h.MessagesAdded {
				if added.Message != nil {
					messageIDs = append(messageIDs, added.Message.Id)
				}
			}
		}
		if resp.HistoryId > watermark {
			watermark = resp.HistoryId
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	changes := make([]Change, 0, len(messageIDs))
	for _, id := range messageIDs {
		msg, err := svc.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
		if err != nil {
			// A message can vanish between history listing and fetch; skip
			// it rather than stall the whole window.
			slog.WarnContext(ctx, "failed to fetch message", "id", id, "error", err)
			continue
		}
		changes = append(changes, Change{
			MessageID: id,
			HistoryID: msg.HistoryId,
			Subject:   header(msg.Payload, "Subject"),
			Body:      extractBody(msg.Payload),
		})
	}
	return changes, strconv.FormatUint(watermark, 10), nil
}

func header(payload *gmail.MessagePart, name string) string {
	if payload == nil {
		return ""
	}
	for _, h := range payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// extractBody walks the MIME tree and returns the first text/plain part,
// falling back to text/html when plain text is absent.
func extractBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return ""
	}
	if body := findPart(payload, "text/plain"); body != "" {
		return body
	}
	return findPart(payload, "text/html")
}

func findPart(part *gmail.MessagePart, mimeType string) string {
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		return decodeBody(part.Body.Data)
	}
	for _, p := range part.Parts {
		if body := findPart(p, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func decodeBody(data string) string {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return ""
		}
	}
	return string(decoded)
}
