package notion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jomei/notionapi"
)

// PageMeta identifies a note page without its content. LastEdited is the
// staleness signal: a page is only re-read when it moved past what the sync
// state remembers.
type PageMeta struct {
	ID         string
	Title      string
	LastEdited time.Time
}

// Source reads per-user note pages nested under the workspace root page.
type Source struct {
	creds     CredentialSource
	newClient func(token string) *notionapi.Client
}

func NewSource(creds CredentialSource) *Source {
	return &Source{creds: creds, newClient: newAPIClient}
}

func (s *Source) client(ctx context.Context, owner string) (*notionapi.Client, string, error) {
	token, rootPage, err := s.creds.NotionCredentials(ctx, owner)
	if err != nil {
		return nil, "", fmt.Errorf("notion credentials for %s: %w", owner, err)
	}
	return s.newClient(token), rootPage, nil
}

// ListPages returns all child pages of the owner's root page.
func (s *Source) ListPages(ctx context.Context, owner string) ([]PageMeta, error) {
	client, rootPage, err := s.client(ctx, owner)
	if err != nil {
		return nil, err
	}

	var pages []PageMeta
	cursor := notionapi.Cursor("")
	for {
		resp, err := client.Block.GetChildren(ctx, notionapi.BlockID(rootPage), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    100,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: list child pages: %v", ErrUpstreamUnavailable, err)
		}
		for _, block := range resp.Results {
			if block.GetType() != notionapi.BlockTypeChildPage {
				continue
			}
			meta := PageMeta{ID: string(block.GetID())}
			if child, ok := block.(*notionapi.ChildPageBlock); ok {
				meta.Title = child.ChildPage.Title
			}
			if t := block.GetLastEditedTime(); t != nil {
				meta.LastEdited = *t
			}
			pages = append(pages, meta)
		}
		if !resp.HasMore {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
	return pages, nil
}

// ReadPage flattens a page's blocks into plain text, one block per line.
func (s *Source) ReadPage(ctx context.Context, owner, pageID string) (string, error) {
	client, _, err := s.client(ctx, owner)
	if err != nil {
		return "", err
	}

	var lines []string
	cursor := notionapi.Cursor("")
	for {
		resp, err := client.Block.GetChildren(ctx, notionapi.BlockID(pageID), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    100,
		})
		if err != nil {
			return "", fmt.Errorf("%w: read page %s: %v", ErrUpstreamUnavailable, pageID, err)
		}
		for _, block := range resp.Results {
			if text := blockText(block); text != "" {
				lines = append(lines, text)
			}
		}
		if !resp.HasMore {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}
	return strings.Join(lines, "\n"), nil
}

// blockText extracts readable text from the block kinds notes actually use.
// Unsupported kinds (images, embeds, tables) contribute nothing.
func blockText(block notionapi.Block) string {
	switch b := block.(type) {
	case *notionapi.ParagraphBlock:
		return richTextString(b.Paragraph.RichText)
	case *notionapi.Heading1Block:
		return richTextString(b.Heading1.RichText)
	case *notionapi.Heading2Block:
		return richTextString(b.Heading2.RichText)
	case *notionapi.Heading3Block:
		return richTextString(b.Heading3.RichText)
	case *notionapi.BulletedListItemBlock:
		return richTextString(b.BulletedListItem.RichText)
	case *notionapi.NumberedListItemBlock:
		return richTextString(b.NumberedListItem.RichText)
	case *notionapi.ToDoBlock:
		return richTextString(b.ToDo.RichText)
	case *notionapi.QuoteBlock:
		return richTextString(b.Quote.RichText)
	}
	return ""
}

func richTextString(parts []notionapi.RichText) string {
	var sb strings.Builder
	for _, p := range parts {
		sb.WriteString(p.PlainText)
	}
	return strings.TrimSpace(sb.String())
}
