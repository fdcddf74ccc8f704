package notion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jomei/notionapi"

	"jobtrail/features/application"
)

const databaseTitle = "Job Applications"

// applicationDateProp is spelled this way in existing user workspaces, so the
// name is load-bearing even though it reads oddly.
const applicationDateProp = "Data of Application"

// Sink mirrors application records into an inline database on each user's
// Notion root page. The database is found or created lazily on first write
// and its id cached per owner.
type Sink struct {
	creds     CredentialSource
	newClient func(token string) *notionapi.Client

	mu        sync.Mutex
	databases map[string]notionapi.DatabaseID
}

func NewSink(creds CredentialSource) *Sink {
	return &Sink{
		creds:     creds,
		newClient: newAPIClient,
		databases: make(map[string]notionapi.DatabaseID),
	}
}

func (s *Sink) CreateEntry(ctx context.Context, rec *application.Record) error {
	client, dbID, err := s.resolve(ctx, rec.Owner)
	if err != nil {
		return err
	}

	_, err = client.Page.Create(ctx, &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: dbID,
		},
		Properties: entryProperties(rec),
	})
	if err != nil {
		return fmt.Errorf("%w: create entry: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

func (s *Sink) UpdateEntry(ctx context.Context, rec *application.Record) error {
	client, dbID, err := s.resolve(ctx, rec.Owner)
	if err != nil {
		return err
	}

	pageID, err := s.findEntry(ctx, client, dbID, rec.Company, rec.Position)
	if err != nil {
		return err
	}
	if pageID == "" {
		// The mirror drifted, likely a manual deletion. Recreate instead of
		// failing the update.
		slog.InfoContext(ctx, "mirror entry missing, recreating",
			"owner", rec.Owner, "company", rec.Company)
		return s.CreateEntry(ctx, rec)
	}

	_, err = client.Page.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{
		Properties: entryProperties(rec),
	})
	if err != nil {
		return fmt.Errorf("%w: update entry: %v", ErrUpstreamUnavailable, err)
	}
	return nil
}

func (s *Sink) resolve(ctx context.Context, owner string) (*notionapi.Client, notionapi.DatabaseID, error) {
	token, rootPage, err := s.creds.NotionCredentials(ctx, owner)
	if err != nil {
		return nil, "", fmt.Errorf("notion credentials for %s: %w", owner, err)
	}
	client := s.newClient(token)

	s.mu.Lock()
	dbID, ok := s.databases[owner]
	s.mu.Unlock()
	if ok {
		return client, dbID, nil
	}

	dbID, err = s.ensureDatabase(ctx, client, rootPage)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	s.databases[owner] = dbID
	s.mu.Unlock()
	return client, dbID, nil
}

// ensureDatabase returns the inline database on the root page, creating it if
// the page has none.
func (s *Sink) ensureDatabase(ctx context.Context, client *notionapi.Client, rootPage string) (notionapi.DatabaseID, error) {
	cursor := notionapi.Cursor("")
	for {
		resp, err := client.Block.GetChildren(ctx, notionapi.BlockID(rootPage), &notionapi.Pagination{
			StartCursor: cursor,
			PageSize:    100,
		})
		if err != nil {
			return "", fmt.Errorf("%w: list page blocks: %v", ErrUpstreamUnavailable, err)
		}
		for _, block := range resp.Results {
			if block.GetType() == notionapi.BlockTypeChildDatabase {
				return notionapi.DatabaseID(block.GetID()), nil
			}
		}
		if !resp.HasMore {
			break
		}
		cursor = notionapi.Cursor(resp.NextCursor)
	}

	db, err := client.Database.Create(ctx, &notionapi.DatabaseCreateRequest{
		Parent: notionapi.Parent{
			Type:   notionapi.ParentTypePageID,
			PageID: notionapi.PageID(rootPage),
		},
		Title: []notionapi.RichText{
			{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: databaseTitle}},
		},
		IsInline:   true,
		Properties: databaseSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("%w: create database: %v", ErrUpstreamUnavailable, err)
	}
	return notionapi.DatabaseID(db.ID), nil
}

// entryFilter matches one record's mirror row. The Company column is a title
// property, but the Notion query API takes rich_text conditions on titles.
func entryFilter(company, position string) notionapi.AndCompoundFilter {
	return notionapi.AndCompoundFilter{
		notionapi.PropertyFilter{
			Property: "Company",
			RichText: &notionapi.TextFilterCondition{Equals: company},
		},
		notionapi.PropertyFilter{
			Property: "Position",
			RichText: &notionapi.TextFilterCondition{Contains: position},
		},
	}
}

func (s *Sink) findEntry(ctx context.Context, client *notionapi.Client, dbID notionapi.DatabaseID, company, position string) (string, error) {
	resp, err := client.Database.Query(ctx, dbID, &notionapi.DatabaseQueryRequest{
		Filter: entryFilter(company, position),
	})
	if err != nil {
		return "", fmt.Errorf("%w: query database: %v", ErrUpstreamUnavailable, err)
	}
	if len(resp.Results) == 0 {
		return "", nil
	}
	return string(resp.Results[0].ID), nil
}

func databaseSchema() notionapi.PropertyConfigs {
	return notionapi.PropertyConfigs{
		"Company": notionapi.TitlePropertyConfig{
			Type: notionapi.PropertyConfigTypeTitle,
		},
		"Position": notionapi.RichTextPropertyConfig{
			Type: notionapi.PropertyConfigTypeRichText,
		},
		applicationDateProp: notionapi.DatePropertyConfig{
			Type: notionapi.PropertyConfigTypeDate,
		},
		"Status": notionapi.SelectPropertyConfig{
			Type: notionapi.PropertyConfigTypeSelect,
			Select: notionapi.Select{
				Options: []notionapi.Option{
					{Name: string(application.StatusApplied), Color: notionapi.ColorBlue},
					{Name: string(application.StatusOA), Color: notionapi.ColorYellow},
					{Name: string(application.StatusInterview), Color: notionapi.ColorGreen},
					{Name: string(application.StatusOffer), Color: notionapi.ColorPurple},
					{Name: string(application.StatusRejected), Color: notionapi.ColorRed},
				},
			},
		},
		"Deadline": notionapi.DatePropertyConfig{
			Type: notionapi.PropertyConfigTypeDate,
		},
		"Notes": notionapi.RichTextPropertyConfig{
			Type: notionapi.PropertyConfigTypeRichText,
		},
	}
}

func entryProperties(rec *application.Record) notionapi.Properties {
	props := notionapi.Properties{
		"Company": notionapi.TitleProperty{
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: rec.Company}},
			},
		},
		"Position": notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: rec.Position}},
			},
		},
		"Status": notionapi.SelectProperty{
			Select: notionapi.Option{Name: string(rec.Status)},
		},
	}
	if rec.Notes != "" {
		props["Notes"] = notionapi.RichTextProperty{
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: rec.Notes}},
			},
		}
	}
	if rec.Deadline != nil {
		d := notionapi.Date(*rec.Deadline)
		props["Deadline"] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
	}
	if !rec.AppliedDate.IsZero() {
		d := notionapi.Date(rec.AppliedDate)
		props[applicationDateProp] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &d}}
	}
	return props
}
