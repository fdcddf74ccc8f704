package notes

import (
	"context"
	"time"
)

// Page is the sync state for one Notion note page. LastEdited is the page's
// edit time as of the last successful embed; a page whose remote edit time
// moved past it is stale and gets re-embedded.
type Page struct {
	Owner      string    `json:"owner"`
	PageID     string    `json:"page_id"`
	Title      string    `json:"title"`
	LastEdited time.Time `json:"last_edited"`
	SyncedAt   time.Time `json:"synced_at"`
}

type Repository interface {
	ListByOwner(ctx context.Context, owner string) ([]Page, error)
	// Touch records a successful embed of the page at the given edit time.
	Touch(ctx context.Context, owner, pageID, title string, lastEdited time.Time) error
	Delete(ctx context.Context, owner, pageID string) error
	Count(ctx context.Context) (int, error)
}
