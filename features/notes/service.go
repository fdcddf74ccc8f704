package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"jobtrail/internal/adapter/notion"
	"jobtrail/internal/cursor"
	"jobtrail/internal/middleware"
	"jobtrail/internal/worker"
)

// PageLister enumerates the owner's note pages with their edit times.
type PageLister interface {
	ListPages(ctx context.Context, owner string) ([]notion.PageMeta, error)
}

// VectorCleaner removes a vanished page's chunks from the index.
type VectorCleaner interface {
	DeleteByEntity(ctx context.Context, owner, entityID string) error
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// OwnerLister enumerates owners for the full sweep.
type OwnerLister interface {
	ListOwners(ctx context.Context) ([]string, error)
}

// SyncReport summarizes one sync pass.
type SyncReport struct {
	Queued    int `json:"queued"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
}

type Service struct {
	repo    Repository
	lister  PageLister
	cleaner VectorCleaner
	pub     EventPublisher
}

func NewService(repo Repository, lister PageLister, cleaner VectorCleaner, pub EventPublisher) *Service {
	return &Service{repo: repo, lister: lister, cleaner: cleaner, pub: pub}
}

// Sync diffs the owner's workspace against the recorded sync state. Stale or
// unseen pages are queued for embedding; pages that disappeared from the
// workspace are purged from the index. Sync state itself only advances when
// the embed consumer finishes a page, so a lost queue message means the page
// is simply queued again next pass.
func (s *Service) Sync(ctx context.Context, owner string) (*SyncReport, error) {
	remote, err := s.lister.ListPages(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list pages for %s: %w", owner, err)
	}

	stored, err := s.repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("load sync state for %s: %w", owner, err)
	}
	known := make(map[string]Page, len(stored))
	for _, p := range stored {
		known[p.PageID] = p
	}

	report := &SyncReport{}
	seen := make(map[string]bool, len(remote))
	for _, page := range remote {
		seen[page.ID] = true

		if prev, ok := known[page.ID]; ok {
			cmp, err := cursor.Compare(cursor.SourceNotes,
				editToken(page.LastEdited), editToken(prev.LastEdited))
			if err != nil {
				return report, fmt.Errorf("compare edit tokens for %s: %w", page.ID, err)
			}
			if cmp <= 0 {
				report.Unchanged++
				continue
			}
		}

		payload, err := json.Marshal(worker.EmbedEvent{
			Email:         owner,
			PageID:        page.ID,
			Title:         page.Title,
			LastEdited:    page.LastEdited,
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
		if err != nil {
			return report, fmt.Errorf("marshal embed event: %w", err)
		}
		if err := s.pub.Publish(worker.TopicEmbed, payload); err != nil {
			return report, fmt.Errorf("queue page %s: %w", page.ID, err)
		}
		report.Queued++
	}

	for pageID := range known {
		if seen[pageID] {
			continue
		}
		if err := s.cleaner.DeleteByEntity(ctx, owner, pageID); err != nil {
			return report, fmt.Errorf("purge chunks for %s: %w", pageID, err)
		}
		if err := s.repo.Delete(ctx, owner, pageID); err != nil {
			return report, fmt.Errorf("drop sync state for %s: %w", pageID, err)
		}
		report.Removed++
	}

	slog.InfoContext(ctx, "notes sync pass finished",
		"owner", owner, "queued", report.Queued, "unchanged", report.Unchanged, "removed", report.Removed)
	return report, nil
}

// editToken renders an edit time as a notes cursor token. UTC RFC3339 is
// fixed width, so lexical order matches chronological order.
func editToken(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SyncAll runs a sync pass for every registered owner. Owners are independent,
// so they run concurrently; a failing workspace is logged and skipped.
func (s *Service) SyncAll(ctx context.Context, owners OwnerLister) (*SyncReport, error) {
	list, err := owners.ListOwners(ctx)
	if err != nil {
		return nil, err
	}

	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		agg SyncReport
	)
	for _, owner := range list {
		wg.Add(1)
		go func() {
			defer wg.Done()
			report, err := s.Sync(ctx, owner)
			if err != nil {
				slog.ErrorContext(ctx, "notes sync failed", "owner", owner, "error", err)
				return
			}
			mu.Lock()
			agg.Queued += report.Queued
			agg.Unchanged += report.Unchanged
			agg.Removed += report.Removed
			mu.Unlock()
		}()
	}
	wg.Wait()
	return &agg, nil
}
