package notes

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrail/internal/adapter/notion"
	"jobtrail/internal/worker"
)

// Stubs guard their state with a mutex: SyncAll fans out one goroutine per
// owner.
type memPageRepo struct {
	mu    sync.Mutex
	pages map[string]Page // keyed by owner|pageID
}

func pageKey(owner, pageID string) string { return owner + "|" + pageID }

func (m *memPageRepo) ListByOwner(_ context.Context, owner string) ([]Page, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Page
	for _, p := range m.pages {
		if p.Owner == owner {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memPageRepo) Touch(_ context.Context, owner, pageID, title string, lastEdited time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pages == nil {
		m.pages = make(map[string]Page)
	}
	m.pages[pageKey(owner, pageID)] = Page{
		Owner: owner, PageID: pageID, Title: title, LastEdited: lastEdited, SyncedAt: time.Now(),
	}
	return nil
}

func (m *memPageRepo) Delete(_ context.Context, owner, pageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pages, pageKey(owner, pageID))
	return nil
}

func (m *memPageRepo) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pages), nil
}

type stubLister struct {
	pages []notion.PageMeta
}

func (s *stubLister) ListPages(_ context.Context, _ string) ([]notion.PageMeta, error) {
	return s.pages, nil
}

type stubCleaner struct {
	deleted []string
}

func (s *stubCleaner) DeleteByEntity(_ context.Context, _ string, entityID string) error {
	s.deleted = append(s.deleted, entityID)
	return nil
}

type capturePublisher struct {
	mu     sync.Mutex
	events []worker.EmbedEvent
}

func (p *capturePublisher) Publish(topic string, body []byte) error {
	if topic != worker.TopicEmbed {
		return nil
	}
	var ev worker.EmbedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func TestSync_QueuesOnlyStalePages(t *testing.T) {
	edited := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	repo := &memPageRepo{}
	require.NoError(t, repo.Touch(t.Context(), "alice@example.com", "page-old", "Old Notes", edited))

	lister := &stubLister{pages: []notion.PageMeta{
		{ID: "page-old", Title: "Old Notes", LastEdited: edited},                    // unchanged
		{ID: "page-edited", Title: "Acme Notes", LastEdited: edited.Add(time.Hour)}, // new page
	}}
	pub := &capturePublisher{}
	svc := NewService(repo, lister, &stubCleaner{}, pub)

	report, err := svc.Sync(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Queued)
	assert.Equal(t, 1, report.Unchanged)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "page-edited", pub.events[0].PageID)
	assert.Equal(t, "alice@example.com", pub.events[0].Email)
}

func TestSync_RequeuesEditedPage(t *testing.T) {
	edited := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	repo := &memPageRepo{}
	require.NoError(t, repo.Touch(t.Context(), "alice@example.com", "page-1", "Notes", edited))

	lister := &stubLister{pages: []notion.PageMeta{
		{ID: "page-1", Title: "Notes", LastEdited: edited.Add(time.Minute)},
	}}
	pub := &capturePublisher{}
	svc := NewService(repo, lister, &stubCleaner{}, pub)

	report, err := svc.Sync(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Queued)
	assert.Zero(t, report.Unchanged)
}

func TestSync_PurgesVanishedPages(t *testing.T) {
	edited := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	repo := &memPageRepo{}
	require.NoError(t, repo.Touch(t.Context(), "alice@example.com", "page-gone", "Deleted", edited))

	cleaner := &stubCleaner{}
	svc := NewService(repo, &stubLister{}, cleaner, &capturePublisher{})

	report, err := svc.Sync(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Removed)
	assert.Equal(t, []string{"page-gone"}, cleaner.deleted)

	remaining, err := repo.ListByOwner(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestSync_DoesNotAdvanceStateOnQueue(t *testing.T) {
	// State must only advance when the embed consumer finishes, so a lost
	// message leaves the page stale and retried on the next pass.
	edited := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	repo := &memPageRepo{}
	lister := &stubLister{pages: []notion.PageMeta{{ID: "page-1", Title: "Notes", LastEdited: edited}}}
	svc := NewService(repo, lister, &stubCleaner{}, &capturePublisher{})

	_, err := svc.Sync(t.Context(), "alice@example.com")
	require.NoError(t, err)

	report, err := svc.Sync(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, report.Queued, "second pass requeues because state has not advanced")
}

type ownerList []string

func (o ownerList) ListOwners(context.Context) ([]string, error) { return o, nil }

// brokenFirstLister fails for alice and lists one page for everyone else.
type brokenFirstLister struct {
	pages []notion.PageMeta
}

func (l *brokenFirstLister) ListPages(_ context.Context, owner string) ([]notion.PageMeta, error) {
	if owner == "alice@example.com" {
		return nil, assert.AnError
	}
	return l.pages, nil
}

func TestSyncAll_ContinuesPastBrokenWorkspace(t *testing.T) {
	edited := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	lister := &brokenFirstLister{pages: []notion.PageMeta{
		{ID: "page-1", Title: "Notes", LastEdited: edited},
	}}
	pub := &capturePublisher{}
	svc := NewService(&memPageRepo{}, lister, &stubCleaner{}, pub)

	report, err := svc.SyncAll(t.Context(), ownerList{"alice@example.com", "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Queued)

	require.Len(t, pub.events, 1)
	assert.Equal(t, "bob@example.com", pub.events[0].Email)
}
