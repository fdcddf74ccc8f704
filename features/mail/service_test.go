package mail

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobtrail/internal/adapter/gmail"
	"jobtrail/internal/cursor"
	"jobtrail/internal/worker"
)

// Stubs guard their state with a mutex: SyncAll fans out one goroutine per
// owner.
type memCursorStore struct {
	mu     sync.Mutex
	tokens map[string]string
}

func (m *memCursorStore) Get(_ context.Context, owner string, source cursor.SourceType) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tok, ok := m.tokens[owner+"|"+string(source)]
	return tok, ok, nil
}

func (m *memCursorStore) Put(_ context.Context, owner string, source cursor.SourceType, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tokens == nil {
		m.tokens = make(map[string]string)
	}
	m.tokens[owner+"|"+string(source)] = token
	return nil
}

func (m *memCursorStore) Delete(_ context.Context, owner string, source cursor.SourceType) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, owner+"|"+string(source))
	return nil
}

type stubReader struct {
	mu        sync.Mutex
	current   string
	changes   []gmail.Change
	newToken  string
	listErr   error
	listCalls int
}

func (s *stubReader) CurrentToken(context.Context, string) (string, error) {
	return s.current, nil
}

func (s *stubReader) ListChangesSince(_ context.Context, _, _ string) ([]gmail.Change, string, error) {
	s.mu.Lock()
	s.listCalls++
	s.mu.Unlock()
	if s.listErr != nil {
		return nil, "", s.listErr
	}
	return s.changes, s.newToken, nil
}

type stubTokens struct{}

func (stubTokens) GmailToken(context.Context, string) (string, error) { return "ya29.token", nil }

type topicCapture struct {
	mu     sync.Mutex
	events []worker.ExtractEvent
}

func (p *topicCapture) Publish(topic string, body []byte) error {
	if topic != worker.TopicExtract {
		return nil
	}
	var ev worker.ExtractEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, ev)
	p.mu.Unlock()
	return nil
}

func TestSyncOwner_FirstContactBootstrapsWithoutQueueing(t *testing.T) {
	store := &memCursorStore{}
	reader := &stubReader{current: "5000"}
	pub := &topicCapture{}
	svc := NewService(cursor.NewTracker(store), reader, stubTokens{}, pub)

	queued, err := svc.SyncOwner(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Zero(t, queued)
	assert.Empty(t, pub.events)

	tok, found, _ := store.Get(t.Context(), "alice@example.com", cursor.SourceMail)
	assert.True(t, found)
	assert.Equal(t, "5000", tok)
}

func TestSyncOwner_QueuesNewChangesAndAdvances(t *testing.T) {
	store := &memCursorStore{}
	require.NoError(t, store.Put(t.Context(), "alice@example.com", cursor.SourceMail, "5000"))
	reader := &stubReader{
		changes: []gmail.Change{
			{MessageID: "m1", HistoryID: 5001, Subject: "Interview invite", Body: "hello"},
			{MessageID: "m2", HistoryID: 5002, Subject: "OA reminder", Body: "world"},
		},
		newToken: "5002",
	}
	pub := &topicCapture{}
	svc := NewService(cursor.NewTracker(store), reader, stubTokens{}, pub)

	queued, err := svc.SyncOwner(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 2, queued)
	require.Len(t, pub.events, 2)
	assert.Equal(t, "m1", pub.events[0].MessageID)
	assert.Equal(t, "alice@example.com", pub.events[0].Email)

	tok, _, _ := store.Get(t.Context(), "alice@example.com", cursor.SourceMail)
	assert.Equal(t, "5002", tok)
}

func TestSyncOwner_RedeliveredWindowQueuesNothing(t *testing.T) {
	store := &memCursorStore{}
	require.NoError(t, store.Put(t.Context(), "alice@example.com", cursor.SourceMail, "5002"))
	reader := &stubReader{
		changes: []gmail.Change{
			{MessageID: "m1", HistoryID: 5001},
			{MessageID: "m2", HistoryID: 5002},
		},
		newToken: "5002",
	}
	pub := &topicCapture{}
	svc := NewService(cursor.NewTracker(store), reader, stubTokens{}, pub)

	queued, err := svc.SyncOwner(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Zero(t, queued)
	assert.Empty(t, pub.events)
}

func TestSyncOwner_ExpiredWindowReBootstraps(t *testing.T) {
	store := &memCursorStore{}
	require.NoError(t, store.Put(t.Context(), "alice@example.com", cursor.SourceMail, "10"))
	reader := &stubReader{current: "9000", listErr: gmail.ErrTokenExpired}
	pub := &topicCapture{}
	svc := NewService(cursor.NewTracker(store), reader, stubTokens{}, pub)

	queued, err := svc.SyncOwner(t.Context(), "alice@example.com")
	require.NoError(t, err)
	assert.Zero(t, queued)

	tok, found, _ := store.Get(t.Context(), "alice@example.com", cursor.SourceMail)
	assert.True(t, found)
	assert.Equal(t, "9000", tok)
}

type ownerList []string

func (o ownerList) ListOwners(context.Context) ([]string, error) { return o, nil }

func TestSyncAll_ContinuesPastBrokenMailbox(t *testing.T) {
	store := &memCursorStore{}
	require.NoError(t, store.Put(t.Context(), "bob@example.com", cursor.SourceMail, "1"))
	reader := &stubReader{
		changes:  []gmail.Change{{MessageID: "m1", HistoryID: 2}},
		newToken: "2",
	}
	pub := &topicCapture{}
	svc := NewService(cursor.NewTracker(store), reader, brokenFirstTokens{}, pub)

	total, err := svc.SyncAll(t.Context(), ownerList{"alice@example.com", "bob@example.com"})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}

// brokenFirstTokens fails for alice and works for bob.
type brokenFirstTokens struct{}

func (brokenFirstTokens) GmailToken(_ context.Context, owner string) (string, error) {
	if owner == "alice@example.com" {
		return "", assert.AnError
	}
	return "ya29.token", nil
}
