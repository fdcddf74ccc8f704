package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	jobs    map[string]*Job
	deleted []string
}

func (m *mockRepo) Save(_ context.Context, j *Job) error { return nil }

func (m *mockRepo) Get(_ context.Context, id string) (*Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return j, nil
}

func (m *mockRepo) Delete(_ context.Context, id string) error {
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRepo) List(_ context.Context) ([]Job, error) {
	var out []Job
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	return out, nil
}

func (m *mockRepo) Count(_ context.Context) (int, error) { return len(m.jobs), nil }

type mockPublisher struct {
	lastTopic string
	lastBody  []byte
	err       error
}

func (p *mockPublisher) Publish(topic string, body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.lastTopic = topic
	p.lastBody = body
	return nil
}

func TestRetry_RepublishesToOriginalTopic(t *testing.T) {
	repo := &mockRepo{jobs: map[string]*Job{
		"1": {ID: "1", Topic: "mail.extract", Payload: []byte(`{"email":"alice@example.com"}`)},
	}}
	pub := &mockPublisher{}
	svc := NewService(repo, pub)

	require.NoError(t, svc.Retry(t.Context(), "1"))
	assert.Equal(t, "mail.extract", pub.lastTopic)
	assert.JSONEq(t, `{"email":"alice@example.com"}`, string(pub.lastBody))
	assert.Equal(t, []string{"1"}, repo.deleted)
}

func TestRetry_PublishFailureKeepsJob(t *testing.T) {
	repo := &mockRepo{jobs: map[string]*Job{
		"1": {ID: "1", Topic: "notes.embed", Payload: []byte(`{}`)},
	}}
	pub := &mockPublisher{err: errors.New("nsqd down")}
	svc := NewService(repo, pub)

	require.Error(t, svc.Retry(t.Context(), "1"))
	assert.Empty(t, repo.deleted)
}

func TestRetry_MissingTopicRejected(t *testing.T) {
	repo := &mockRepo{jobs: map[string]*Job{
		"1": {ID: "1", Payload: []byte(`{}`)},
	}}
	svc := NewService(repo, &mockPublisher{})

	assert.Error(t, svc.Retry(t.Context(), "1"))
}
