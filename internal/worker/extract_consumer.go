package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/nsqio/go-nsq"

	"jobtrail/features/application"
	"jobtrail/features/job"
	"jobtrail/internal/middleware"
)

// Extractor runs the LLM over one email body.
type Extractor interface {
	Extract(ctx context.Context, emailBody string) (*application.Extraction, error)
}

// FailedJobStore dead-letters a message that will never succeed on retry.
type FailedJobStore interface {
	Save(ctx context.Context, j *job.Job) error
}

type Publisher interface {
	Publish(topic string, body []byte) error
}

// ExtractConsumer turns mail.extract events into mail.apply events. Transient
// upstream failures are returned so NSQ retries; model output that cannot be
// parsed is dead-lettered, retrying it would produce the same garbage.
type ExtractConsumer struct {
	extractor Extractor
	pub       Publisher
	jobs      FailedJobStore
}

func NewExtractConsumer(extractor Extractor, pub Publisher, jobs FailedJobStore) *ExtractConsumer {
	return &ExtractConsumer{extractor: extractor, pub: pub, jobs: jobs}
}

func (h *ExtractConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var ev ExtractEvent
	if err := json.Unmarshal(m.Body, &ev); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "topic", TopicExtract, "error", err)
		return nil
	}

	ctx := context.Background()
	if ev.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, ev.CorrelationID)
	}

	input := "Subject: " + ev.Subject + "\n\n" + ev.Body

	extractCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	ext, err := h.extractor.Extract(extractCtx, input)
	if errors.Is(err, application.ErrExtraction) {
		h.deadLetter(ctx, TopicExtract, ev.MessageID, m.Body, err)
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "extraction failed, will retry", "message_id", ev.MessageID, "error", err)
		return err
	}

	if !ext.Relevant {
		slog.InfoContext(ctx, "email not job related, skipping", "owner", ev.Email, "message_id", ev.MessageID)
		return nil
	}

	payload, err := json.Marshal(ApplyEvent{
		Email:         ev.Email,
		MessageID:     ev.MessageID,
		Extraction:    *ext,
		CorrelationID: ev.CorrelationID,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to marshal apply event", "error", err)
		return err
	}
	if err := h.pub.Publish(TopicApply, payload); err != nil {
		slog.ErrorContext(ctx, "failed to publish apply event", "error", err)
		return err
	}

	slog.InfoContext(ctx, "extraction queued for apply",
		"owner", ev.Email, "company", ext.Company, "status", ext.Status)
	return nil
}

func (h *ExtractConsumer) deadLetter(ctx context.Context, topic, refID string, payload []byte, cause error) {
	j := &job.Job{RefID: refID, Topic: topic, Payload: payload, Error: cause.Error()}
	if err := h.jobs.Save(ctx, j); err != nil {
		slog.ErrorContext(ctx, "failed to record failed job", "ref_id", refID, "error", err)
		return
	}
	slog.WarnContext(ctx, "message dead-lettered", "ref_id", refID, "topic", topic, "cause", cause)
}
