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

// Applier folds a validated extraction into the application store.
type Applier interface {
	Apply(ctx context.Context, owner string, ext *application.Extraction) (application.Decision, error)
}

// ApplyConsumer resolves mail.apply events against stored application state.
type ApplyConsumer struct {
	applier Applier
	jobs    FailedJobStore
}

func NewApplyConsumer(applier Applier, jobs FailedJobStore) *ApplyConsumer {
	return &ApplyConsumer{applier: applier, jobs: jobs}
}

func (h *ApplyConsumer) HandleMessage(m *nsq.Message) error {
	if len(m.Body) == 0 {
		return nil
	}

	var ev ApplyEvent
	if err := json.Unmarshal(m.Body, &ev); err != nil {
		// Poison Pill: Invalid JSON, don't retry
		slog.Error("poison pill: invalid json", "topic", TopicApply, "error", err)
		return nil
	}

	ctx := context.Background()
	if ev.CorrelationID != "" {
		ctx = middleware.WithCorrelationID(ctx, ev.CorrelationID)
	}

	applyCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	decision, err := h.applier.Apply(applyCtx, ev.Email, &ev.Extraction)
	if errors.Is(err, application.ErrExtraction) {
		j := &job.Job{RefID: ev.MessageID, Topic: TopicApply, Payload: m.Body, Error: err.Error()}
		if saveErr := h.jobs.Save(ctx, j); saveErr != nil {
			slog.ErrorContext(ctx, "failed to record failed job", "message_id", ev.MessageID, "error", saveErr)
		}
		return nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "apply failed, will retry", "owner", ev.Email, "message_id", ev.MessageID, "error", err)
		return err
	}

	slog.InfoContext(ctx, "application state resolved",
		"owner", ev.Email, "company", ev.Extraction.Company, "decision", decision)
	return nil
}
