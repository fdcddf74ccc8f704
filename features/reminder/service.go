package reminder

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"jobtrail/features/application"
	"jobtrail/internal/worker"
)

// Publisher matches the publish side of an NSQ producer.
type Publisher interface {
	Publish(topic string, body []byte) error
}

// Alert is the payload sent to the email delivery consumer.
type Alert struct {
	Email    string             `json:"email"`
	Company  string             `json:"company"`
	Position string             `json:"position"`
	Status   application.Status `json:"status"`
	Deadline time.Time          `json:"deadline"`
}

type Service struct {
	repo      application.Repository
	gate      *Gate
	publisher Publisher
	now       func() time.Time
}

func NewService(repo application.Repository, gate *Gate, publisher Publisher) *Service {
	return &Service{repo: repo, gate: gate, publisher: publisher, now: time.Now}
}

// Run performs one reminder sweep and returns the number of alerts sent.
// Each alert is marked before moving on so a crash mid-sweep cannot double
// alert the records already handled.
func (s *Service) Run(ctx context.Context) (int, error) {
	candidates, err := s.repo.ListAlertCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list alert candidates: %w", err)
	}

	now := s.now()
	sent := 0
	for i := range candidates {
		rec := &candidates[i]
		if !s.gate.ShouldAlert(rec, now) {
			continue
		}

		payload, err := json.Marshal(Alert{
			Email:    rec.Owner,
			Company:  rec.Company,
			Position: rec.Position,
			Status:   rec.Status,
			Deadline: *rec.Deadline,
		})
		if err != nil {
			return sent, fmt.Errorf("marshal alert: %w", err)
		}
		if err := s.publisher.Publish(worker.TopicAlert, payload); err != nil {
			return sent, fmt.Errorf("publish alert for %s/%s: %w", rec.Owner, rec.Company, err)
		}
		if err := s.repo.MarkAlerted(ctx, rec.ID, now); err != nil {
			return sent, fmt.Errorf("mark alerted %s: %w", rec.ID, err)
		}

		slog.InfoContext(ctx, "deadline alert sent",
			"owner", rec.Owner, "company", rec.Company, "deadline", rec.Deadline)
		sent++
	}
	return sent, nil
}
