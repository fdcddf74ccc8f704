package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const dateLayout = "2006-01-02"

// RecordSink mirrors application records into an external tracker. The sink
// is best-effort: Postgres is the source of truth and a sink failure must not
// fail the message, because the rank check discards redeliveries and would
// never retry the mirror write.
type RecordSink interface {
	CreateEntry(ctx context.Context, rec *Record) error
	UpdateEntry(ctx context.Context, rec *Record) error
}

type Service struct {
	repo     Repository
	resolver *Resolver
	sink     RecordSink
	now      func() time.Time
}

func NewService(repo Repository, sink RecordSink) *Service {
	return &Service{
		repo:     repo,
		resolver: NewResolver(repo),
		sink:     sink,
		now:      time.Now,
	}
}

// Apply folds one extraction into the store. Returns the decision taken so
// callers can count creates, updates and discards.
func (s *Service) Apply(ctx context.Context, owner string, ext *Extraction) (Decision, error) {
	if !ext.Relevant {
		return DecisionDiscard, nil
	}

	decision, existing, err := s.resolver.Resolve(ctx, owner, ext.Company, ext.Position, ext.Status)
	if err != nil {
		return DecisionDiscard, err
	}

	switch decision {
	case DecisionCreate:
		rec := s.buildRecord(owner, ext)
		if err := s.repo.Create(ctx, rec); err != nil {
			return DecisionDiscard, fmt.Errorf("create application: %w", err)
		}
		s.mirror(ctx, rec, s.sinkCreate)
		return DecisionCreate, nil

	case DecisionUpdate:
		existing.Status = ext.Status
		if deadline := parseDate(ext.Deadline); deadline != nil {
			existing.Deadline = deadline
		}
		if ext.Notes != "" {
			existing.Notes = ext.Notes
		}
		// A status change restarts the alert cycle for the new stage.
		existing.AlertedAt = nil
		if err := s.repo.Update(ctx, existing); err != nil {
			return DecisionDiscard, fmt.Errorf("update application: %w", err)
		}
		s.mirror(ctx, existing, s.sinkUpdate)
		return DecisionUpdate, nil
	}

	slog.InfoContext(ctx, "discarding stale status",
		"owner", owner, "company", ext.Company, "position", ext.Position, "status", ext.Status)
	return DecisionDiscard, nil
}

func (s *Service) List(ctx context.Context, owner string) ([]Record, error) {
	return s.repo.ListByOwner(ctx, owner)
}

func (s *Service) buildRecord(owner string, ext *Extraction) *Record {
	applied := s.now().UTC().Truncate(24 * time.Hour)
	if d := parseDate(ext.AppliedDate); d != nil {
		applied = *d
	}
	return &Record{
		Owner:       owner,
		Company:     ext.Company,
		Position:    ext.Position,
		Status:      ext.Status,
		Deadline:    parseDate(ext.Deadline),
		AppliedDate: applied,
		Notes:       ext.Notes,
	}
}

type sinkOp func(ctx context.Context, rec *Record) error

func (s *Service) sinkCreate(ctx context.Context, rec *Record) error { return s.sink.CreateEntry(ctx, rec) }
func (s *Service) sinkUpdate(ctx context.Context, rec *Record) error { return s.sink.UpdateEntry(ctx, rec) }

func (s *Service) mirror(ctx context.Context, rec *Record, op sinkOp) {
	if s.sink == nil {
		return
	}
	if err := op(ctx, rec); err != nil {
		slog.ErrorContext(ctx, "failed to mirror application record",
			"owner", rec.Owner, "company", rec.Company, "error", err)
	}
}

// parseDate accepts a YYYY-MM-DD string; anything else is treated as unset.
// Model output dates are advisory and never worth failing an item over.
func parseDate(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil
	}
	return &t
}
