package application

import (
	"context"
	"errors"
	"fmt"
)

// Decision is the outcome of resolving an extraction against stored state.
type Decision string

const (
	DecisionCreate  Decision = "create"
	DecisionUpdate  Decision = "update"
	DecisionDiscard Decision = "discard"
)

// Resolver decides whether an extracted status creates a new record, advances
// an existing one, or is dropped as stale. Advancement is strict: an update
// with rank equal to or below the stored status is discarded, which makes
// redelivered messages idempotent.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Resolve returns the decision and, for updates, the stored record to mutate.
func (r *Resolver) Resolve(ctx context.Context, owner, company, position string, incoming Status) (Decision, *Record, error) {
	if !incoming.Valid() {
		return DecisionDiscard, nil, fmt.Errorf("%w: invalid status %q", ErrExtraction, incoming)
	}

	existing, err := r.repo.Get(ctx, owner, company, position)
	if errors.Is(err, ErrNotFound) {
		return DecisionCreate, nil, nil
	}
	if err != nil {
		return DecisionDiscard, nil, fmt.Errorf("resolve %s/%s: %w", company, position, err)
	}

	if incoming.Rank() > existing.Status.Rank() {
		return DecisionUpdate, existing, nil
	}
	return DecisionDiscard, existing, nil
}
