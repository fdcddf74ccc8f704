package cursor

import (
	"context"
	"fmt"
	"log/slog"
)

// Store persists one watermark per (owner, source type).
type Store interface {
	Get(ctx context.Context, owner string, source SourceType) (token string, found bool, err error)
	Put(ctx context.Context, owner string, source SourceType, token string) error
	Delete(ctx context.Context, owner string, source SourceType) error
}

// Tracker decides which change tokens are new relative to the persisted
// watermark. Admission and advancement are deliberately separate calls:
// callers admit, durably process every admitted item, and only then advance.
// A crash in between is safe because downstream writes are idempotent by
// construction (deterministic datapoint ids, record identity keys).
type Tracker struct {
	store Store
}

func NewTracker(store Store) *Tracker {
	return &Tracker{store: store}
}

// Admit returns the subsequence of candidates strictly greater than the
// stored watermark, in their original order. With no watermark yet (first
// poll for this owner) every candidate is admitted.
func (t *Tracker) Admit(ctx context.Context, owner string, source SourceType, candidates []string) ([]string, error) {
	watermark, found, err := t.store.Get(ctx, owner, source)
	if err != nil {
		return nil, fmt.Errorf("load watermark: %w", err)
	}

	if !found {
		return candidates, nil
	}

	var admitted []string
	for _, c := range candidates {
		cmp, err := Compare(source, c, watermark)
		if err != nil {
			return nil, err
		}
		if cmp > 0 {
			admitted = append(admitted, c)
		}
	}
	return admitted, nil
}

// Advance moves the watermark forward to token. The watermark never moves
// backwards: a stale token is ignored rather than treated as an error, so a
// redelivered notification cannot rewind the stream.
func (t *Tracker) Advance(ctx context.Context, owner string, source SourceType, token string) error {
	current, found, err := t.store.Get(ctx, owner, source)
	if err != nil {
		return fmt.Errorf("load watermark: %w", err)
	}

	if found {
		cmp, err := Compare(source, token, current)
		if err != nil {
			return err
		}
		if cmp <= 0 {
			slog.DebugContext(ctx, "watermark not advanced", "owner", owner, "source", source, "token", token, "current", current)
			return nil
		}
	}

	return t.store.Put(ctx, owner, source, token)
}

// Bootstrap initializes the watermark to token when none exists yet, without
// processing anything. Used when the very first upstream fetch for an owner
// fails: starting from the notification's token avoids an unbounded backlog
// scan on the next poll. Returns true when the watermark was initialized.
func (t *Tracker) Bootstrap(ctx context.Context, owner string, source SourceType, token string) (bool, error) {
	_, found, err := t.store.Get(ctx, owner, source)
	if err != nil {
		return false, fmt.Errorf("load watermark: %w", err)
	}
	if found {
		return false, nil
	}
	if err := t.store.Put(ctx, owner, source, token); err != nil {
		return false, err
	}
	slog.InfoContext(ctx, "watermark bootstrapped", "owner", owner, "source", source, "token", token)
	return true, nil
}

// Watermark returns the stored token for the owner, if any.
func (t *Tracker) Watermark(ctx context.Context, owner string, source SourceType) (string, bool, error) {
	return t.store.Get(ctx, owner, source)
}

// Revoke removes the watermark for an owner, used on account revocation.
func (t *Tracker) Revoke(ctx context.Context, owner string, source SourceType) error {
	return t.store.Delete(ctx, owner, source)
}
