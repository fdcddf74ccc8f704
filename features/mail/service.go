package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"jobtrail/internal/adapter/gmail"
	"jobtrail/internal/cursor"
	"jobtrail/internal/middleware"
	"jobtrail/internal/worker"
)

// MailReader is the mailbox access the sync needs.
type MailReader interface {
	CurrentToken(ctx context.Context, accessToken string) (string, error)
	ListChangesSince(ctx context.Context, accessToken, sinceToken string) ([]gmail.Change, string, error)
}

// TokenProvider resolves a user's mailbox access token.
type TokenProvider interface {
	GmailToken(ctx context.Context, owner string) (string, error)
}

// UserLister enumerates owners for the periodic full sweep.
type UserLister interface {
	ListOwners(ctx context.Context) ([]string, error)
}

type EventPublisher interface {
	Publish(topic string, body []byte) error
}

// Service drives the mailbox change stream: admit new history tokens, queue
// each new email for extraction, then advance the watermark. Advancing last
// means a crash mid-sync re-queues the tail of the window; downstream is
// idempotent so that costs one redundant LLM call, never a lost email.
type Service struct {
	tracker *cursor.Tracker
	reader  MailReader
	tokens  TokenProvider
	pub     EventPublisher
}

func NewService(tracker *cursor.Tracker, reader MailReader, tokens TokenProvider, pub EventPublisher) *Service {
	return &Service{tracker: tracker, reader: reader, tokens: tokens, pub: pub}
}

// SyncOwner processes one owner's change window and returns the number of
// emails queued for extraction.
func (s *Service) SyncOwner(ctx context.Context, owner string) (int, error) {
	access, err := s.tokens.GmailToken(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("mailbox token for %s: %w", owner, err)
	}

	stored, found, err := s.tracker.Watermark(ctx, owner, cursor.SourceMail)
	if err != nil {
		return 0, err
	}
	if !found {
		// First contact: start the stream at the mailbox's present position
		// instead of replaying its whole history.
		return 0, s.bootstrap(ctx, owner, access)
	}

	changes, newToken, err := s.reader.ListChangesSince(ctx, access, stored)
	if errors.Is(err, gmail.ErrTokenExpired) {
		slog.WarnContext(ctx, "history window expired, re-bootstrapping", "owner", owner, "stored", stored)
		if err := s.tracker.Revoke(ctx, owner, cursor.SourceMail); err != nil {
			return 0, err
		}
		return 0, s.bootstrap(ctx, owner, access)
	}
	if err != nil {
		return 0, fmt.Errorf("list changes for %s: %w", owner, err)
	}

	tokens := make([]string, len(changes))
	for i, c := range changes {
		tokens[i] = strconv.FormatUint(c.HistoryID, 10)
	}
	admitted, err := s.tracker.Admit(ctx, owner, cursor.SourceMail, tokens)
	if err != nil {
		return 0, err
	}
	admittedSet := make(map[string]bool, len(admitted))
	for _, tok := range admitted {
		admittedSet[tok] = true
	}

	queued := 0
	for i, c := range changes {
		if !admittedSet[tokens[i]] {
			continue
		}
		payload, err := json.Marshal(worker.ExtractEvent{
			Email:         owner,
			MessageID:     c.MessageID,
			Subject:       c.Subject,
			Body:          c.Body,
			CorrelationID: middleware.GetCorrelationID(ctx),
		})
		if err != nil {
			return queued, fmt.Errorf("marshal extract event: %w", err)
		}
		if err := s.pub.Publish(worker.TopicExtract, payload); err != nil {
			return queued, fmt.Errorf("queue message %s: %w", c.MessageID, err)
		}
		queued++
	}

	if err := s.tracker.Advance(ctx, owner, cursor.SourceMail, newToken); err != nil {
		return queued, err
	}

	slog.InfoContext(ctx, "mailbox sync finished", "owner", owner, "queued", queued, "watermark", newToken)
	return queued, nil
}

// SyncAll sweeps every configured owner. Owners are independent, so they run
// concurrently; one broken mailbox does not stop the sweep, its error is
// logged and skipped.
func (s *Service) SyncAll(ctx context.Context, owners UserLister) (int, error) {
	list, err := owners.ListOwners(ctx)
	if err != nil {
		return 0, err
	}

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for _, owner := range list {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.SyncOwner(ctx, owner)
			if err != nil {
				slog.ErrorContext(ctx, "mailbox sync failed", "owner", owner, "error", err)
				return
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()
	return total, nil
}

func (s *Service) bootstrap(ctx context.Context, owner, access string) error {
	current, err := s.reader.CurrentToken(ctx, access)
	if err != nil {
		return fmt.Errorf("bootstrap token for %s: %w", owner, err)
	}
	_, err = s.tracker.Bootstrap(ctx, owner, cursor.SourceMail, current)
	return err
}
